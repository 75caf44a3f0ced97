// Package app opens the storage and broker connections both binaries
// share.
package app

import (
	"context"
	"fmt"

	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/lalith-99/ugcflow/internal/db"
	"github.com/lalith-99/ugcflow/internal/messaging"
	"github.com/lalith-99/ugcflow/internal/repository"
	"github.com/lalith-99/ugcflow/internal/repository/memory"
	"github.com/lalith-99/ugcflow/internal/repository/postgres"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is the opened store plus the optional Redis client.
type Backend struct {
	Store repository.Store
	DB    *db.DB        // nil with the memory store
	Redis *redis.Client // nil when REDIS_URL is empty

	logger *zap.Logger
}

// Open connects to the configured store and, when set, to Redis.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{logger: logger}

	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		b.Store = memory.New()
	default:
		database, err := db.New(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		b.DB = database
		b.Store = postgres.NewStore(database.Pool())
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.Redis = rdb
		logger.Info("connected to redis", zap.String("addr", opts.Addr))
	}
	return b, nil
}

// Revoker is Redis-backed when Redis is configured.
func (b *Backend) Revoker() auth.Revoker {
	if b.Redis != nil {
		return auth.NewRedisRevoker(b.Redis)
	}
	return auth.NewMemoryRevoker()
}

// Bus fans messages out through Redis when configured, so every server
// instance sees every message.
func (b *Backend) Bus() messaging.Bus {
	if b.Redis != nil {
		return messaging.NewRedisBus(b.Redis, b.logger)
	}
	return messaging.NewLocalBus()
}

// Health pings the database. The memory store is always healthy.
func (b *Backend) Health(ctx context.Context) error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Health(ctx)
}

func (b *Backend) Close() {
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if b.DB != nil {
		b.DB.Close()
	}
}
