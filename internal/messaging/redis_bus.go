package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "ugcflow:messages:"

// RedisBus publishes each message on a per-project Redis channel and
// forwards every channel under the prefix back to the local hub.
type RedisBus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisBus(rdb *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, logger: logger.Named("redis_bus")}
}

func (b *RedisBus) Publish(ctx context.Context, m models.Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, redisChannelPrefix+Topic(m.ProjectID), raw).Err()
}

func (b *RedisBus) StartForwarder(ctx context.Context, deliver func(models.Message)) error {
	sub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok || msg == nil {
					return
				}
				var m models.Message
				if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
					b.logger.Warn("bad message payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				deliver(m)
			}
		}
	}()
	return nil
}

// Close is a no-op: the client is shared and closed by its owner.
func (b *RedisBus) Close() error { return nil }
