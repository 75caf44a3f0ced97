//go:build integration

package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisBus_ForwardsAcrossInstances(t *testing.T) {
	rdb := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two buses on one Redis stand in for two server instances.
	sender := NewRedisBus(rdb, zap.NewNop())
	receiver := NewRedisBus(rdb, zap.NewNop())

	var mu sync.Mutex
	var got []models.Message
	require.NoError(t, receiver.StartForwarder(ctx, func(m models.Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}))

	projectID := uuid.New()
	require.NoError(t, sender.Publish(ctx, models.Message{ID: 1, ProjectID: &projectID, Channel: models.ChannelProject, Content: "hi"}))
	require.NoError(t, sender.Publish(ctx, models.Message{ID: 2, Channel: models.ChannelDirect, Content: "dm"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hi", got[0].Content)
	assert.Equal(t, projectID, *got[0].ProjectID)
	assert.Nil(t, got[1].ProjectID)
}

func TestRedisRevoker(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()
	r := auth.NewRedisRevoker(rdb)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
