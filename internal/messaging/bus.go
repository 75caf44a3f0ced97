package messaging

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
)

// Bus carries stored messages to every server instance. Delivery is
// at-least-once; consumers drop ids they have already seen.
type Bus interface {
	Publish(ctx context.Context, m models.Message) error
	// StartForwarder calls deliver for every message published on any topic
	// until ctx is done.
	StartForwarder(ctx context.Context, deliver func(models.Message)) error
	Close() error
}

const directTopic = "direct"

// Topic is the fan-out key of a message: its project id, or "direct" for
// messages outside any project.
func Topic(projectID *uuid.UUID) string {
	if projectID == nil {
		return directTopic
	}
	return projectID.String()
}

// LocalBus delivers in-process. It backs single-instance runs without Redis.
type LocalBus struct {
	mu       sync.RWMutex
	forwards []func(models.Message)
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Publish(_ context.Context, m models.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, deliver := range b.forwards {
		deliver(m)
	}
	return nil
}

func (b *LocalBus) StartForwarder(ctx context.Context, deliver func(models.Message)) error {
	b.mu.Lock()
	b.forwards = append(b.forwards, deliver)
	idx := len(b.forwards) - 1
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.forwards[idx] = func(models.Message) {}
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBus) Close() error { return nil }
