package messaging

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

const outboundBuffer = 64

// Subscription receives the messages of one topic. Messages are offered
// without blocking; a full buffer drops them and the client recovers
// through history.
type Subscription struct {
	ID    uuid.UUID
	topic string
	out   chan models.Message
	once  sync.Once
}

func (s *Subscription) C() <-chan models.Message { return s.out }

// Hub fans bus messages out to the subscriptions of this instance.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscription]bool),
		logger: logger.Named("hub"),
	}
}

func (h *Hub) Subscribe(topic string) *Subscription {
	s := &Subscription{ID: uuid.New(), topic: topic, out: make(chan models.Message, outboundBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[topic]
	if !ok {
		set = make(map[*Subscription]bool)
		h.subs[topic] = set
	}
	set[s] = true
	h.logger.Debug("subscribed", zap.String("subscription", s.ID.String()), zap.String("topic", topic))
	return s
}

// Unsubscribe removes s and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
	}
	h.mu.Unlock()
	s.once.Do(func() { close(s.out) })
}

// Deliver is the bus forwarder callback.
func (h *Hub) Deliver(m models.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[Topic(m.ProjectID)] {
		select {
		case s.out <- m:
		default:
			h.logger.Warn("dropping message; outbound buffer full",
				zap.String("subscription", s.ID.String()),
				zap.Int64("message_id", m.ID),
			)
		}
	}
}

// Subscribers reports how many subscriptions a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
