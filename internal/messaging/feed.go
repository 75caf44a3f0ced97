package messaging

import (
	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
)

// Feed is the per-connection consumer of one partition. A topic carries
// every channel of a project, so Accept re-checks the channel, and it
// drops message ids already written (history and live overlap, and the bus
// may redeliver).
type Feed struct {
	channel     models.Channel
	participant *uuid.UUID
	seen        map[int64]struct{}
}

func NewFeed(actor models.Actor, ch models.Channel) *Feed {
	return &Feed{
		channel:     ch,
		participant: participant(actor, ch),
		seen:        make(map[int64]struct{}),
	}
}

// Accept reports whether m should be written to the client and records
// it as delivered.
func (f *Feed) Accept(m models.Message) bool {
	if m.Channel != f.channel {
		return false
	}
	if f.participant != nil && m.SenderID != *f.participant &&
		(m.RecipientID == nil || *m.RecipientID != *f.participant) {
		return false
	}
	if _, dup := f.seen[m.ID]; dup {
		return false
	}
	f.seen[m.ID] = struct{}{}
	return true
}
