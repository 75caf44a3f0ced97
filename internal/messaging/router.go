// Package messaging stores chat messages per (project, channel) partition
// and fans them out to live subscribers.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// Router appends messages to the log and publishes them on the bus.
type Router struct {
	store  repository.Store
	bus    Bus
	logger *zap.Logger
}

func NewRouter(store repository.Store, bus Bus, logger *zap.Logger) *Router {
	return &Router{store: store, bus: bus, logger: logger.Named("messaging")}
}

// SendInput is one outgoing message. ProjectID may only be nil on the
// direct channel.
type SendInput struct {
	ProjectID   *uuid.UUID
	RecipientID *uuid.UUID
	Channel     models.Channel
	Content     string
}

// Send validates, stores and publishes a message. Content is stored
// trimmed. A failed publish is logged, not returned: the message is already
// in the log and subscribers pick it up from history.
func (r *Router) Send(ctx context.Context, actor models.Actor, in SendInput) (*models.Message, error) {
	if !in.Channel.Valid() {
		return nil, fmt.Errorf("%w: channel %q", apperrors.ErrValidation, in.Channel)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}
	if in.Channel == models.ChannelDirect && in.RecipientID == nil {
		return nil, fmt.Errorf("%w: direct messages need a recipient", apperrors.ErrValidation)
	}
	if err := r.CanAccess(ctx, actor, in.ProjectID, in.Channel); err != nil {
		return nil, err
	}
	if in.RecipientID != nil {
		if _, err := r.store.Profiles().GetByID(ctx, *in.RecipientID); err != nil {
			return nil, err
		}
	}

	m := &models.Message{
		ProjectID:   in.ProjectID,
		SenderID:    actor.ID,
		RecipientID: in.RecipientID,
		Channel:     in.Channel,
		Content:     content,
	}
	if err := r.store.Messages().Create(ctx, m); err != nil {
		return nil, err
	}

	if err := r.bus.Publish(ctx, *m); err != nil {
		r.logger.Warn("publish failed",
			zap.Int64("message_id", m.ID),
			zap.String("topic", Topic(m.ProjectID)),
			zap.Error(err),
		)
	}
	return m, nil
}

// HistoryInput selects a page of one partition.
type HistoryInput struct {
	ProjectID *uuid.UUID
	Channel   models.Channel
	After     int64
	Limit     int
}

// LoadHistory returns the partition's messages ordered by (created_at, id).
// On the direct channel non-admins only see messages they sent or received.
func (r *Router) LoadHistory(ctx context.Context, actor models.Actor, in HistoryInput) ([]models.Message, error) {
	if !in.Channel.Valid() {
		return nil, fmt.Errorf("%w: channel %q", apperrors.ErrValidation, in.Channel)
	}
	if in.After < 0 || in.Limit < 0 {
		return nil, fmt.Errorf("%w: after and limit must not be negative", apperrors.ErrValidation)
	}
	if err := r.CanAccess(ctx, actor, in.ProjectID, in.Channel); err != nil {
		return nil, err
	}
	return r.store.Messages().History(ctx, repository.HistoryQuery{
		ProjectID:   in.ProjectID,
		Channel:     in.Channel,
		Participant: participant(actor, in.Channel),
		After:       in.After,
		Limit:       in.Limit,
	})
}

// CanAccess checks that the actor's role may use the channel and, for
// project partitions, that the actor can see the project. A project the
// actor cannot see is ErrNotFound.
func (r *Router) CanAccess(ctx context.Context, actor models.Actor, projectID *uuid.UUID, ch models.Channel) error {
	if !access.CanUseChannel(actor.Role, ch) {
		return fmt.Errorf("%w: channel %s", apperrors.ErrForbidden, ch)
	}
	if projectID == nil {
		if ch != models.ChannelDirect {
			return fmt.Errorf("%w: channel %s needs a project", apperrors.ErrValidation, ch)
		}
		return nil
	}
	p, err := r.store.Projects().GetByID(ctx, *projectID)
	if err != nil {
		return err
	}
	ok, err := pipeline.CanView(ctx, r.store, actor, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %s: %w", *projectID, apperrors.ErrNotFound)
	}
	return nil
}

func participant(actor models.Actor, ch models.Channel) *uuid.UUID {
	if ch != models.ChannelDirect || actor.Role == models.RoleAdmin {
		return nil
	}
	id := actor.ID
	return &id
}
