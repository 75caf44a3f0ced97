// Package pipeline owns the production workflow of a project: the status
// state machine, script and video approval, creator assignments and the
// project queries built on them.
//
// Every operation takes an explicit models.Actor and runs against a
// repository.Store. Writes that touch Project.status lock the project row
// first and record the change in the status audit trail in the same
// transaction.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// Next is the result of a transition function: the status to move to, or
// Stay.
type Next struct {
	To   models.ProjectStatus
	Move bool
}

// Stay leaves the status unchanged.
var Stay = Next{}

func moveTo(s models.ProjectStatus) Next { return Next{To: s, Move: true} }

func in(cur models.ProjectStatus, set ...models.ProjectStatus) bool {
	for _, s := range set {
		if cur == s {
			return true
		}
	}
	return false
}

// Automatic transitions. Each takes the current status and returns where
// the project goes next.

// OnBriefSubmitted moves a saved draft into the pipeline.
func OnBriefSubmitted(cur models.ProjectStatus) Next {
	if cur == models.StatusDraft {
		return moveTo(models.StatusBriefSubmitted)
	}
	return Stay
}

// OnGenerationStarted marks a brief as being drafted by the model.
func OnGenerationStarted(cur models.ProjectStatus) Next {
	if in(cur, models.StatusBriefSubmitted, models.StatusDraft) {
		return moveTo(models.StatusAIProcessing)
	}
	return Stay
}

// OnGenerationStored hands freshly generated scripts to review. A project
// moved elsewhere while the model ran is left where it is.
func OnGenerationStored(cur models.ProjectStatus) Next {
	if cur == models.StatusAIProcessing {
		return moveTo(models.StatusScriptsInReview)
	}
	return Stay
}

// OnGenerationFailed puts the brief back so generation can be retried.
func OnGenerationFailed(cur models.ProjectStatus) Next {
	if cur == models.StatusAIProcessing {
		return moveTo(models.StatusBriefSubmitted)
	}
	return Stay
}

// OnScriptApproved applies the type-specific cascade of an approved script,
// regardless of the prior status.
func OnScriptApproved(_ models.ProjectStatus, t models.ScriptType) Next {
	switch t {
	case models.ScriptAIGenerated:
		return moveTo(models.StatusScriptsApproved)
	case models.ScriptCreatorRewrite:
		return moveTo(models.StatusClientScriptReview)
	}
	return Stay
}

// OnFirstAssignment fires when a project gains its first active creator.
func OnFirstAssignment(cur models.ProjectStatus) Next {
	if in(cur, models.StatusScriptsApproved, models.StatusBriefSubmitted) {
		return moveTo(models.StatusCreatorAssigned)
	}
	return Stay
}

// OnAssignmentAccepted starts the creator's scripting phase.
func OnAssignmentAccepted(cur models.ProjectStatus) Next {
	if cur == models.StatusCreatorAssigned {
		return moveTo(models.StatusCreatorScripting)
	}
	return Stay
}

// OnRewriteSubmitted queues a creator rewrite for admin review.
func OnRewriteSubmitted(models.ProjectStatus) Next {
	return moveTo(models.StatusScriptReview)
}

// OnVideoUploaded queues a new video version for admin review.
func OnVideoUploaded(models.ProjectStatus) Next {
	return moveTo(models.StatusVideoInReview)
}

// OnVideoAdminReviewed applies the admin track outcome. Rejection leaves the
// project alone.
func OnVideoAdminReviewed(_ models.ProjectStatus, outcome models.ApprovalStatus) Next {
	switch outcome {
	case models.ApprovalApproved:
		return moveTo(models.StatusVideoApproved)
	case models.ApprovalRevisionRequested:
		return moveTo(models.StatusRevisionRequested)
	}
	return Stay
}

// OnVideoClientReviewed applies the client track outcome.
func OnVideoClientReviewed(_ models.ProjectStatus, outcome models.ApprovalStatus) Next {
	switch outcome {
	case models.ApprovalApproved:
		return moveTo(models.StatusDelivered)
	case models.ApprovalRevisionRequested:
		return moveTo(models.StatusRevisionRequested)
	}
	return Stay
}

// change describes one audited status write.
type change struct {
	actor  models.Actor
	source models.TransitionSource
	reason *string
}

// apply writes next onto p and appends the audit row. p must have been read
// with GetForUpdate in the same transaction. Moving to the current status is
// a no-op and records nothing.
func apply(ctx context.Context, tx repository.Repositories, p *models.Project, next Next, c change) error {
	if !next.Move || next.To == p.Status {
		return nil
	}
	if !next.To.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, next.To)
	}
	if err := tx.Projects().SetStatus(ctx, p.ID, next.To); err != nil {
		return err
	}
	if err := tx.Transitions().Append(ctx, &models.StatusTransition{
		ProjectID: p.ID,
		From:      p.Status,
		To:        next.To,
		ActorID:   c.actor.Ref(),
		Source:    c.source,
		Reason:    c.reason,
	}); err != nil {
		return err
	}
	p.Status = next.To
	return nil
}

// StateMachine exposes the operations that act on status directly: the
// admin override and the audit trail. Automatic transitions run inside the
// component operation that triggers them.
type StateMachine struct {
	store  repository.Store
	logger *zap.Logger
}

func NewStateMachine(store repository.Store, logger *zap.Logger) *StateMachine {
	return &StateMachine{store: store, logger: logger.Named("statemachine")}
}

// Override sets status to any enumerated value. Leaving completed is refused
// with ErrTerminalStatus; an override to the current status changes nothing.
func (m *StateMachine) Override(ctx context.Context, actor models.Actor, projectID uuid.UUID, to models.ProjectStatus, reason *string) (*models.Project, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, to)
	}
	if err := access.Require(actor.Role, access.CapOverrideStatus); err != nil {
		return nil, err
	}

	var (
		project *models.Project
		from    models.ProjectStatus
	)
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		from = p.Status
		if p.Status.Terminal() && to != p.Status {
			return fmt.Errorf("project %s is %s: %w", p.ID, p.Status, apperrors.ErrTerminalStatus)
		}
		if err := apply(ctx, tx, p, moveTo(to), change{actor: actor, source: models.SourceManual, reason: nonEmpty(reason)}); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("status overridden",
		zap.String("project_id", projectID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.ID.String()),
	)
	return project, nil
}

// History returns the project's audit trail, oldest first.
func (m *StateMachine) History(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.StatusTransition, error) {
	if err := access.Require(actor.Role, access.CapReadAudit); err != nil {
		return nil, err
	}
	if _, err := m.store.Projects().GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return m.store.Transitions().ListByProject(ctx, projectID)
}

// Advance runs an automatic transition under the project lock. It serves
// callers outside this package, such as script generation.
func (m *StateMachine) Advance(ctx context.Context, projectID uuid.UUID, fn func(models.ProjectStatus) Next, actor models.Actor, source models.TransitionSource) (*models.Project, error) {
	var project *models.Project
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if err := apply(ctx, tx, p, fn(p.Status), change{actor: actor, source: source}); err != nil {
			return err
		}
		project = p
		return nil
	})
	return project, err
}
