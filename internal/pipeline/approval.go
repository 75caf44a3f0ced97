package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// ApprovalEngine reviews scripts and both video tracks. Each review writes
// the approval fields and the resulting project status in one transaction.
//
// Checks run in a fixed order: value, role, existence and ownership,
// precondition, write. A request that fails an earlier check never reaches
// a later one.
type ApprovalEngine struct {
	store  repository.Store
	logger *zap.Logger
}

func NewApprovalEngine(store repository.Store, logger *zap.Logger) *ApprovalEngine {
	return &ApprovalEngine{store: store, logger: logger.Named("approval")}
}

var (
	scriptOutcomes      = []models.ApprovalStatus{models.ApprovalApproved, models.ApprovalRevisionRequested, models.ApprovalRejected}
	videoAdminOutcomes  = scriptOutcomes
	videoClientOutcomes = []models.ApprovalStatus{models.ApprovalApproved, models.ApprovalRevisionRequested}
)

func checkOutcome(got models.ApprovalStatus, allowed []models.ApprovalStatus) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, got)
}

// nonEmpty trims s and returns nil when nothing is left.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// ScriptReviewResult is a reviewed script and its project after cascade.
type ScriptReviewResult struct {
	Script  *models.Script  `json:"script"`
	Project *models.Project `json:"project"`
}

// ReviewScript records an admin decision on a script. approved_by is set to
// the reviewer only when the outcome is approved.
func (e *ApprovalEngine) ReviewScript(ctx context.Context, actor models.Actor, scriptID uuid.UUID, outcome models.ApprovalStatus, feedback *string) (*ScriptReviewResult, error) {
	if err := checkOutcome(outcome, scriptOutcomes); err != nil {
		return nil, err
	}
	if err := access.Require(actor.Role, access.CapReviewScripts); err != nil {
		return nil, err
	}

	var res ScriptReviewResult
	err := e.store.InTx(ctx, func(tx repository.Repositories) error {
		s, err := tx.Scripts().GetByID(ctx, scriptID)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, s.ProjectID)
		if err != nil {
			return err
		}

		review := repository.ScriptReview{Status: outcome, Feedback: nonEmpty(feedback)}
		if outcome == models.ApprovalApproved {
			review.ApprovedBy = actor.Ref()
		}
		s, err = tx.Scripts().UpdateReview(ctx, scriptID, review)
		if err != nil {
			return err
		}

		if outcome == models.ApprovalApproved {
			next := OnScriptApproved(p.Status, s.Type)
			if err := apply(ctx, tx, p, next, change{actor: actor, source: models.SourceScriptReview}); err != nil {
				return err
			}
		}
		res = ScriptReviewResult{Script: s, Project: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("script reviewed",
		zap.String("script_id", scriptID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("project_status", string(res.Project.Status)),
	)
	return &res, nil
}

// VideoReviewResult is a reviewed video and its project after cascade.
type VideoReviewResult struct {
	Video   *models.Video   `json:"video"`
	Project *models.Project `json:"project"`
}

// ReviewVideoAdmin records the admin track of a video. A video the client
// already approved is final and its admin track is closed: the call fails
// with ErrConflict and nothing changes.
func (e *ApprovalEngine) ReviewVideoAdmin(ctx context.Context, actor models.Actor, videoID uuid.UUID, outcome models.ApprovalStatus, feedback *string) (*VideoReviewResult, error) {
	if err := checkOutcome(outcome, videoAdminOutcomes); err != nil {
		return nil, err
	}
	if err := access.Require(actor.Role, access.CapReviewVideoAdmin); err != nil {
		return nil, err
	}

	var res VideoReviewResult
	err := e.store.InTx(ctx, func(tx repository.Repositories) error {
		v, err := tx.Videos().GetByID(ctx, videoID)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, v.ProjectID)
		if err != nil {
			return err
		}
		// Re-read under the project lock; a concurrent client approval may
		// have finalized it.
		if v, err = tx.Videos().GetByID(ctx, videoID); err != nil {
			return err
		}
		if v.IsFinal {
			return fmt.Errorf("%w: video %s is final", apperrors.ErrConflict, videoID)
		}
		v, err = tx.Videos().UpdateAdminReview(ctx, videoID, outcome, nonEmpty(feedback))
		if err != nil {
			return err
		}
		next := OnVideoAdminReviewed(p.Status, outcome)
		if err := apply(ctx, tx, p, next, change{actor: actor, source: models.SourceVideoAdminReview}); err != nil {
			return err
		}
		res = VideoReviewResult{Video: v, Project: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("video reviewed by admin",
		zap.String("video_id", videoID.String()),
		zap.String("outcome", string(outcome)),
		zap.String("project_status", string(res.Project.Status)),
	)
	return &res, nil
}

// ReviewVideoClient records the client track of a video. Only the client
// owning the project may write it, and only once the admin track is
// approved; otherwise it fails with ErrNotYetAdminApproved and nothing
// changes. Approval marks the video final and completes its assignment.
func (e *ApprovalEngine) ReviewVideoClient(ctx context.Context, actor models.Actor, videoID uuid.UUID, outcome models.ApprovalStatus, feedback *string) (*VideoReviewResult, error) {
	if err := checkOutcome(outcome, videoClientOutcomes); err != nil {
		return nil, err
	}
	if err := access.Require(actor.Role, access.CapReviewVideoClient); err != nil {
		return nil, err
	}

	var res VideoReviewResult
	err := e.store.InTx(ctx, func(tx repository.Repositories) error {
		v, err := tx.Videos().GetByID(ctx, videoID)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, v.ProjectID)
		if err != nil {
			return err
		}
		if p.ClientID != actor.ID {
			return fmt.Errorf("video %s: %w", videoID, apperrors.ErrNotFound)
		}

		approved := outcome == models.ApprovalApproved
		v, err = tx.Videos().UpdateClientReview(ctx, videoID, outcome, nonEmpty(feedback), approved)
		if err != nil {
			return err
		}
		if approved {
			if _, err := tx.Assignments().UpdateStatus(ctx, v.AssignmentID,
				[]models.AssignmentStatus{models.AssignmentAccepted, models.AssignmentInProgress},
				models.AssignmentCompleted,
			); err != nil && !isNotFound(err) {
				return err
			}
		}
		next := OnVideoClientReviewed(p.Status, outcome)
		if err := apply(ctx, tx, p, next, change{actor: actor, source: models.SourceVideoClientReview}); err != nil {
			return err
		}
		res = VideoReviewResult{Video: v, Project: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("video reviewed by client",
		zap.String("video_id", videoID.String()),
		zap.String("outcome", string(outcome)),
		zap.Bool("is_final", res.Video.IsFinal),
		zap.String("project_status", string(res.Project.Status)),
	)
	return &res, nil
}

// ReviewVideo picks the track from the caller's role: admins write the admin
// track, clients the client track. Anyone else is refused.
func (e *ApprovalEngine) ReviewVideo(ctx context.Context, actor models.Actor, videoID uuid.UUID, outcome models.ApprovalStatus, feedback *string) (*VideoReviewResult, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return e.ReviewVideoAdmin(ctx, actor, videoID, outcome, feedback)
	case models.RoleClient:
		return e.ReviewVideoClient(ctx, actor, videoID, outcome, feedback)
	}
	if err := checkOutcome(outcome, videoAdminOutcomes); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: role %q cannot review videos", apperrors.ErrForbidden, actor.Role)
}
