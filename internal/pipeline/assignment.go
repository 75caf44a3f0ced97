package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// AssignmentManager binds creators to projects and carries their work
// (rewrites and uploads) back into the pipeline.
type AssignmentManager struct {
	store  repository.Store
	logger *zap.Logger
}

func NewAssignmentManager(store repository.Store, logger *zap.Logger) *AssignmentManager {
	return &AssignmentManager{store: store, logger: logger.Named("assignments")}
}

// Assign creates a pending assignment. The at-most-one-active rule is the
// store's uniqueness constraint; a duplicate fails with ErrAlreadyAssigned
// and leaves no row behind.
func (m *AssignmentManager) Assign(ctx context.Context, actor models.Actor, projectID, creatorID uuid.UUID) (*models.ProjectAssignment, error) {
	if err := access.Require(actor.Role, access.CapAssignCreators); err != nil {
		return nil, err
	}

	a := &models.ProjectAssignment{
		ProjectID:  projectID,
		CreatorID:  creatorID,
		AssignedBy: actor.ID,
		Status:     models.AssignmentPending,
	}
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		creator, err := tx.Profiles().GetByID(ctx, creatorID)
		if err != nil {
			return err
		}
		if creator.Role != models.RoleCreator {
			return fmt.Errorf("creator %s: %w", creatorID, apperrors.ErrNotFound)
		}

		active, err := tx.Assignments().CountActive(ctx, projectID)
		if err != nil {
			return err
		}
		if err := tx.Assignments().Create(ctx, a); err != nil {
			return err
		}
		if active == 0 {
			return apply(ctx, tx, p, OnFirstAssignment(p.Status), change{actor: actor, source: models.SourceAssignment})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("creator assigned",
		zap.String("project_id", projectID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.String("assignment_id", a.ID.String()),
	)
	return a, nil
}

// Remove hard-deletes an assignment. Project status is left as it is.
func (m *AssignmentManager) Remove(ctx context.Context, actor models.Actor, assignmentID uuid.UUID) error {
	if err := access.Require(actor.Role, access.CapRemoveAssignments); err != nil {
		return err
	}
	if err := m.store.Assignments().Delete(ctx, assignmentID); err != nil {
		return err
	}
	m.logger.Info("assignment removed", zap.String("assignment_id", assignmentID.String()))
	return nil
}

// ownAssignment loads an assignment of the calling creator. Someone else's
// assignment reads as not found.
func ownAssignment(ctx context.Context, r repository.Repositories, actor models.Actor, id uuid.UUID) (*models.ProjectAssignment, error) {
	a, err := r.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != actor.ID {
		return nil, fmt.Errorf("assignment %s: %w", id, apperrors.ErrNotFound)
	}
	return a, nil
}

// respond moves the caller's pending assignment to `to`.
func (m *AssignmentManager) respond(ctx context.Context, actor models.Actor, assignmentID uuid.UUID, to models.AssignmentStatus, next func(models.ProjectStatus) Next) (*models.ProjectAssignment, error) {
	if err := access.Require(actor.Role, access.CapRespondAssignment); err != nil {
		return nil, err
	}

	var out *models.ProjectAssignment
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		a, err := ownAssignment(ctx, tx, actor, assignmentID)
		if err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		changed, err := tx.Assignments().UpdateStatus(ctx, assignmentID, []models.AssignmentStatus{models.AssignmentPending}, to)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("assignment %s is %s, not pending: %w", assignmentID, a.Status, apperrors.ErrInvalidTransition)
		}
		if next != nil {
			if err := apply(ctx, tx, p, next(p.Status), change{actor: actor, source: models.SourceAssignment}); err != nil {
				return err
			}
		}
		out, err = tx.Assignments().GetByID(ctx, assignmentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("assignment answered",
		zap.String("assignment_id", assignmentID.String()),
		zap.String("status", string(to)),
	)
	return out, nil
}

// Accept is the assigned creator taking the job: pending -> accepted.
func (m *AssignmentManager) Accept(ctx context.Context, actor models.Actor, assignmentID uuid.UUID) (*models.ProjectAssignment, error) {
	return m.respond(ctx, actor, assignmentID, models.AssignmentAccepted, OnAssignmentAccepted)
}

// Decline frees the creator's slot on the project: pending -> declined.
func (m *AssignmentManager) Decline(ctx context.Context, actor models.Actor, assignmentID uuid.UUID) (*models.ProjectAssignment, error) {
	return m.respond(ctx, actor, assignmentID, models.AssignmentDeclined, nil)
}

var workingStatuses = []models.AssignmentStatus{models.AssignmentAccepted, models.AssignmentInProgress}

func working(a *models.ProjectAssignment) error {
	for _, s := range workingStatuses {
		if a.Status == s {
			return nil
		}
	}
	return fmt.Errorf("assignment %s is %s: %w", a.ID, a.Status, apperrors.ErrInvalidTransition)
}

// ScriptDraft is a creator's rewrite.
type ScriptDraft struct {
	Body                string
	Hooks               []string
	FilmingInstructions *string
}

// SubmitScript stores a creator rewrite as the next script version and puts
// the assignment in progress.
func (m *AssignmentManager) SubmitScript(ctx context.Context, actor models.Actor, assignmentID uuid.UUID, d ScriptDraft) (*models.Script, error) {
	body := strings.TrimSpace(d.Body)
	if body == "" {
		return nil, apperrors.ErrEmptyBody
	}
	if err := access.Require(actor.Role, access.CapSubmitScript); err != nil {
		return nil, err
	}

	var script *models.Script
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		a, err := ownAssignment(ctx, tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if err := working(a); err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		version, err := tx.Scripts().NextVersion(ctx, p.ID)
		if err != nil {
			return err
		}

		assignment := a.ID
		script = &models.Script{
			ProjectID:           p.ID,
			AssignmentID:        &assignment,
			Version:             version,
			Type:                models.ScriptCreatorRewrite,
			Hooks:               trimAll(d.Hooks),
			Body:                body,
			FilmingInstructions: nonEmpty(d.FilmingInstructions),
			ApprovalStatus:      models.ApprovalPending,
		}
		if err := tx.Scripts().Create(ctx, script); err != nil {
			return err
		}
		if _, err := tx.Assignments().UpdateStatus(ctx, a.ID, workingStatuses, models.AssignmentInProgress); err != nil {
			return err
		}
		return apply(ctx, tx, p, OnRewriteSubmitted(p.Status), change{actor: actor, source: models.SourceCreatorSubmission})
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("creator script submitted",
		zap.String("assignment_id", assignmentID.String()),
		zap.String("script_id", script.ID.String()),
		zap.Int("version", script.Version),
	)
	return script, nil
}

// VideoUpload describes an uploaded cut. The file itself lives in external
// storage; only its URL is recorded.
type VideoUpload struct {
	VideoURL        string
	ThumbnailURL    *string
	DurationSeconds *int
	ScriptID        *uuid.UUID
}

// UploadVideo stores the next video version with both review tracks
// pending.
func (m *AssignmentManager) UploadVideo(ctx context.Context, actor models.Actor, assignmentID uuid.UUID, u VideoUpload) (*models.Video, error) {
	url := strings.TrimSpace(u.VideoURL)
	if url == "" {
		return nil, apperrors.ErrEmptyContent
	}
	if u.DurationSeconds != nil && *u.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration_seconds must not be negative", apperrors.ErrValidation)
	}
	if err := access.Require(actor.Role, access.CapUploadVideo); err != nil {
		return nil, err
	}

	var video *models.Video
	err := m.store.InTx(ctx, func(tx repository.Repositories) error {
		a, err := ownAssignment(ctx, tx, actor, assignmentID)
		if err != nil {
			return err
		}
		if err := working(a); err != nil {
			return err
		}
		p, err := tx.Projects().GetForUpdate(ctx, a.ProjectID)
		if err != nil {
			return err
		}
		if u.ScriptID != nil {
			s, err := tx.Scripts().GetByID(ctx, *u.ScriptID)
			if err != nil {
				return err
			}
			if s.ProjectID != p.ID {
				return fmt.Errorf("script %s: %w", s.ID, apperrors.ErrNotFound)
			}
		}
		version, err := tx.Videos().NextVersion(ctx, p.ID)
		if err != nil {
			return err
		}

		video = &models.Video{
			ProjectID:            p.ID,
			AssignmentID:         a.ID,
			ScriptID:             u.ScriptID,
			VideoURL:             url,
			ThumbnailURL:         nonEmpty(u.ThumbnailURL),
			DurationSeconds:      u.DurationSeconds,
			Version:              version,
			AdminApprovalStatus:  models.ApprovalPending,
			ClientApprovalStatus: models.ApprovalPending,
		}
		if err := tx.Videos().Create(ctx, video); err != nil {
			return err
		}
		if _, err := tx.Assignments().UpdateStatus(ctx, a.ID, workingStatuses, models.AssignmentInProgress); err != nil {
			return err
		}
		return apply(ctx, tx, p, OnVideoUploaded(p.Status), change{actor: actor, source: models.SourceCreatorSubmission})
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("video uploaded",
		zap.String("assignment_id", assignmentID.String()),
		zap.String("video_id", video.ID.String()),
		zap.Int("version", video.Version),
	)
	return video, nil
}

// ListForProject returns a project's assignments, oldest first.
func (m *AssignmentManager) ListForProject(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.ProjectAssignment, error) {
	if err := access.Require(actor.Role, access.CapAssignCreators); err != nil {
		return nil, err
	}
	if _, err := m.store.Projects().GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return m.store.Assignments().ListByProject(ctx, projectID)
}

// ListMine returns the calling creator's assignments, newest first.
func (m *AssignmentManager) ListMine(ctx context.Context, actor models.Actor) ([]models.ProjectAssignment, error) {
	if err := access.Require(actor.Role, access.CapRespondAssignment); err != nil {
		return nil, err
	}
	return m.store.Assignments().ListByCreator(ctx, actor.ID)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
