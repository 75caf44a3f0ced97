package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// BriefListener is told when a project enters brief_submitted. Script
// generation subscribes to it.
type BriefListener interface {
	BriefSubmitted(projectID uuid.UUID)
}

// ProjectService covers brief intake and the role-scoped project queries.
type ProjectService struct {
	store    repository.Store
	listener BriefListener
	logger   *zap.Logger
}

func NewProjectService(store repository.Store, listener BriefListener, logger *zap.Logger) *ProjectService {
	return &ProjectService{store: store, listener: listener, logger: logger.Named("projects")}
}

// BriefInput is what a client fills in on the brief form.
type BriefInput struct {
	Title              string
	CampaignObjective  string
	Platforms          []string
	BudgetTier         *string
	NumVideos          int
	VideoStyles        []string
	KeyMessaging       []string
	Dos                []string
	Donts              []string
	ReferenceVideoURLs []string
	Timeline           *string
	Deadline           *time.Time
	CreatorNotes       *string
}

func (in BriefInput) brief() (models.Brief, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Brief{}, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	n := in.NumVideos
	if n == 0 {
		n = 1
	}
	if n < 1 {
		return models.Brief{}, fmt.Errorf("%w: num_videos must be at least 1", apperrors.ErrValidation)
	}
	return models.Brief{
		Title:              title,
		CampaignObjective:  strings.TrimSpace(in.CampaignObjective),
		Platforms:          trimAll(in.Platforms),
		BudgetTier:         nonEmpty(in.BudgetTier),
		NumVideos:          n,
		VideoStyles:        trimAll(in.VideoStyles),
		KeyMessaging:       trimAll(in.KeyMessaging),
		Dos:                trimAll(in.Dos),
		Donts:              trimAll(in.Donts),
		ReferenceVideoURLs: trimAll(in.ReferenceVideoURLs),
		Timeline:           nonEmpty(in.Timeline),
		Deadline:           in.Deadline,
		CreatorNotes:       nonEmpty(in.CreatorNotes),
	}, nil
}

// SubmitBrief creates a project owned by the calling client, in
// brief_submitted, or in draft when asDraft is set.
func (s *ProjectService) SubmitBrief(ctx context.Context, actor models.Actor, in BriefInput, asDraft bool) (*models.Project, error) {
	brief, err := in.brief()
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor.Role, access.CapSubmitBrief); err != nil {
		return nil, err
	}

	status := models.StatusBriefSubmitted
	if asDraft {
		status = models.StatusDraft
	}
	p := &models.Project{
		ClientID: actor.ID,
		Status:   status,
		Brief:    brief,
	}
	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("brief created",
		zap.String("project_id", p.ID.String()),
		zap.String("client_id", actor.ID.String()),
		zap.String("status", string(p.Status)),
	)
	if p.Status == models.StatusBriefSubmitted {
		s.notify(p.ID)
	}
	return p, nil
}

// Submit moves the caller's draft into brief_submitted.
func (s *ProjectService) Submit(ctx context.Context, actor models.Actor, projectID uuid.UUID) (*models.Project, error) {
	if err := access.Require(actor.Role, access.CapSubmitBrief); err != nil {
		return nil, err
	}

	var project *models.Project
	err := s.store.InTx(ctx, func(tx repository.Repositories) error {
		p, err := tx.Projects().GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.ClientID != actor.ID {
			return fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		}
		next := OnBriefSubmitted(p.Status)
		if !next.Move {
			return fmt.Errorf("project %s is %s, not draft: %w", projectID, p.Status, apperrors.ErrInvalidTransition)
		}
		if err := apply(ctx, tx, p, next, change{actor: actor, source: models.SourceBrief}); err != nil {
			return err
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(project.ID)
	return project, nil
}

func (s *ProjectService) notify(projectID uuid.UUID) {
	if s.listener != nil {
		s.listener.BriefSubmitted(projectID)
	}
}

// CanView reports whether actor may see the project: admins see all, the
// owning client sees its own, a creator sees projects it holds an active
// assignment on.
func CanView(ctx context.Context, r repository.Repositories, actor models.Actor, p *models.Project) (bool, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleClient:
		return p.ClientID == actor.ID, nil
	case models.RoleCreator:
		return r.Assignments().HasActive(ctx, p.ID, actor.ID)
	}
	return false, nil
}

// visible loads a project the actor may see. Anything else is ErrNotFound,
// so callers cannot probe for ids they do not own.
func visible(ctx context.Context, r repository.Repositories, actor models.Actor, projectID uuid.UUID) (*models.Project, error) {
	p, err := r.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := CanView(ctx, r, actor, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, actor models.Actor, projectID uuid.UUID) (*models.Project, error) {
	return visible(ctx, s.store, actor, projectID)
}

// List returns the projects the actor may see, newest first.
func (s *ProjectService) List(ctx context.Context, actor models.Actor) ([]models.Project, error) {
	switch actor.Role {
	case models.RoleAdmin:
		return s.store.Projects().List(ctx, nil)
	case models.RoleClient:
		id := actor.ID
		return s.store.Projects().List(ctx, &id)
	case models.RoleCreator:
		return s.store.Projects().ListForCreator(ctx, actor.ID)
	}
	return nil, fmt.Errorf("%w: role %q", apperrors.ErrForbidden, actor.Role)
}

// Scripts lists a project's scripts newest first. Clients only see approved
// ones.
func (s *ProjectService) Scripts(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.Script, error) {
	if _, err := visible(ctx, s.store, actor, projectID); err != nil {
		return nil, err
	}
	var filter *models.ApprovalStatus
	if actor.Role == models.RoleClient {
		approved := models.ApprovalApproved
		filter = &approved
	}
	return s.store.Scripts().ListByProject(ctx, projectID, filter)
}

// Videos lists a project's videos newest first. Clients only see cuts the
// admin has approved.
func (s *ProjectService) Videos(ctx context.Context, actor models.Actor, projectID uuid.UUID) ([]models.Video, error) {
	if _, err := visible(ctx, s.store, actor, projectID); err != nil {
		return nil, err
	}
	videos, err := s.store.Videos().ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleClient {
		return videos, nil
	}
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if v.AdminApprovalStatus == models.ApprovalApproved {
			out = append(out, v)
		}
	}
	return out, nil
}
