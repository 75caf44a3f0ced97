package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	awaitingReview = []models.ProjectStatus{
		models.StatusBriefSubmitted,
		models.StatusScriptsInReview,
		models.StatusVideoInReview,
	}
	reviewQueueStatuses = []models.ProjectStatus{
		models.StatusBriefSubmitted,
		models.StatusScriptsInReview,
		models.StatusScriptReview,
		models.StatusVideoInReview,
		models.StatusVideoUploaded,
	}
)

// Dashboard assembles the read-only landing pages of each role.
type Dashboard struct {
	store repository.Store
}

func NewDashboard(store repository.Store) *Dashboard {
	return &Dashboard{store: store}
}

// AdminStats runs its four counters concurrently.
func (d *Dashboard) AdminStats(ctx context.Context, actor models.Actor) (*models.AdminStats, error) {
	if err := access.Require(actor.Role, access.CapViewDashboards); err != nil {
		return nil, err
	}

	var stats models.AdminStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Projects, err = d.store.Projects().Count(gctx)
		return err
	})
	g.Go(func() error {
		clients, err := d.store.Profiles().ListByRole(gctx, models.RoleClient)
		stats.Clients = len(clients)
		return err
	})
	g.Go(func() error {
		creators, err := d.store.Profiles().ListByRole(gctx, models.RoleCreator)
		stats.Creators = len(creators)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingReviews, err = d.store.Projects().CountByStatus(gctx, awaitingReview)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ReviewQueue lists everything waiting on an admin, oldest first.
func (d *Dashboard) ReviewQueue(ctx context.Context, actor models.Actor) (*models.ReviewQueue, error) {
	if err := access.Require(actor.Role, access.CapViewDashboards); err != nil {
		return nil, err
	}

	var q models.ReviewQueue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		q.Projects, err = d.store.Projects().ListByStatus(gctx, reviewQueueStatuses)
		return err
	})
	g.Go(func() (err error) {
		q.Scripts, err = d.store.Scripts().ListPending(gctx)
		return err
	})
	g.Go(func() (err error) {
		q.Videos, err = d.store.Videos().ListPendingAdmin(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Clients lists client profiles with their project counts, newest first.
func (d *Dashboard) Clients(ctx context.Context, actor models.Actor) ([]models.ClientSummary, error) {
	if err := access.Require(actor.Role, access.CapViewDashboards); err != nil {
		return nil, err
	}
	profiles, err := d.store.Profiles().ListByRole(ctx, models.RoleClient)
	if err != nil {
		return nil, err
	}
	counts, err := d.store.Projects().CountByClient(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ClientSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, models.ClientSummary{Profile: p, ProjectCount: counts[p.ID]})
	}
	return out, nil
}

func (d *Dashboard) Creators(ctx context.Context, actor models.Actor) ([]models.Profile, error) {
	if err := access.Require(actor.Role, access.CapViewDashboards); err != nil {
		return nil, err
	}
	return d.store.Profiles().ListByRole(ctx, models.RoleCreator)
}

// ClientHome is the client landing page.
type ClientHome struct {
	Projects       []models.Project `json:"projects"`
	ApprovedVideos int              `json:"approved_videos"`
}

func (d *Dashboard) Client(ctx context.Context, actor models.Actor) (*ClientHome, error) {
	if actor.Role != models.RoleClient {
		return nil, apperrors.ErrForbidden
	}
	id := actor.ID
	projects, err := d.store.Projects().List(ctx, &id)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	approved, err := d.store.Videos().CountAdminApproved(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &ClientHome{Projects: projects, ApprovedVideos: approved}, nil
}

// CreatorHome is the creator landing page.
type CreatorHome struct {
	Assignments []models.ProjectAssignment `json:"assignments"`
}

func (d *Dashboard) Creator(ctx context.Context, actor models.Actor) (*CreatorHome, error) {
	if actor.Role != models.RoleCreator {
		return nil, apperrors.ErrForbidden
	}
	assignments, err := d.store.Assignments().ListByCreator(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return &CreatorHome{Assignments: assignments}, nil
}
