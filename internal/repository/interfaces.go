package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
)

// Every method takes ctx first: it carries the request deadline down to the
// store, so a cancelled request stops its queries.
//
// Getters return apperrors.ErrNotFound (wrapped) when the row does not exist,
// never nil, nil.

// AuthUserRepository is the credential store of the auth collaborator.
type AuthUserRepository interface {
	Create(ctx context.Context, user *models.AuthUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuthUser, error)
	// GetByEmail matches the lower-cased email.
	GetByEmail(ctx context.Context, email string) (*models.AuthUser, error)
}

// ProfileRepository holds application profiles.
type ProfileRepository interface {
	// Create inserts a profile. It fails with ErrConflict if one exists.
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// ListByRole returns profiles newest first.
	ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error)
}

// ProjectRepository holds projects and their brief fields.
type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// GetForUpdate reads the project and, inside a transaction, locks the
	// row until commit. Every writer of Status goes through it.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// SetStatus writes status and bumps updated_at.
	SetStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error
	// List returns projects newest first. A nil clientID lists all.
	List(ctx context.Context, clientID *uuid.UUID) ([]models.Project, error)
	// ListForCreator returns projects where the creator holds a non-declined
	// assignment, newest first.
	ListForCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Project, error)
	// ListByStatus returns projects in any of the given statuses, oldest first.
	ListByStatus(ctx context.Context, statuses []models.ProjectStatus) ([]models.Project, error)
	// CountByClient returns project counts keyed by client id.
	CountByClient(ctx context.Context) (map[uuid.UUID]int, error)
	CountByStatus(ctx context.Context, statuses []models.ProjectStatus) (int, error)
	Count(ctx context.Context) (int, error)
}

// AssignmentRepository holds creator assignments.
type AssignmentRepository interface {
	// Create inserts an assignment. It fails with ErrAlreadyAssigned when a
	// non-declined assignment for the same (project, creator) exists; the
	// check is a store constraint, not a prior read.
	Create(ctx context.Context, a *models.ProjectAssignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectAssignment, error)
	// UpdateStatus moves the assignment to `to` only if its current status
	// is one of `from`. It reports whether a row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectAssignment, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.ProjectAssignment, error)
	// HasActive reports whether the creator holds a non-declined assignment
	// on the project.
	HasActive(ctx context.Context, projectID, creatorID uuid.UUID) (bool, error)
	// CountActive counts non-declined assignments on the project.
	CountActive(ctx context.Context, projectID uuid.UUID) (int, error)
}

// ScriptReview is the mutable part of a script.
type ScriptReview struct {
	Status     models.ApprovalStatus
	ApprovedBy *uuid.UUID
	Feedback   *string
}

// ScriptRepository holds script versions.
type ScriptRepository interface {
	// Create inserts a script; the caller sets Version from NextVersion while
	// holding the project lock.
	Create(ctx context.Context, s *models.Script) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Script, error)
	NextVersion(ctx context.Context, projectID uuid.UUID) (int, error)
	UpdateReview(ctx context.Context, id uuid.UUID, r ScriptReview) (*models.Script, error)
	// ListByProject returns scripts newest first, optionally only those with
	// the given approval status.
	ListByProject(ctx context.Context, projectID uuid.UUID, status *models.ApprovalStatus) ([]models.Script, error)
	ListPending(ctx context.Context) ([]models.Script, error)
}

// VideoRepository holds uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, v *models.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
	NextVersion(ctx context.Context, projectID uuid.UUID) (int, error)
	UpdateAdminReview(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string) (*models.Video, error)
	// UpdateClientReview writes the client track only while the admin track
	// is approved, in the same statement. It returns ErrNotYetAdminApproved
	// otherwise and leaves the row unchanged.
	UpdateClientReview(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string, isFinal bool) (*models.Video, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Video, error)
	ListPendingAdmin(ctx context.Context) ([]models.Video, error)
	// CountAdminApproved counts admin-approved videos across the projects.
	CountAdminApproved(ctx context.Context, projectIDs []uuid.UUID) (int, error)
}

// HistoryQuery selects a page of one message partition.
type HistoryQuery struct {
	ProjectID *uuid.UUID
	Channel   models.Channel
	// Participant restricts direct-channel history to messages the user
	// sent or received.
	Participant *uuid.UUID
	// After is an exclusive cursor: the id of the last message already
	// seen. Results resume after that message's (created_at, id) position;
	// 0 starts at the beginning.
	After int64
	// Limit caps the page size; 0 means no limit.
	Limit int
}

// MessageRepository is the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	// History returns messages ordered by (created_at, id) ascending.
	History(ctx context.Context, q HistoryQuery) ([]models.Message, error)
}

// TransitionRepository is the append-only project status audit trail.
type TransitionRepository interface {
	Append(ctx context.Context, t *models.StatusTransition) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.StatusTransition, error)
}

// Repositories gives access to every entity store, either directly or
// inside a transaction.
type Repositories interface {
	AuthUsers() AuthUserRepository
	Profiles() ProfileRepository
	Projects() ProjectRepository
	Assignments() AssignmentRepository
	Scripts() ScriptRepository
	Videos() VideoRepository
	Messages() MessageRepository
	Transitions() TransitionRepository
}

// Store is the persistence handle built once at startup and passed to each
// component.
type Store interface {
	Repositories
	// InTx runs fn in one transaction. fn's writes are committed together
	// when it returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(tx Repositories) error) error
}
