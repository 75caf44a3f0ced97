package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
)

type AssignmentStore struct {
	q querier
}

const assignmentColumns = `id, project_id, creator_id, assigned_by, status, created_at, updated_at`

func scanAssignment(row pgx.Row) (*models.ProjectAssignment, error) {
	var a models.ProjectAssignment
	if err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.CreatorID,
		&a.AssignedBy,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create relies on the partial unique index over (project_id, creator_id)
// WHERE status <> 'declined'. Two concurrent assigns of the same creator
// race on the index, not on a prior SELECT, so exactly one wins.
func (s *AssignmentStore) Create(ctx context.Context, a *models.ProjectAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO project_assignments (id, project_id, creator_id, assigned_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`

	err := s.q.QueryRow(ctx, query, a.ID, a.ProjectID, a.CreatorID, a.AssignedBy, string(a.Status)).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintActiveAssignment {
			return fmt.Errorf("project %s creator %s: %w", a.ProjectID, a.CreatorID, apperrors.ErrAlreadyAssigned)
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *AssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM project_assignments WHERE id = $1`

	a, err := scanAssignment(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "assignment", id)
	}
	return a, nil
}

// UpdateStatus is a conditional write: the WHERE clause carries the allowed
// source statuses, so a concurrent change makes it affect zero rows.
func (s *AssignmentStore) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus) (bool, error) {
	query := `
		UPDATE project_assignments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`

	tag, err := s.q.Exec(ctx, query, id, string(to), toStrings(from))
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == constraintActiveAssignment {
			return false, fmt.Errorf("assignment %s: %w", id, apperrors.ErrAlreadyAssigned)
		}
		return false, fmt.Errorf("update assignment status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Distinguish "wrong status" from "no such row".
	var exists bool
	if err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_assignments WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	if !exists {
		return false, noRows(pgx.ErrNoRows, "assignment", id)
	}
	return false, nil
}

func (s *AssignmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM project_assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return noRows(pgx.ErrNoRows, "assignment", id)
	}
	return nil
}

func (s *AssignmentStore) list(ctx context.Context, query string, args ...any) ([]models.ProjectAssignment, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]models.ProjectAssignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return assignments, nil
}

func (s *AssignmentStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectAssignment, error) {
	return s.list(ctx,
		`SELECT `+assignmentColumns+` FROM project_assignments WHERE project_id = $1 ORDER BY created_at ASC`,
		projectID)
}

func (s *AssignmentStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.ProjectAssignment, error) {
	return s.list(ctx,
		`SELECT `+assignmentColumns+` FROM project_assignments WHERE creator_id = $1 ORDER BY created_at DESC`,
		creatorID)
}

func (s *AssignmentStore) HasActive(ctx context.Context, projectID, creatorID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM project_assignments
			WHERE project_id = $1 AND creator_id = $2 AND status <> 'declined'
		)`

	var exists bool
	if err := s.q.QueryRow(ctx, query, projectID, creatorID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return exists, nil
}

func (s *AssignmentStore) CountActive(ctx context.Context, projectID uuid.UUID) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM project_assignments WHERE project_id = $1 AND status <> 'declined'`,
		projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return n, nil
}
