package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
)

type ScriptStore struct {
	q querier
}

const scriptColumns = `
	id, project_id, assignment_id, version, type, hooks, body,
	filming_instructions, reasoning, approval_status, approved_by, feedback, created_at`

func scanScript(row pgx.Row) (*models.Script, error) {
	var sc models.Script
	if err := row.Scan(
		&sc.ID,
		&sc.ProjectID,
		&sc.AssignmentID,
		&sc.Version,
		&sc.Type,
		&sc.Hooks,
		&sc.Body,
		&sc.FilmingInstructions,
		&sc.Reasoning,
		&sc.ApprovalStatus,
		&sc.ApprovedBy,
		&sc.Feedback,
		&sc.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *ScriptStore) Create(ctx context.Context, sc *models.Script) error {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	sc.Hooks = nonNil(sc.Hooks)

	query := `
		INSERT INTO scripts (
			id, project_id, assignment_id, version, type, hooks, body,
			filming_instructions, reasoning, approval_status, approved_by, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, clock_timestamp())
		RETURNING created_at`

	err := s.q.QueryRow(ctx, query,
		sc.ID, sc.ProjectID, sc.AssignmentID, sc.Version, string(sc.Type), sc.Hooks, sc.Body,
		sc.FilmingInstructions, sc.Reasoning, string(sc.ApprovalStatus), sc.ApprovedBy, sc.Feedback,
	).Scan(&sc.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("script version %d of project %s: %w", sc.Version, sc.ProjectID, apperrors.ErrConflict)
		}
		return fmt.Errorf("insert script: %w", err)
	}
	return nil
}

func (s *ScriptStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Script, error) {
	sc, err := scanScript(s.q.QueryRow(ctx, `SELECT `+scriptColumns+` FROM scripts WHERE id = $1`, id))
	if err != nil {
		return nil, noRows(err, "script", id)
	}
	return sc, nil
}

// NextVersion is only race-free while the caller holds the project row lock;
// the unique (project_id, version) constraint catches anyone who doesn't.
func (s *ScriptStore) NextVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	var v int
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM scripts WHERE project_id = $1`,
		projectID).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next script version: %w", err)
	}
	return v, nil
}

func (s *ScriptStore) UpdateReview(ctx context.Context, id uuid.UUID, r repository.ScriptReview) (*models.Script, error) {
	query := `
		UPDATE scripts
		SET approval_status = $2, approved_by = $3, feedback = $4
		WHERE id = $1
		RETURNING ` + scriptColumns

	sc, err := scanScript(s.q.QueryRow(ctx, query, id, string(r.Status), r.ApprovedBy, r.Feedback))
	if err != nil {
		return nil, noRows(err, "script", id)
	}
	return sc, nil
}

func (s *ScriptStore) list(ctx context.Context, query string, args ...any) ([]models.Script, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	defer rows.Close()

	scripts := make([]models.Script, 0)
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, *sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

func (s *ScriptStore) ListByProject(ctx context.Context, projectID uuid.UUID, status *models.ApprovalStatus) ([]models.Script, error) {
	if status == nil {
		return s.list(ctx,
			`SELECT `+scriptColumns+` FROM scripts WHERE project_id = $1 ORDER BY created_at DESC, version DESC`,
			projectID)
	}
	return s.list(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE project_id = $1 AND approval_status = $2 ORDER BY created_at DESC, version DESC`,
		projectID, string(*status))
}

func (s *ScriptStore) ListPending(ctx context.Context) ([]models.Script, error) {
	return s.list(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE approval_status = 'pending' ORDER BY created_at ASC, version ASC`)
}
