package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
)

// TransitionStore is the status audit trail. Rows are only ever inserted.
type TransitionStore struct {
	q querier
}

func (s *TransitionStore) Append(ctx context.Context, t *models.StatusTransition) error {
	query := `
		INSERT INTO status_transitions (project_id, from_status, to_status, actor_id, source, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		t.ProjectID, string(t.From), string(t.To), t.ActorID, string(t.Source), t.Reason,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status transition: %w", err)
	}
	return nil
}

func (s *TransitionStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.StatusTransition, error) {
	query := `
		SELECT id, project_id, from_status, to_status, actor_id, source, reason, created_at
		FROM status_transitions
		WHERE project_id = $1
		ORDER BY id ASC`

	rows, err := s.q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list status transitions: %w", err)
	}
	defer rows.Close()

	out := make([]models.StatusTransition, 0)
	for rows.Next() {
		var t models.StatusTransition
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.From, &t.To, &t.ActorID, &t.Source, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status transition: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status transitions: %w", err)
	}
	return out, nil
}
