package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/ugcflow/internal/models"
)

type ProjectStore struct {
	q querier
}

const projectColumns = `
	id, client_id, status, title, campaign_objective, platforms, budget_tier,
	num_videos, video_styles, key_messaging, dos, donts, reference_video_urls,
	timeline, deadline, creator_notes, created_at, updated_at`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.Status,
		&p.Title,
		&p.CampaignObjective,
		&p.Platforms,
		&p.BudgetTier,
		&p.NumVideos,
		&p.VideoStyles,
		&p.KeyMessaging,
		&p.Dos,
		&p.Donts,
		&p.ReferenceVideoURLs,
		&p.Timeline,
		&p.Deadline,
		&p.CreatorNotes,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProjectStore) Create(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Platforms = nonNil(p.Platforms)
	p.VideoStyles = nonNil(p.VideoStyles)
	p.KeyMessaging = nonNil(p.KeyMessaging)
	p.Dos = nonNil(p.Dos)
	p.Donts = nonNil(p.Donts)
	p.ReferenceVideoURLs = nonNil(p.ReferenceVideoURLs)

	query := `
		INSERT INTO projects (
			id, client_id, status, title, campaign_objective, platforms, budget_tier,
			num_videos, video_styles, key_messaging, dos, donts, reference_video_urls,
			timeline, deadline, creator_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
		RETURNING created_at, updated_at`

	err := s.q.QueryRow(ctx, query,
		p.ID, p.ClientID, string(p.Status), p.Title, p.CampaignObjective, p.Platforms, p.BudgetTier,
		p.NumVideos, p.VideoStyles, p.KeyMessaging, p.Dos, p.Donts, p.ReferenceVideoURLs,
		p.Timeline, p.Deadline, p.CreatorNotes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "project", id)
	}
	return p, nil
}

// GetForUpdate takes a row lock that blocks other status writers until the
// surrounding transaction ends. Outside a transaction the lock is released
// immediately, so callers always use it through InTx.
func (s *ProjectStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 FOR UPDATE`

	p, err := scanProject(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, noRows(err, "project", id)
	}
	return p, nil
}

func (s *ProjectStore) SetStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE projects SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("set project status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return noRows(pgx.ErrNoRows, "project", id)
	}
	return nil
}

func (s *ProjectStore) list(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

func (s *ProjectStore) List(ctx context.Context, clientID *uuid.UUID) ([]models.Project, error) {
	if clientID == nil {
		return s.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	}
	return s.list(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE client_id = $1 ORDER BY created_at DESC`,
		*clientID)
}

func (s *ProjectStore) ListForCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id IN (
			SELECT project_id FROM project_assignments
			WHERE creator_id = $1 AND status <> 'declined'
		)
		ORDER BY created_at DESC`
	return s.list(ctx, query, creatorID)
}

func (s *ProjectStore) ListByStatus(ctx context.Context, statuses []models.ProjectStatus) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE status = ANY($1)
		ORDER BY created_at ASC`
	return s.list(ctx, query, toStrings(statuses))
}

func (s *ProjectStore) CountByClient(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.q.Query(ctx, `SELECT client_id, count(*) FROM projects GROUP BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("count projects by client: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id uuid.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan project count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project counts: %w", err)
	}
	return counts, nil
}

func (s *ProjectStore) CountByStatus(ctx context.Context, statuses []models.ProjectStatus) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM projects WHERE status = ANY($1)`,
		toStrings(statuses)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count projects by status: %w", err)
	}
	return n, nil
}

func (s *ProjectStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRow(ctx, `SELECT count(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}
