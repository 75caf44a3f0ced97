package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
)

type VideoStore struct {
	q querier
}

const videoColumns = `
	id, project_id, assignment_id, script_id, video_url, thumbnail_url, duration_seconds,
	version, is_final, admin_approval_status, admin_feedback,
	client_approval_status, client_feedback, created_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	if err := row.Scan(
		&v.ID,
		&v.ProjectID,
		&v.AssignmentID,
		&v.ScriptID,
		&v.VideoURL,
		&v.ThumbnailURL,
		&v.DurationSeconds,
		&v.Version,
		&v.IsFinal,
		&v.AdminApprovalStatus,
		&v.AdminFeedback,
		&v.ClientApprovalStatus,
		&v.ClientFeedback,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *VideoStore) Create(ctx context.Context, v *models.Video) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	query := `
		INSERT INTO videos (
			id, project_id, assignment_id, script_id, video_url, thumbnail_url, duration_seconds,
			version, is_final, admin_approval_status, admin_feedback,
			client_approval_status, client_feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, clock_timestamp())
		RETURNING created_at`

	err := s.q.QueryRow(ctx, query,
		v.ID, v.ProjectID, v.AssignmentID, v.ScriptID, v.VideoURL, v.ThumbnailURL, v.DurationSeconds,
		v.Version, v.IsFinal, string(v.AdminApprovalStatus), v.AdminFeedback,
		string(v.ClientApprovalStatus), v.ClientFeedback,
	).Scan(&v.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("video version %d of project %s: %w", v.Version, v.ProjectID, apperrors.ErrConflict)
		}
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

func (s *VideoStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	v, err := scanVideo(s.q.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err != nil {
		return nil, noRows(err, "video", id)
	}
	return v, nil
}

func (s *VideoStore) NextVersion(ctx context.Context, projectID uuid.UUID) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM videos WHERE project_id = $1`,
		projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next video version: %w", err)
	}
	return n, nil
}

func (s *VideoStore) UpdateAdminReview(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string) (*models.Video, error) {
	query := `
		UPDATE videos
		SET admin_approval_status = $2, admin_feedback = $3
		WHERE id = $1
		RETURNING ` + videoColumns

	v, err := scanVideo(s.q.QueryRow(ctx, query, id, string(status), feedback))
	if err != nil {
		return nil, noRows(err, "video", id)
	}
	return v, nil
}

// UpdateClientReview checks the admin track in the UPDATE itself. When no
// row comes back it re-reads the video to tell a missing row apart from a
// failed precondition.
func (s *VideoStore) UpdateClientReview(ctx context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string, isFinal bool) (*models.Video, error) {
	query := `
		UPDATE videos
		SET client_approval_status = $2, client_feedback = $3, is_final = $4
		WHERE id = $1 AND admin_approval_status = 'approved'
		RETURNING ` + videoColumns

	v, err := scanVideo(s.q.QueryRow(ctx, query, id, string(status), feedback, isFinal))
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update client review: %w", err)
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("video %s: %w", id, apperrors.ErrNotYetAdminApproved)
}

func (s *VideoStore) list(ctx context.Context, query string, args ...any) ([]models.Video, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

func (s *VideoStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Video, error) {
	return s.list(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE project_id = $1 ORDER BY created_at DESC, version DESC`,
		projectID)
}

func (s *VideoStore) ListPendingAdmin(ctx context.Context) ([]models.Video, error) {
	return s.list(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE admin_approval_status = 'pending' ORDER BY created_at ASC`)
}

func (s *VideoStore) CountAdminApproved(ctx context.Context, projectIDs []uuid.UUID) (int, error) {
	if len(projectIDs) == 0 {
		return 0, nil
	}
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM videos WHERE project_id = ANY($1) AND admin_approval_status = 'approved'`,
		projectIDs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved videos: %w", err)
	}
	return n, nil
}
