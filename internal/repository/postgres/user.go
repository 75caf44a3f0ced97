package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
)

// AuthUserStore holds credentials. Metadata is a jsonb column so the
// registration form can grow without a migration.
type AuthUserStore struct {
	q querier
}

// Create inserts a new credential row. Postgres generates the UUID and
// timestamp unless the caller already set an ID.
func (s *AuthUserStore) Create(ctx context.Context, u *models.AuthUser) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(u.Email)

	query := `
		INSERT INTO auth_users (id, email, password_hash, metadata, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at`

	err := s.q.QueryRow(ctx, query, u.ID, u.Email, u.PasswordHash, u.Metadata).Scan(&u.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("auth user %s: %w", u.Email, apperrors.ErrConflict)
		}
		return fmt.Errorf("insert auth user: %w", err)
	}
	return nil
}

func (s *AuthUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.AuthUser, error) {
	query := `
		SELECT id, email, password_hash, metadata, created_at
		FROM auth_users
		WHERE id = $1`

	var u models.AuthUser
	err := s.q.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Metadata,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, noRows(err, "auth user", id)
	}
	return &u, nil
}

// GetByEmail looks up a credential by email. Used for login: you type your
// email, we find you.
func (s *AuthUserStore) GetByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	query := `
		SELECT id, email, password_hash, metadata, created_at
		FROM auth_users
		WHERE email = $1`

	var u models.AuthUser
	err := s.q.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Metadata,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, noRows(err, "auth user", email)
	}
	return &u, nil
}

type ProfileStore struct {
	q querier
}

func (s *ProfileStore) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, role, company_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at`

	err := s.q.QueryRow(ctx, query, p.ID, p.Email, p.FullName, string(p.Role), p.CompanyName).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("profile %s: %w", p.ID, apperrors.ErrConflict)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, email, full_name, role, company_name, created_at, updated_at
		FROM profiles
		WHERE id = $1`

	var p models.Profile
	err := s.q.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.CompanyName,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, noRows(err, "profile", id)
	}
	return &p, nil
}

func (s *ProfileStore) ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	query := `
		SELECT id, email, full_name, role, company_name, created_at, updated_at
		FROM profiles
		WHERE role = $1
		ORDER BY created_at DESC`

	rows, err := s.q.Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(
			&p.ID,
			&p.Email,
			&p.FullName,
			&p.Role,
			&p.CompanyName,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}
