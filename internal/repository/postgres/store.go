package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/repository"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx. Every
// store runs its SQL through one, so the same code serves both direct calls
// and calls inside InTx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.Store on a pgx pool.
type Store struct {
	repos
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{repos: repos{q: pool}, pool: pool}
}

// InTx runs fn inside a single transaction. Stores handed to fn share the
// transaction; row locks taken by GetForUpdate are held until commit.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repositories) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(repos{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type repos struct {
	q querier
}

func (r repos) AuthUsers() repository.AuthUserRepository     { return &AuthUserStore{q: r.q} }
func (r repos) Profiles() repository.ProfileRepository       { return &ProfileStore{q: r.q} }
func (r repos) Projects() repository.ProjectRepository       { return &ProjectStore{q: r.q} }
func (r repos) Assignments() repository.AssignmentRepository { return &AssignmentStore{q: r.q} }
func (r repos) Scripts() repository.ScriptRepository         { return &ScriptStore{q: r.q} }
func (r repos) Videos() repository.VideoRepository           { return &VideoStore{q: r.q} }
func (r repos) Messages() repository.MessageRepository       { return &MessageStore{q: r.q} }
func (r repos) Transitions() repository.TransitionRepository { return &TransitionStore{q: r.q} }

const (
	codeUniqueViolation = "23505"

	constraintActiveAssignment = "project_assignments_active_uniq"
)

// uniqueViolation returns the violated constraint name, or "" if err is not
// a unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// noRows turns pgx.ErrNoRows into a wrapped apperrors.ErrNotFound.
func noRows(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, apperrors.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// nonNil keeps NOT NULL text[] columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
