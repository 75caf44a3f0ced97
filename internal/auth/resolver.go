package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
)

// Resolver maps an authenticated identity to its profile and role.
type Resolver struct {
	store  repository.Store
	logger *zap.Logger
}

func NewResolver(store repository.Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger.Named("resolver")}
}

// Resolve returns the profile for userID. A missing profile is created from
// the metadata captured at sign-up; if that fails the error is a
// *apperrors.ProfileBootstrapError, which also matches ErrProfileMissing.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := r.store.Profiles().GetByID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}

	p, err = r.bootstrap(ctx, userID)
	if err != nil {
		r.logger.Error("profile bootstrap failed",
			zap.String("identity_prefix", identityPrefix(userID)),
			zap.Error(err),
		)
		return nil, &apperrors.ProfileBootstrapError{
			IdentityPrefix: identityPrefix(userID),
			Err:            err,
		}
	}
	r.logger.Info("profile bootstrapped",
		zap.String("user_id", userID.String()),
		zap.String("role", string(p.Role)),
	)
	return p, nil
}

func (r *Resolver) bootstrap(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := r.store.AuthUsers().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	role := user.Metadata.Role
	if !role.Valid() {
		role = models.RoleClient
	}
	p := &models.Profile{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.Metadata.FullName,
		Role:        role,
		CompanyName: user.Metadata.CompanyName,
	}

	if err := r.store.Profiles().Create(ctx, p); err != nil {
		// A concurrent request may have created it first.
		if errors.Is(err, apperrors.ErrConflict) {
			return r.store.Profiles().GetByID(ctx, userID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return p, nil
}

func identityPrefix(id uuid.UUID) string {
	return id.String()[:8]
}
