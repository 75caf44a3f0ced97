package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// dummyHash is compared against when the email is unknown, so sign-in
// takes the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// Service owns credentials and sessions.
type Service struct {
	store   repository.Store
	revoker Revoker
	secret  string
	ttl     time.Duration
	logger  *zap.Logger
}

func NewService(store repository.Store, revoker Revoker, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		revoker: revoker,
		secret:  secret,
		ttl:     ttl,
		logger:  logger.Named("auth"),
	}
}

type SignUpInput struct {
	Email       string
	Password    string
	FullName    string
	Role        models.Role
	CompanyName *string
}

// Session is what sign-up and sign-in hand back.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *models.Profile `json:"profile"`
}

// SignUp registers a client or creator. Admins are created out of band with
// CreateAdmin.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if in.Role != models.RoleClient && in.Role != models.RoleCreator {
		return nil, fmt.Errorf("%w: role must be client or creator", apperrors.ErrValidation)
	}
	profile, err := s.register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(profile)
}

// CreateAdmin registers an admin account. Only ugcctl calls it.
func (s *Service) CreateAdmin(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	return s.register(ctx, SignUpInput{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     models.RoleAdmin,
	})
}

// register writes the credential and its profile in one transaction.
func (s *Service) register(ctx context.Context, in SignUpInput) (*models.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", apperrors.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperrors.ErrValidation, minPasswordLen)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", apperrors.ErrValidation, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	fullName := strings.TrimSpace(in.FullName)
	user := &models.AuthUser{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata: models.UserMetadata{
			FullName:    fullName,
			Role:        in.Role,
			CompanyName: in.CompanyName,
		},
	}
	profile := &models.Profile{
		ID:          user.ID,
		Email:       email,
		FullName:    fullName,
		Role:        in.Role,
		CompanyName: in.CompanyName,
	}

	err = s.store.InTx(ctx, func(tx repository.Repositories) error {
		if err := tx.AuthUsers().Create(ctx, user); err != nil {
			return err
		}
		return tx.Profiles().Create(ctx, profile)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(in.Role)),
	)
	return profile, nil
}

// SignIn checks credentials. Any mismatch returns ErrInvalidCredentials so
// callers cannot tell an unknown email from a wrong password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.AuthUsers().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	profile, err := s.store.Profiles().GetByID(ctx, user.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if profile == nil {
		// The resolver bootstraps it on the first authenticated request.
		profile = &models.Profile{ID: user.ID, Email: user.Email}
	}
	return s.issue(profile)
}

func (s *Service) issue(profile *models.Profile) (*Session, error) {
	token, claims, err := GenerateToken(profile.ID, profile.Email, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile:   profile,
	}, nil
}

// SignOut revokes the token until it expires.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.logger.Debug("session revoked", zap.String("user_id", claims.UserID.String()))
	return nil
}

// CurrentUser validates a token and checks it was not signed out.
func (s *Service) CurrentUser(ctx context.Context, token string) (*Claims, error) {
	claims, err := ParseToken(token, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: session signed out", apperrors.ErrUnauthenticated)
	}
	return claims, nil
}
