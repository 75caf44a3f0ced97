package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-that-is-long-enough"

func TestToken_RoundTrip(t *testing.T) {
	id := uuid.New()
	token, issued, err := GenerateToken(id, "a@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestToken_Rejected(t *testing.T) {
	token, _, err := GenerateToken(uuid.New(), "a@example.com", testSecret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, "another-secret")
	assert.Error(t, err)

	expired, _, err := GenerateToken(uuid.New(), "a@example.com", testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, testSecret)
	assert.Error(t, err)

	_, err = ParseToken("not.a.token", testSecret)
	assert.Error(t, err)
}

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store, NewMemoryRevoker(), testSecret, time.Hour, zap.NewNop()), store
}

func TestService_SignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	company := "Acme"
	session, err := svc.SignUp(ctx, SignUpInput{
		Email: " Alice@Example.com ", Password: "password1", FullName: "Alice",
		Role: models.RoleClient, CompanyName: &company,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.Profile.Email)
	assert.Equal(t, models.RoleClient, session.Profile.Role)

	claims, err := svc.CurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Profile.ID, claims.UserID)

	_, err = svc.SignIn(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	again, err := svc.SignIn(ctx, "ALICE@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, session.Token))
	_, err = svc.CurrentUser(ctx, session.Token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.CurrentUser(ctx, again.Token)
	assert.NoError(t, err, "signing out one session leaves the others")
}

func TestService_SignUpValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		name string
		in   SignUpInput
	}{
		{"admin self-registration", SignUpInput{Email: "a@example.com", Password: "password1", Role: models.RoleAdmin}},
		{"unknown role", SignUpInput{Email: "a@example.com", Password: "password1", Role: "owner"}},
		{"bad email", SignUpInput{Email: "not-an-email", Password: "password1", Role: models.RoleClient}},
		{"short password", SignUpInput{Email: "a@example.com", Password: "short", Role: models.RoleClient}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(ctx, tt.in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	_, err := svc.SignUp(ctx, SignUpInput{Email: "dup@example.com", Password: "password1", Role: models.RoleCreator})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, SignUpInput{Email: "DUP@example.com", Password: "password1", Role: models.RoleClient})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestService_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	p, err := svc.CreateAdmin(ctx, "ops@example.com", "password1", "Ops")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)

	session, err := svc.SignIn(ctx, "ops@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.Profile.Role)
}

func TestResolver_BootstrapsMissingProfile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	resolver := NewResolver(store, zap.NewNop())

	user := &models.AuthUser{
		ID:       uuid.New(),
		Email:    "late@example.com",
		Metadata: models.UserMetadata{FullName: "Late", Role: models.RoleCreator},
	}
	require.NoError(t, store.AuthUsers().Create(ctx, user))

	p, err := resolver.Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCreator, p.Role)
	assert.Equal(t, "Late", p.FullName)

	stored, err := store.Profiles().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestResolver_UnknownRoleDefaultsToClient(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user := &models.AuthUser{ID: uuid.New(), Email: "x@example.com", Metadata: models.UserMetadata{Role: "owner"}}
	require.NoError(t, store.AuthUsers().Create(ctx, user))

	p, err := NewResolver(store, zap.NewNop()).Resolve(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, p.Role)
}

func TestResolver_BootstrapFailure(t *testing.T) {
	id := uuid.New()
	_, err := NewResolver(memory.New(), zap.NewNop()).Resolve(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProfileMissing)

	var boot *apperrors.ProfileBootstrapError
	require.ErrorAs(t, err, &boot)
	assert.Equal(t, id.String()[:8], boot.IdentityPrefix)
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker()

	require.NoError(t, r.Revoke(ctx, "live", time.Now().Add(time.Hour)))
	require.NoError(t, r.Revoke(ctx, "stale", time.Now().Add(-time.Second)))

	revoked, err := r.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked, "an expired token needs no revocation entry")

	revoked, err = r.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}
