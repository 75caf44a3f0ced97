package access

import (
	"testing"

	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAreaOf(t *testing.T) {
	tests := []struct {
		path string
		want Area
	}{
		{"/", AreaPublic},
		{"/login", AreaAuth},
		{"/register", AreaAuth},
		{"/admin", AreaAdmin},
		{"/admin/projects/1", AreaAdmin},
		{"/administrator", AreaOther},
		{"/client/projects", AreaClient},
		{"/creator", AreaCreator},
		{"/settings", AreaOther},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, AreaOf(tt.path))
		})
	}
}

func TestEvaluate(t *testing.T) {
	anon := Identity{}
	client := Identity{Authenticated: true, Role: models.RoleClient}
	creator := Identity{Authenticated: true, Role: models.RoleCreator}
	admin := Identity{Authenticated: true, Role: models.RoleAdmin}
	noProfile := Identity{Authenticated: true}

	tests := []struct {
		name     string
		id       Identity
		path     string
		allow    bool
		redirect string
		reason   error
	}{
		{"anon home", anon, "/", true, "", nil},
		{"anon login", anon, "/login", true, "", nil},
		{"anon register", anon, "/register", true, "", nil},
		{"anon admin", anon, "/admin/projects/42", false, "/login", apperrors.ErrUnauthenticated},
		{"anon other", anon, "/settings", false, "/login", apperrors.ErrUnauthenticated},
		{"client on own area", client, "/client/projects", true, "", nil},
		{"client on admin", client, "/admin/projects/42", false, "/client", apperrors.ErrForbidden},
		{"creator on client", creator, "/client", false, "/creator", apperrors.ErrForbidden},
		{"admin on creator", admin, "/creator/x", false, "/admin", apperrors.ErrForbidden},
		{"signed-in on login", creator, "/login", false, "/creator", nil},
		{"signed-in on register", admin, "/register", false, "/admin", nil},
		{"signed-in on home", client, "/", true, "", nil},
		{"missing profile passes", noProfile, "/admin", true, "", nil},
		{"missing profile stays on login", noProfile, "/login", true, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.id, tt.path)
			assert.Equal(t, tt.allow, d.Allow)
			assert.Equal(t, tt.redirect, d.RedirectTo)
			if tt.reason == nil {
				assert.NoError(t, d.Reason)
			} else {
				assert.ErrorIs(t, d.Reason, tt.reason)
			}
		})
	}
}

// Every role area rejects every other role, and sends it to its own home.
func TestEvaluate_RoleAreasAreExclusive(t *testing.T) {
	for _, caller := range models.AllRoles {
		for _, area := range models.AllRoles {
			d := Evaluate(Identity{Authenticated: true, Role: caller}, HomePath(area)+"/page")
			if caller == area {
				assert.True(t, d.Allow, "%s on %s", caller, area)
				continue
			}
			assert.False(t, d.Allow, "%s on %s", caller, area)
			assert.Equal(t, HomePath(caller), d.RedirectTo)
			assert.ErrorIs(t, d.Reason, apperrors.ErrForbidden)
		}
	}
}
