// Package access decides who may reach which part of the application.
//
// Evaluate is the navigation gate: it runs on every page request and either
// lets the request through or names where to send the caller instead.
// Capabilities are the finer-grained, per-role permissions that API routes
// check once before calling into a component.
package access

import (
	"strings"

	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
)

// Area is a role-scoped part of the page tree.
type Area string

const (
	AreaPublic  Area = "public"
	AreaAuth    Area = "auth" // /login and /register
	AreaAdmin   Area = "admin"
	AreaClient  Area = "client"
	AreaCreator Area = "creator"
	AreaOther   Area = "other" // any other page; needs a session, any role
)

const LoginPath = "/login"

// Identity is what the gate knows about the caller. Role is empty when the
// caller is authenticated but has no resolvable profile yet.
type Identity struct {
	Authenticated bool
	Role          models.Role
}

// Decision is the outcome of Evaluate. When Allow is false, RedirectTo is
// set and Reason is ErrUnauthenticated or ErrForbidden; a redirect away from
// /login for a signed-in user carries no Reason.
type Decision struct {
	Allow      bool
	RedirectTo string
	Reason     error
}

// HomePath is the landing page of a role's area.
func HomePath(role models.Role) string {
	return "/" + string(role)
}

// AreaOf classifies a request path.
func AreaOf(path string) Area {
	switch path {
	case "", "/":
		return AreaPublic
	case LoginPath, "/register":
		return AreaAuth
	}
	for _, role := range models.AllRoles {
		prefix := HomePath(role)
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return Area(role)
		}
	}
	return AreaOther
}

// Evaluate decides a navigation request.
//
//   - Signed-in callers with a known role never see /login or /register;
//     they go to their home.
//   - Anonymous callers reach only public pages and the auth pages.
//   - A role area is reachable only by that role; others go home.
//   - A signed-in caller whose role cannot be resolved is let through so the
//     page layer can bootstrap the profile before denying.
func Evaluate(id Identity, path string) Decision {
	area := AreaOf(path)

	switch area {
	case AreaPublic:
		return Decision{Allow: true}
	case AreaAuth:
		if id.Authenticated && id.Role.Valid() {
			return Decision{RedirectTo: HomePath(id.Role)}
		}
		return Decision{Allow: true}
	}

	if !id.Authenticated {
		return Decision{RedirectTo: LoginPath, Reason: apperrors.ErrUnauthenticated}
	}
	if !id.Role.Valid() {
		return Decision{Allow: true}
	}
	if area == AreaOther || Area(id.Role) == area {
		return Decision{Allow: true}
	}
	return Decision{RedirectTo: HomePath(id.Role), Reason: apperrors.ErrForbidden}
}
