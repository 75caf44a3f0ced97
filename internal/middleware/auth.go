package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/httperr"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "ugc_session"

// Context keys for what the auth middleware stores in gin.Context.
const (
	ContextKeyUserID  = "user_id"
	ContextKeyEmail   = "email"
	ContextKeyToken   = "session_token"
	ContextKeyProfile = "profile"
	ContextKeyResolve = "profile_error"
)

// Authenticator validates session tokens and resolves the caller's profile.
type Authenticator struct {
	sessions *auth.Service
	resolver *auth.Resolver
	logger   *zap.Logger
}

func NewAuthenticator(sessions *auth.Service, resolver *auth.Resolver, logger *zap.Logger) *Authenticator {
	return &Authenticator{sessions: sessions, resolver: resolver, logger: logger.Named("auth_middleware")}
}

// TokenFrom reads the session token from the Authorization header, then the
// session cookie, then the "token" query parameter (websocket clients
// cannot set headers).
func TokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid session and stores the
// resolved profile for the handlers.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFrom(c)
		if token == "" {
			httperr.Abort(c, a.logger, apperrors.ErrUnauthenticated)
			return
		}
		claims, err := a.sessions.CurrentUser(c.Request.Context(), token)
		if err != nil {
			httperr.Abort(c, a.logger, err)
			return
		}
		profile, err := a.resolver.Resolve(c.Request.Context(), claims.UserID)
		if err != nil {
			httperr.Abort(c, a.logger, err)
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyProfile, profile)
		c.Next()
	}
}

// Identify is RequireAuth without the rejection: page requests may be
// anonymous, and a profile that cannot be resolved leaves the role empty.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFrom(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := a.sessions.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyToken, token)

		profile, err := a.resolver.Resolve(c.Request.Context(), claims.UserID)
		if err != nil {
			a.logger.Warn("profile unresolved on page request",
				zap.String("user_id", claims.UserID.String()),
				zap.Error(err))
			c.Set(ContextKeyResolve, err)
		} else {
			c.Set(ContextKeyProfile, profile)
		}
		c.Next()
	}
}

// RequireCapability rejects callers whose role lacks c.
func RequireCapability(capability access.Capability, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Require(GetActor(c).Role, capability); err != nil {
			httperr.Abort(c, logger, err)
			return
		}
		c.Next()
	}
}

// Gate applies the navigation rules to page requests: disallowed requests
// are redirected with 302.
func Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := access.Evaluate(GetIdentity(c), c.Request.URL.Path)
		if !d.Allow {
			c.Redirect(http.StatusFound, d.RedirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetEmail(c *gin.Context) string {
	val, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	email, ok := val.(string)
	if !ok {
		return ""
	}
	return email
}

func GetToken(c *gin.Context) string {
	val, _ := c.Get(ContextKeyToken)
	token, _ := val.(string)
	return token
}

// GetProfile returns the resolved profile, or nil for anonymous callers
// and unresolved profiles.
func GetProfile(c *gin.Context) *models.Profile {
	val, exists := c.Get(ContextKeyProfile)
	if !exists {
		return nil
	}
	p, _ := val.(*models.Profile)
	return p
}

// GetResolveError is the profile resolution failure Identify recorded, if
// any.
func GetResolveError(c *gin.Context) error {
	val, _ := c.Get(ContextKeyResolve)
	err, _ := val.(error)
	return err
}

// GetActor is the caller as components see it. Anonymous callers get the
// zero Actor, which no capability allows.
func GetActor(c *gin.Context) models.Actor {
	p := GetProfile(c)
	if p == nil {
		return models.Actor{}
	}
	return models.Actor{ID: p.ID, Role: p.Role}
}

func GetIdentity(c *gin.Context) access.Identity {
	id := access.Identity{Authenticated: GetUserID(c) != uuid.Nil}
	if p := GetProfile(c); p != nil {
		id.Role = p.Role
	}
	return id
}
