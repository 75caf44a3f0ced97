package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

// AuthHandler handles signup, login and logout. Signup and login are the
// only public API endpoints: the caller has no session yet.
type AuthHandler struct {
	sessions     *auth.Service
	cookieSecure bool
	logger       *zap.Logger
}

func NewAuthHandler(sessions *auth.Service, cookieSecure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookieSecure: cookieSecure, logger: logger}
}

type signupRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required"`
	FullName    string  `json:"full_name" binding:"required"`
	Role        string  `json:"role" binding:"required"`
	CompanyName *string `json:"company_name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	session, err := h.sessions.SignUp(c.Request.Context(), auth.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Role:        models.Role(req.Role),
		CompanyName: req.CompanyName,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.setCookie(c, session)
	c.JSON(http.StatusCreated, session)
}

// Login handles POST /v1/auth/login
//
// Unknown email and wrong password both come back as invalid_credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	session, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.setCookie(c, session)
	c.JSON(http.StatusOK, session)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), middleware.GetToken(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cookieSecure, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setCookie(c *gin.Context, s *auth.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, s.Token, maxAge, "/", "", h.cookieSecure, true)
}
