package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	logger *zap.Logger
}

func NewUserHandler(logger *zap.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

type meResponse struct {
	Profile  *models.Profile  `json:"profile"`
	Home     string           `json:"home"`
	Channels []models.Channel `json:"channels"`
}

// GetMe handles GET /v1/users/me
//
// The profile was resolved (and bootstrapped if missing) by the auth
// middleware.
func (h *UserHandler) GetMe(c *gin.Context) {
	profile := middleware.GetProfile(c)
	if profile == nil {
		respondError(c, h.logger, apperrors.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, meResponse{
		Profile:  profile,
		Home:     access.HomePath(profile.Role),
		Channels: access.Channels(profile.Role),
	})
}
