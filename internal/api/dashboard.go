package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/httperr"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"go.uber.org/zap"
)

// DashboardHandler serves the admin dashboards and the role landing pages.
type DashboardHandler struct {
	dashboard *pipeline.Dashboard
	logger    *zap.Logger
}

func NewDashboardHandler(dashboard *pipeline.Dashboard, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// Stats handles GET /v1/admin/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.AdminStats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ReviewQueue handles GET /v1/admin/review-queue
func (h *DashboardHandler) ReviewQueue(c *gin.Context) {
	queue, err := h.dashboard.ReviewQueue(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, queue)
}

// Clients handles GET /v1/admin/clients
func (h *DashboardHandler) Clients(c *gin.Context) {
	clients, err := h.dashboard.Clients(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// Creators handles GET /v1/admin/creators
func (h *DashboardHandler) Creators(c *gin.Context) {
	creators, err := h.dashboard.Creators(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"creators": creators})
}

// NotFound stops unmatched API paths and non-GET requests before they
// reach the navigation gate.
func (h *DashboardHandler) NotFound(c *gin.Context) {
	if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/v1/") {
		httperr.Abort(c, h.logger, apperrors.ErrNotFound)
	}
}

// Page serves navigation requests that passed the gate. Role areas get
// that role's dashboard payload.
func (h *DashboardHandler) Page(c *gin.Context) {
	path := c.Request.URL.Path
	area := access.AreaOf(path)
	switch area {
	case access.AreaPublic:
		c.JSON(http.StatusOK, gin.H{"page": "landing"})
		return
	case access.AreaAuth:
		c.JSON(http.StatusOK, gin.H{"page": strings.TrimPrefix(path, "/")})
		return
	}

	// The gate lets a signed-in caller without a profile through; this is
	// where the failed bootstrap is reported.
	profile := middleware.GetProfile(c)
	if profile == nil {
		err := middleware.GetResolveError(c)
		if err == nil {
			err = apperrors.ErrProfileMissing
		}
		respondError(c, h.logger, err)
		return
	}

	ctx := c.Request.Context()
	actor := middleware.GetActor(c)
	var (
		payload any
		err     error
	)
	switch area {
	case access.AreaAdmin:
		payload, err = h.dashboard.AdminStats(ctx, actor)
	case access.AreaClient:
		payload, err = h.dashboard.Client(ctx, actor)
	case access.AreaCreator:
		payload, err = h.dashboard.Creator(ctx, actor)
	default:
		payload = gin.H{"profile": profile}
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": strings.TrimPrefix(path, "/"), "data": payload})
}
