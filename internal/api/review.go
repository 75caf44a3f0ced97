package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"go.uber.org/zap"
)

// ReviewHandler records approval decisions on scripts and videos.
type ReviewHandler struct {
	approvals *pipeline.ApprovalEngine
	logger    *zap.Logger
}

func NewReviewHandler(approvals *pipeline.ApprovalEngine, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{approvals: approvals, logger: logger}
}

type scriptReviewRequest struct {
	ApprovalStatus string  `json:"approval_status" binding:"required"`
	Feedback       *string `json:"feedback"`
}

// videoReviewRequest carries both review tracks; the caller's role decides
// which pair is read.
type videoReviewRequest struct {
	AdminApprovalStatus  string  `json:"admin_approval_status"`
	AdminFeedback        *string `json:"admin_feedback"`
	ClientApprovalStatus string  `json:"client_approval_status"`
	ClientFeedback       *string `json:"client_feedback"`
}

// track returns the outcome and feedback for role, or the name of the
// missing field.
func (r videoReviewRequest) track(role models.Role) (models.ApprovalStatus, *string, string) {
	if role == models.RoleAdmin {
		return models.ApprovalStatus(r.AdminApprovalStatus), r.AdminFeedback, "admin_approval_status"
	}
	return models.ApprovalStatus(r.ClientApprovalStatus), r.ClientFeedback, "client_approval_status"
}

// ReviewScript handles PATCH /v1/scripts/:id
func (h *ReviewHandler) ReviewScript(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req scriptReviewRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	res, err := h.approvals.ReviewScript(c.Request.Context(), middleware.GetActor(c), id, models.ApprovalStatus(req.ApprovalStatus), req.Feedback)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReviewVideo handles PATCH /v1/videos/:id
//
// Admins review on the admin track, clients on the client track.
func (h *ReviewHandler) ReviewVideo(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req videoReviewRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	actor := middleware.GetActor(c)
	outcome, feedback, field := req.track(actor.Role)
	if outcome == "" {
		respondError(c, h.logger, fmt.Errorf("%w: missing or invalid field: %s", apperrors.ErrValidation, field))
		return
	}
	res, err := h.approvals.ReviewVideo(c.Request.Context(), actor, id, outcome, feedback)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
