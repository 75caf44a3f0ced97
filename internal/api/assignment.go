package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"go.uber.org/zap"
)

// AssignmentHandler manages which creators work on a project and what they
// hand in.
type AssignmentHandler struct {
	assignments *pipeline.AssignmentManager
	logger      *zap.Logger
}

func NewAssignmentHandler(assignments *pipeline.AssignmentManager, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, logger: logger}
}

type assignRequest struct {
	CreatorID uuid.UUID `json:"creator_id" binding:"required"`
}

type submitScriptRequest struct {
	Body                string   `json:"body"`
	Hooks               []string `json:"hooks"`
	FilmingInstructions *string  `json:"filming_instructions"`
}

type uploadVideoRequest struct {
	VideoURL        string     `json:"video_url"`
	ThumbnailURL    *string    `json:"thumbnail_url"`
	DurationSeconds *int       `json:"duration_seconds"`
	ScriptID        *uuid.UUID `json:"script_id"`
}

// Create handles POST /v1/projects/:id/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req assignRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	a, err := h.assignments.Assign(c.Request.Context(), middleware.GetActor(c), projectID, req.CreatorID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListForProject handles GET /v1/projects/:id/assignments
func (h *AssignmentHandler) ListForProject(c *gin.Context) {
	projectID, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	list, err := h.assignments.ListForProject(c.Request.Context(), middleware.GetActor(c), projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": list})
}

// ListMine handles GET /v1/assignments
func (h *AssignmentHandler) ListMine(c *gin.Context) {
	list, err := h.assignments.ListMine(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": list})
}

// Remove handles DELETE /v1/assignments/:id
func (h *AssignmentHandler) Remove(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	if err := h.assignments.Remove(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Accept handles POST /v1/assignments/:id/accept
func (h *AssignmentHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	a, err := h.assignments.Accept(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Decline handles POST /v1/assignments/:id/decline
func (h *AssignmentHandler) Decline(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	a, err := h.assignments.Decline(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// SubmitScript handles POST /v1/assignments/:id/scripts
func (h *AssignmentHandler) SubmitScript(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req submitScriptRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	s, err := h.assignments.SubmitScript(c.Request.Context(), middleware.GetActor(c), id, pipeline.ScriptDraft{
		Body:                req.Body,
		Hooks:               req.Hooks,
		FilmingInstructions: req.FilmingInstructions,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// UploadVideo handles POST /v1/assignments/:id/videos
func (h *AssignmentHandler) UploadVideo(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req uploadVideoRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	v, err := h.assignments.UploadVideo(c.Request.Context(), middleware.GetActor(c), id, pipeline.VideoUpload{
		VideoURL:        req.VideoURL,
		ThumbnailURL:    req.ThumbnailURL,
		DurationSeconds: req.DurationSeconds,
		ScriptID:        req.ScriptID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}
