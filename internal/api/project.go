package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/lalith-99/ugcflow/internal/scriptgen"
	"go.uber.org/zap"
)

// ProjectHandler covers briefs, status and the project's scripts and
// videos.
type ProjectHandler struct {
	projects  *pipeline.ProjectService
	machine   *pipeline.StateMachine
	generator *scriptgen.Service
	logger    *zap.Logger
}

func NewProjectHandler(projects *pipeline.ProjectService, machine *pipeline.StateMachine, generator *scriptgen.Service, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, machine: machine, generator: generator, logger: logger}
}

type createProjectRequest struct {
	Title              string     `json:"title"`
	CampaignObjective  string     `json:"campaign_objective"`
	Platforms          []string   `json:"platforms"`
	BudgetTier         *string    `json:"budget_tier"`
	NumVideos          int        `json:"num_videos"`
	VideoStyles        []string   `json:"video_styles"`
	KeyMessaging       []string   `json:"key_messaging"`
	Dos                []string   `json:"dos"`
	Donts              []string   `json:"donts"`
	ReferenceVideoURLs []string   `json:"reference_video_urls"`
	Timeline           *string    `json:"timeline"`
	Deadline           *time.Time `json:"deadline"`
	CreatorNotes       *string    `json:"creator_notes"`
	Draft              bool       `json:"draft"`
}

type overrideRequest struct {
	Status string  `json:"status" binding:"required"`
	Reason *string `json:"reason"`
}

// Create handles POST /v1/projects
//
// With "draft": true the brief is saved without entering the pipeline.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	p, err := h.projects.SubmitBrief(c.Request.Context(), middleware.GetActor(c), pipeline.BriefInput{
		Title:              req.Title,
		CampaignObjective:  req.CampaignObjective,
		Platforms:          req.Platforms,
		BudgetTier:         req.BudgetTier,
		NumVideos:          req.NumVideos,
		VideoStyles:        req.VideoStyles,
		KeyMessaging:       req.KeyMessaging,
		Dos:                req.Dos,
		Donts:              req.Donts,
		ReferenceVideoURLs: req.ReferenceVideoURLs,
		Timeline:           req.Timeline,
		Deadline:           req.Deadline,
		CreatorNotes:       req.CreatorNotes,
	}, req.Draft)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Submit handles POST /v1/projects/:id/submit
func (h *ProjectHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	p, err := h.projects.Submit(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// List handles GET /v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// Get handles GET /v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	p, err := h.projects.Get(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Override handles PATCH /v1/projects/:id/status
func (h *ProjectHandler) Override(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req overrideRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	p, err := h.machine.Override(c.Request.Context(), middleware.GetActor(c), id, models.ProjectStatus(req.Status), req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// History handles GET /v1/projects/:id/history
func (h *ProjectHandler) History(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	history, err := h.machine.History(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": history})
}

// Generate handles POST /v1/projects/:id/scripts/generate
//
// Runs inline; the caller waits for the model.
func (h *ProjectHandler) Generate(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	scripts, err := h.generator.Generate(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"scripts": scripts})
}

// Scripts handles GET /v1/projects/:id/scripts
func (h *ProjectHandler) Scripts(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	scripts, err := h.projects.Scripts(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scripts": scripts})
}

// Videos handles GET /v1/projects/:id/videos
func (h *ProjectHandler) Videos(c *gin.Context) {
	id, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	videos, err := h.projects.Videos(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}
