package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/messaging"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

type MessageHandler struct {
	router *messaging.Router
	logger *zap.Logger
}

func NewMessageHandler(router *messaging.Router, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{router: router, logger: logger}
}

type sendMessageRequest struct {
	Channel     string     `json:"channel"`
	Content     string     `json:"content"`
	RecipientID *uuid.UUID `json:"recipient_id"`
}

type directMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Content     string    `json:"content"`
}

// Create handles POST /v1/projects/:id/messages
//
// The channel defaults to "project".
func (h *MessageHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ch := models.ChannelProject
	if req.Channel != "" {
		ch = models.Channel(req.Channel)
	}
	m, err := h.router.Send(c.Request.Context(), middleware.GetActor(c), messaging.SendInput{
		ProjectID:   &projectID,
		RecipientID: req.RecipientID,
		Channel:     ch,
		Content:     req.Content,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// CreateDirect handles POST /v1/messages/direct
func (h *MessageHandler) CreateDirect(c *gin.Context) {
	var req directMessageRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	m, err := h.router.Send(c.Request.Context(), middleware.GetActor(c), messaging.SendInput{
		RecipientID: &req.RecipientID,
		Channel:     models.ChannelDirect,
		Content:     req.Content,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// List handles GET /v1/projects/:id/messages?channel=project&after=123&limit=50
//
// "after" is a message id; only newer messages are returned. 0 starts from
// the beginning. A limit of 0 means no limit.
func (h *MessageHandler) List(c *gin.Context) {
	projectID, ok := pathID(c, h.logger, "id")
	if !ok {
		return
	}
	h.list(c, &projectID, models.Channel(c.DefaultQuery("channel", string(models.ChannelProject))))
}

// ListDirect handles GET /v1/messages/direct?after=123&limit=50
func (h *MessageHandler) ListDirect(c *gin.Context) {
	h.list(c, nil, models.ChannelDirect)
}

func (h *MessageHandler) list(c *gin.Context, projectID *uuid.UUID, ch models.Channel) {
	after, err := queryInt(c, "after")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	messages, err := h.router.LoadHistory(c.Request.Context(), middleware.GetActor(c), messaging.HistoryInput{
		ProjectID: projectID,
		Channel:   ch,
		After:     after,
		Limit:     int(limit),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
