package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/messaging"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/models"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// RealtimeHandler streams a channel's messages over a websocket: first the
// stored history, then live messages as they are sent.
type RealtimeHandler struct {
	router   *messaging.Router
	hub      *messaging.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewRealtimeHandler(router *messaging.Router, hub *messaging.Hub, origins []string, logger *zap.Logger) *RealtimeHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &RealtimeHandler{
		router: router,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		logger: logger.Named("realtime"),
	}
}

// Serve handles GET /v1/ws?project_id=...&channel=project
//
// Access is checked before the upgrade so a refused subscription is a
// normal JSON error. The hub subscription is opened before history is read;
// anything published in between arrives twice and the feed drops the
// repeat.
func (h *RealtimeHandler) Serve(c *gin.Context) {
	actor := middleware.GetActor(c)
	ctx := c.Request.Context()

	ch := models.Channel(c.DefaultQuery("channel", string(models.ChannelProject)))
	var projectID *uuid.UUID
	if s := c.Query("project_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			respondError(c, h.logger, apperrors.ErrValidation)
			return
		}
		projectID = &id
	}
	if err := h.router.CanAccess(ctx, actor, projectID, ch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	sub := h.hub.Subscribe(messaging.Topic(projectID))
	defer h.hub.Unsubscribe(sub)

	history, err := h.router.LoadHistory(ctx, actor, messaging.HistoryInput{ProjectID: projectID, Channel: ch})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	feed := messaging.NewFeed(actor, ch)
	for _, m := range history {
		if feed.Accept(m) {
			if err := h.write(conn, m); err != nil {
				return
			}
		}
	}

	done := make(chan struct{})
	go h.readLoop(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case m, ok := <-sub.C():
			if !ok {
				return
			}
			if !feed.Accept(m) {
				continue
			}
			if err := h.write(conn, m); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *RealtimeHandler) write(conn *websocket.Conn, m models.Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(m)
}

// readLoop discards client frames and keeps the read deadline fresh on
// pongs. It closes done when the client goes away.
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
