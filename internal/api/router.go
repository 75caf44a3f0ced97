package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/access"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/messaging"
	"github.com/lalith-99/ugcflow/internal/middleware"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/lalith-99/ugcflow/internal/scriptgen"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layer calls into.
type Deps struct {
	Sessions    *auth.Service
	Resolver    *auth.Resolver
	Projects    *pipeline.ProjectService
	Machine     *pipeline.StateMachine
	Approvals   *pipeline.ApprovalEngine
	Assignments *pipeline.AssignmentManager
	Dashboard   *pipeline.Dashboard
	Generator   *scriptgen.Service
	Messages    *messaging.Router
	Hub         *messaging.Hub

	// Health pings the backing store. Nil means always healthy.
	Health func(context.Context) error

	CORSOrigins  []string
	CookieSecure bool
	Logger       *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	authn := middleware.NewAuthenticator(d.Sessions, d.Resolver, logger)

	authH := NewAuthHandler(d.Sessions, d.CookieSecure, logger)
	userH := NewUserHandler(logger)
	projectH := NewProjectHandler(d.Projects, d.Machine, d.Generator, logger)
	assignmentH := NewAssignmentHandler(d.Assignments, logger)
	reviewH := NewReviewHandler(d.Approvals, logger)
	messageH := NewMessageHandler(d.Messages, logger)
	realtimeH := NewRealtimeHandler(d.Messages, d.Hub, d.CORSOrigins, logger)
	dashboardH := NewDashboardHandler(d.Dashboard, logger)

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	if len(d.CORSOrigins) > 0 {
		r.Use(middleware.CORS(d.CORSOrigins))
	}

	// Health check is public so load balancers can reach it.
	r.GET("/v1/health", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/v1/auth")
	public.POST("/signup", authH.Signup)
	public.POST("/login", authH.Login)

	// Everything else under /v1 needs a session. Role checks live in the
	// components; the admin group is also checked up front.
	v1 := r.Group("/v1")
	v1.Use(authn.RequireAuth())

	v1.POST("/auth/logout", authH.Logout)
	v1.GET("/users/me", userH.GetMe)

	v1.POST("/projects", projectH.Create)
	v1.GET("/projects", projectH.List)
	v1.GET("/projects/:id", projectH.Get)
	v1.POST("/projects/:id/submit", projectH.Submit)
	v1.PATCH("/projects/:id/status", projectH.Override)
	v1.GET("/projects/:id/history", projectH.History)
	v1.POST("/projects/:id/scripts/generate", projectH.Generate)
	v1.GET("/projects/:id/scripts", projectH.Scripts)
	v1.GET("/projects/:id/videos", projectH.Videos)
	v1.POST("/projects/:id/assignments", assignmentH.Create)
	v1.GET("/projects/:id/assignments", assignmentH.ListForProject)
	v1.POST("/projects/:id/messages", messageH.Create)
	v1.GET("/projects/:id/messages", messageH.List)

	v1.GET("/assignments", assignmentH.ListMine)
	v1.DELETE("/assignments/:id", assignmentH.Remove)
	v1.POST("/assignments/:id/accept", assignmentH.Accept)
	v1.POST("/assignments/:id/decline", assignmentH.Decline)
	v1.POST("/assignments/:id/scripts", assignmentH.SubmitScript)
	v1.POST("/assignments/:id/videos", assignmentH.UploadVideo)

	v1.PATCH("/scripts/:id", reviewH.ReviewScript)
	v1.PATCH("/videos/:id", reviewH.ReviewVideo)

	v1.POST("/messages/direct", messageH.CreateDirect)
	v1.GET("/messages/direct", messageH.ListDirect)
	v1.GET("/ws", realtimeH.Serve)

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireCapability(access.CapViewDashboards, logger))
	admin.GET("/stats", dashboardH.Stats)
	admin.GET("/review-queue", dashboardH.ReviewQueue)
	admin.GET("/clients", dashboardH.Clients)
	admin.GET("/creators", dashboardH.Creators)

	// Anything else is page navigation and goes through the gate.
	r.NoRoute(dashboardH.NotFound, authn.Identify(), middleware.Gate(), dashboardH.Page)

	return r
}
