package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/ugcflow/internal/api"
	"github.com/lalith-99/ugcflow/internal/app"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/lalith-99/ugcflow/internal/messaging"
	"github.com/lalith-99/ugcflow/internal/observ"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/lalith-99/ugcflow/internal/scriptgen"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cancelled on SIGINT/SIGTERM; everything long-lived hangs off it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Open the store (and Redis, when configured)
	// ---------------------------------------------------------------
	backend, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if backend.DB != nil && cfg.MigrateOnStart {
		if err := backend.DB.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	store := backend.Store

	// ---------------------------------------------------------------
	// 4. Build components
	// ---------------------------------------------------------------
	machine := pipeline.NewStateMachine(store, logger)

	var gen scriptgen.Generator
	if cfg.AI.IsAvailable() {
		gen = scriptgen.NewOpenAIGenerator(cfg.AI, logger)
	} else {
		logger.Warn("script generation disabled: no OPENAI_API_KEY or OPENAI_BASE_URL")
	}
	generator := scriptgen.NewService(machine, gen, logger)

	// Briefs start generation in the background only when a model is
	// configured; otherwise they wait in brief_submitted for an admin.
	var listener pipeline.BriefListener
	var dispatcher *scriptgen.Dispatcher
	if generator.Available() {
		dispatcher = scriptgen.NewDispatcher(generator, cfg.AI.MaxConcurrency, cfg.AI.JobTimeout, logger)
		listener = dispatcher
	}

	hub := messaging.NewHub(logger)
	bus := backend.Bus()
	defer bus.Close()
	if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
		return fmt.Errorf("start message forwarder: %w", err)
	}

	sessions := auth.NewService(store, backend.Revoker(), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	// ---------------------------------------------------------------
	// 5. Set up HTTP server
	// ---------------------------------------------------------------
	router := api.NewRouter(api.Deps{
		Sessions:     sessions,
		Resolver:     auth.NewResolver(store, logger),
		Projects:     pipeline.NewProjectService(store, listener, logger),
		Machine:      machine,
		Approvals:    pipeline.NewApprovalEngine(store, logger),
		Assignments:  pipeline.NewAssignmentManager(store, logger),
		Dashboard:    pipeline.NewDashboard(store),
		Generator:    generator,
		Messages:     messaging.NewRouter(store, bus, logger),
		Hub:          hub,
		Health:       backend.Health,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		CookieSecure: cfg.Auth.CookieSecure,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting ugcflow",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store),
			zap.Bool("redis", backend.Redis != nil),
			zap.Bool("script_generation", generator.Available()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ---------------------------------------------------------------
	// 6. Wait for a signal, then drain
	// ---------------------------------------------------------------
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if dispatcher != nil {
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			logger.Error("script generation shutdown", zap.Error(err))
		}
	}
	return nil
}
