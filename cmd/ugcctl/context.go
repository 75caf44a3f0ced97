package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lalith-99/ugcflow/internal/app"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/observ"
	"go.uber.org/zap"
)

type commandContext struct {
	configFlag *string
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			if err := os.Setenv("CONFIG_FILE", path); err != nil {
				return nil, err
			}
		}
	}
	return config.LoadConfig()
}

// withBackend opens the configured store for the duration of fn. The CLI
// logs at warn level unless LOG_LEVEL asks for more.
func (c *commandContext) withBackend(ctx context.Context, fn func(*config.Config, *app.Backend, *zap.Logger) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if level == "info" {
		level = "warn"
	}
	logger, err := observ.NewLogger(cfg.Env, level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	backend, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(cfg, backend, logger)
}

// adminActor looks up the admin the CLI acts as, so overrides are
// attributed in the audit trail.
func adminActor(ctx context.Context, backend *app.Backend, email string) (models.Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.Actor{}, fmt.Errorf("--as is required")
	}
	user, err := backend.Store.AuthUsers().GetByEmail(ctx, email)
	if err != nil {
		return models.Actor{}, fmt.Errorf("look up %s: %w", email, err)
	}
	profile, err := backend.Store.Profiles().GetByID(ctx, user.ID)
	if err != nil {
		return models.Actor{}, fmt.Errorf("look up profile of %s: %w", email, err)
	}
	if profile.Role != models.RoleAdmin {
		return models.Actor{}, fmt.Errorf("%s is a %s, not an admin", email, profile.Role)
	}
	return models.Actor{ID: profile.ID, Role: profile.Role}, nil
}
