package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/lalith-99/ugcflow/internal/app"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// passwordEnv lets scripts pass the password without it showing up in the
// process list.
const passwordEnv = "UGCCTL_ADMIN_PASSWORD"

func newCreateAdminCommand(ctx *commandContext) *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Long:  "Create an admin account. Admins cannot sign up through the API.\nThe password is read from --password or " + passwordEnv + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if strings.TrimSpace(password) == "" {
				return fmt.Errorf("password required: use --password or %s", passwordEnv)
			}
			return ctx.withBackend(cmd.Context(), func(cfg *config.Config, b *app.Backend, logger *zap.Logger) error {
				sessions := auth.NewService(b.Store, b.Revoker(), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
				p, err := sessions.CreateAdmin(cmd.Context(), email, password, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", p.Email, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&password, "password", "", "Password (prefer "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
