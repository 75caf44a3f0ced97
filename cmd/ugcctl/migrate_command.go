package main

import (
	"errors"
	"fmt"

	"github.com/lalith-99/ugcflow/internal/app"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoDatabase = errors.New("migrations need STORE=postgres")

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, _ *zap.Logger) error {
				if b.DB == nil {
					return errNoDatabase
				}
				if err := b.DB.Migrate(); err != nil {
					return err
				}
				return printVersion(cmd, b)
			})
		},
	})

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, _ *zap.Logger) error {
				if b.DB == nil {
					return errNoDatabase
				}
				if err := b.DB.MigrateDown(steps); err != nil {
					return err
				}
				return printVersion(cmd, b)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, _ *zap.Logger) error {
				if b.DB == nil {
					return errNoDatabase
				}
				return printVersion(cmd, b)
			})
		},
	})

	return migrateCmd
}

func printVersion(cmd *cobra.Command, b *app.Backend) error {
	version, dirty, err := b.DB.MigrationVersion()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}
