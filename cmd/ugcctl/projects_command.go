package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/app"
	"github.com/lalith-99/ugcflow/internal/config"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const timeLayout = "2006-01-02 15:04"

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect projects and override their status",
	}
	projectsCmd.AddCommand(newProjectsListCommand(ctx))
	projectsCmd.AddCommand(newProjectsSetStatusCommand(ctx))
	projectsCmd.AddCommand(newProjectsHistoryCommand(ctx))
	return projectsCmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.ProjectStatus
			if status != "" {
				s, err := models.ParseProjectStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, _ *zap.Logger) error {
				projects, err := b.Store.Projects().List(cmd.Context(), nil)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					if filter != "" && p.Status != filter {
						continue
					}
					rows = append(rows, []string{
						p.ID.String(),
						p.Title,
						string(p.Status),
						strconv.Itoa(p.NumVideos),
						p.UpdatedAt.Local().Format(timeLayout),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no projects")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Videos", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show projects in this status")
	return cmd
}

func newProjectsSetStatusCommand(ctx *commandContext) *cobra.Command {
	var as, reason string

	cmd := &cobra.Command{
		Use:   "set-status <project-id> <status>",
		Short: "Override a project's status as an admin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, logger *zap.Logger) error {
				actor, err := adminActor(cmd.Context(), b, as)
				if err != nil {
					return err
				}
				var why *string
				if reason != "" {
					why = &reason
				}
				p, err := pipeline.NewStateMachine(b.Store, logger).
					Override(cmd.Context(), actor, id, models.ProjectStatus(args[1]), why)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", p.ID, p.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Email of the admin making the change")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	return cmd
}

func newProjectsHistoryCommand(ctx *commandContext) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "history <project-id>",
		Short: "Show a project's status audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			return ctx.withBackend(cmd.Context(), func(_ *config.Config, b *app.Backend, logger *zap.Logger) error {
				actor, err := adminActor(cmd.Context(), b, as)
				if err != nil {
					return err
				}
				history, err := pipeline.NewStateMachine(b.Store, logger).History(cmd.Context(), actor, id)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(history))
				for _, t := range history {
					reason := ""
					if t.Reason != nil {
						reason = *t.Reason
					}
					rows = append(rows, []string{
						t.CreatedAt.Local().Format(timeLayout),
						string(t.From),
						string(t.To),
						string(t.Source),
						reason,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"When", "From", "To", "Source", "Reason"}, rows, nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "Email of the admin reading the trail")
	return cmd
}
