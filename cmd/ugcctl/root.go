package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "ugcctl",
		Short:         "Operator CLI for ugcflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (overrides CONFIG_FILE)")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newCreateAdminCommand(ctx))
	rootCmd.AddCommand(newProjectsCommand(ctx))

	return rootCmd
}
