package main

import (
	"github.com/spf13/cobra"
)

var envFile string

// NewRootCmd creates the root command.  Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tripmate",
		Short:         "TripMate account and recommendation service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}
