// Package cli implements studioctl, a command line client for fine-tuning
// jobs and the generation log.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the studioctl command tree.
func NewRootCommand() *cobra.Command {
	var envFile string
	var jsonOutput bool

	ctx := newCommandContext(&envFile, &jsonOutput)
	return newRootCommand(ctx)
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "studioctl",
		Short:         "Manage Nebius fine-tuning jobs and generation logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(ctx.envFile, "env-file", "", "Load settings from this .env file instead of .env.local/.env")
	rootCmd.PersistentFlags().BoolVar(ctx.jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newTuneCommand(ctx))
	rootCmd.AddCommand(newValidateCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
