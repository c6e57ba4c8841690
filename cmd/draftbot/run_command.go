package main

import (
	"github.com/spf13/cobra"

	"draftbot/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var noPipeline bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the approval daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:   logLevel,
				NoPipeline: noPipeline,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&noPipeline, "no-pipeline", false, "Do not run the content schedule")
	return cmd
}
