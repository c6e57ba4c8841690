package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"draftbot/internal/preflight"
)

var optionalChecks = map[string]bool{"LLM": true, "Medium": true}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and run connectivity checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			printLines(stdout, renderSectionHeader("Daemon", colorize))
			daemonResult := preflight.CheckDaemon(cmd.Context(), cfg)
			if daemonResult.Passed {
				fmt.Fprintln(stdout, renderStatusLine(daemonResult.Name, statusOK, daemonResult.Detail, colorize))
				if client, err := ctx.apiClient(); err == nil {
					if health, err := client.Health(cmd.Context()); err == nil {
						printLines(stdout, componentLines(health.Components, colorize))
					}
				}
			} else {
				fmt.Fprintln(stdout, renderStatusLine(daemonResult.Name, statusInfo, daemonResult.Detail, colorize))
			}

			if skipChecks {
				return nil
			}
			fmt.Fprintln(stdout)
			printLines(stdout, renderSectionHeader("Checks", colorize))
			results := preflight.RunAll(cmd.Context(), cfg)
			failedRequired := 0
			for _, r := range results {
				fmt.Fprintln(stdout, checkLine(r, optionalChecks[r.Name], colorize))
				if !r.Passed && !optionalChecks[r.Name] {
					failedRequired++
				}
			}
			if failedRequired > 0 {
				return fmt.Errorf("%d required checks failed", failedRequired)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "no-checks", false, "Only report the daemon, skip service connectivity checks")
	return cmd
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
