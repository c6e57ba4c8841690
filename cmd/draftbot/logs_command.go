package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"draftbot/internal/api"
	"draftbot/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			client, err := ctx.apiClient()
			if err == nil {
				err = streamLogsFromAPI(cmd.Context(), client, out, lines, follow, filter)
			}
			if err == nil || !daemonDown(err) {
				return err
			}
			return tailEventLog(cmd.Context(), cfg.EventLogPath(), out, lines, follow, filter)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show one component (workflow, watcher, discord-gateway, ...)")
	cmd.Flags().StringVar(&filter.MessageID, "message", "", "Only show events for one approval message")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level (debug, info, warn, error)")
	return cmd
}

func streamLogsFromAPI(ctx context.Context, client *api.Client, out io.Writer, lines int, follow bool, filter logs.Filter) error {
	query := api.LogQuery{
		Limit:     lines,
		Tail:      true,
		Component: filter.Component,
		MessageID: filter.MessageID,
		Level:     filter.MinLevel,
	}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Logs(ctx, query)
		if err != nil {
			if printed && errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, logs.FormatEvent(evt))
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		query.Since = resp.Next
		query.Limit = 200
		query.Tail = false
		query.Follow = true
	}
}

func tailEventLog(ctx context.Context, path string, out io.Writer, lines int, follow bool, filter logs.Filter) error {
	offset := int64(-1)
	if lines <= 0 {
		offset = 0
	}
	limit := lines
	printed := false

	for {
		res, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if follow && errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail event log: %w", err)
		}
		for _, line := range res.Lines {
			if formatted, ok := logs.FormatLine(line, filter); ok {
				fmt.Fprintln(out, formatted)
				printed = true
			}
		}
		offset = res.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(out, "No log entries available")
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
