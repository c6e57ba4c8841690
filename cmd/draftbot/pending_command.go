package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"draftbot/internal/api"
	"draftbot/internal/approval"
	"draftbot/internal/journal"
)

func newPendingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List drafts awaiting an approval decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			items, fromJournal, err := loadPending(cmd, ctx)
			if err != nil {
				return err
			}
			if fromJournal {
				fmt.Fprintln(stdout, "Daemon not running; showing approvals saved in the journal")
			}
			if len(items) == 0 {
				fmt.Fprintln(stdout, "No drafts awaiting approval")
				return nil
			}
			fmt.Fprint(stdout, renderPendingTable(items, time.Now()))
			fmt.Fprintln(stdout)
			return nil
		},
	}
}

func loadPending(cmd *cobra.Command, ctx *commandContext) ([]api.PendingItem, bool, error) {
	client, err := ctx.apiClient()
	if err == nil {
		resp, err := client.Pending(cmd.Context())
		if err == nil {
			return resp.Items, false, nil
		}
		if !daemonDown(err) {
			return nil, false, err
		}
	} else if !daemonDown(err) {
		return nil, false, err
	}

	cfg := ctx.configValue()
	store, err := journal.Open(cfg)
	if err != nil {
		return nil, true, err
	}
	defer store.Close()
	saved, err := store.ListPending(cmd.Context())
	if err != nil {
		return nil, true, err
	}
	items := make([]api.PendingItem, 0, len(saved))
	for _, p := range saved {
		items = append(items, api.FromTracker(approval.Tracker{Pending: p, State: approval.StateAwaiting}))
	}
	return items, true, nil
}

func renderPendingTable(items []api.PendingItem, now time.Time) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		announced := "-"
		if ts, ok := api.ParseTime(item.PublishedAt); ok {
			announced = humanize.RelTime(ts, now, "ago", "from now")
		}
		title := item.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(item.DraftPath), filepath.Ext(item.DraftPath))
		}
		rows = append(rows, []string{item.MessageID, title, item.State, announced})
	}
	return renderTable(
		[]string{"Message", "Title", "State", "Announced"},
		rows,
		4,
	)
}

func newDecideCommand(ctx *commandContext) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "decide <message-id> <approve|reject>",
		Short: "Approve or reject a pending draft without Discord",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := approval.ParseMarker(args[1]); !ok {
				return fmt.Errorf("unknown decision %q (use approve or reject)", args[1])
			}
			client, err := ctx.apiClient()
			if err != nil {
				return wrapDaemonError(err)
			}
			resp, err := client.Decide(cmd.Context(), args[0], api.DecisionRequest{Decision: args[1], User: user})
			if err != nil {
				return wrapDaemonError(err)
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Message %s: %s (%s)\n", resp.Item.MessageID, resp.Item.State, resp.Result)
			if resp.Item.DraftPath != "" {
				fmt.Fprintf(stdout, "Draft: %s\n", resp.Item.DraftPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Name recorded as the decider")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent approval decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			decisions, err := store.ListDecisions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if len(decisions) == 0 {
				fmt.Fprintln(stdout, "No decisions recorded")
				return nil
			}
			rows := make([][]string, 0, len(decisions))
			for _, d := range decisions {
				rows = append(rows, []string{
					d.DecidedAt.Local().Format("2006-01-02 15:04"),
					d.MessageID,
					string(d.State),
					d.DecidedBy,
					filepath.Base(firstNonEmpty(d.FinalPath, d.DraftPath)),
				})
			}
			fmt.Fprint(stdout, renderTable(
				[]string{"Decided", "Message", "Outcome", "By", "File"},
				rows,
			))
			fmt.Fprintln(stdout)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of decisions to show")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
