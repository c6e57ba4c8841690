package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	root := &cobra.Command{
		Use:   "draftbot",
		Short: "Draft approval daemon and blog pipeline",
		Long: "draftbot reads new Markdown drafts aloud through Home Assistant, posts them to a\n" +
			"Discord channel for a thumbs-up or thumbs-down, and files approved drafts for\n" +
			"publishing. It can also generate topics and drafts on a weekday schedule.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	root.AddGroup(
		&cobra.Group{ID: "daemon", Title: "Daemon:"},
		&cobra.Group{ID: "review", Title: "Review:"},
		&cobra.Group{ID: "content", Title: "Content:"},
	)
	for group, cmds := range map[string][]*cobra.Command{
		"daemon":  {newRunCommand(ctx), newStatusCommand(ctx), newLogsCommand(ctx)},
		"review":  {newPendingCommand(ctx), newDecideCommand(ctx), newHistoryCommand(ctx)},
		"content": {newSynthesizeCommand(ctx), newPipelineCommand(ctx)},
	} {
		for _, cmd := range cmds {
			cmd.GroupID = group
			root.AddCommand(cmd)
		}
	}
	root.AddCommand(newConfigCommand(ctx))
	return root
}
