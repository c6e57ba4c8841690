package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/pipeline"
	"draftbot/internal/schedule"
)

func newPipelineCommand(ctx *commandContext) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Blog content pipeline",
	}
	pipelineCmd.AddCommand(newPipelineRunCommand(ctx))
	pipelineCmd.AddCommand(newPipelineTopicsCommand(ctx))
	return pipelineCmd
}

func newPipelineRunCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var topic string
	var force bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline job now (research, report, or draft)",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, ok := schedule.ParseJob(mode)
			if !ok {
				return fmt.Errorf("unknown mode %q (use research, report, or draft)", mode)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}

			logger := logging.NewNop()
			if verbose {
				if logger, err = cliLogger("info"); err != nil {
					return err
				}
			}
			store, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			gen := pipeline.NewGenerator(cfg, pipeline.NewClient(cfg), logger)
			sched := schedule.New(cfg, gen, store, logger)

			var res schedule.Result
			if job == schedule.JobDraft {
				res, err = sched.ComposeTopic(cmd.Context(), topic)
			} else {
				if strings.TrimSpace(topic) != "" {
					return fmt.Errorf("--topic only applies to --mode draft")
				}
				res, err = sched.Run(cmd.Context(), job, force)
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(schedule.JobDraft), "Job to run: research, report, or draft")
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Topic for --mode draft (generated when empty)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Run even if the job already ran today")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return cmd
}

func newPipelineTopicsCommand(ctx *commandContext) *cobra.Command {
	var count int
	var mode string

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Print topic ideas without writing files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}
			gen := pipeline.NewGenerator(cfg, pipeline.NewClient(cfg), logging.NewNop())
			topics, err := gen.Topics(cmd.Context(), count, pipeline.Mode(mode), nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, t := range topics {
				fmt.Fprintf(out, "%d. %s\n", i+1, t)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "Number of topics")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(pipeline.ModeResearch), "Topic framing: research or report")
	return cmd
}

func printResult(out io.Writer, res schedule.Result) {
	if res.Skipped {
		fmt.Fprintf(out, "%s already ran on %s (use --force to run again)\n", res.Job, res.Date)
		return
	}
	if res.Path != "" {
		fmt.Fprintf(out, "Wrote %s\n", res.Path)
	}
	for i, t := range res.Topics {
		fmt.Fprintf(out, "  %d. %s\n", i+1, t)
	}
	if res.Draft != "" {
		fmt.Fprintf(out, "Draft: %s\n", res.Draft)
	}
}
