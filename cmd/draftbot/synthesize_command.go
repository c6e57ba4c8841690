package main

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"draftbot/internal/drafts"
	"draftbot/internal/logging"
	"draftbot/internal/services/homeassistant"
)

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "synthesize <draft-file>",
		Short: "Generate the speech audio for a draft without announcing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, err := drafts.Load(args[0])
			if err != nil {
				return err
			}

			logger := logging.NewNop()
			if verbose {
				logger, err = cliLogger("info")
				if err != nil {
					return err
				}
			}
			client := homeassistant.NewClient(homeassistant.Config{
				BaseURL:        cfg.HomeAssistant.URL,
				Token:          cfg.HomeAssistant.Token,
				EntityID:       cfg.HomeAssistant.TTSEntityID,
				Language:       cfg.HomeAssistant.TTSLanguage,
				MaxChars:       cfg.HomeAssistant.MaxChars,
				AudioDir:       cfg.Paths.AudioDir,
				TimeoutSeconds: cfg.HomeAssistant.TimeoutSeconds,
			}, homeassistant.WithLogger(logger))

			art, err := client.Synthesize(cmd.Context(), d.Stem(), d.SpeechText())
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Title: %s\n", d.Title())
			fmt.Fprintf(stdout, "Audio: %s (%s)\n", art.Path, humanize.IBytes(uint64(art.Size)))
			if art.Truncated {
				fmt.Fprintf(stdout, "Speech text truncated to %s characters\n", humanize.Comma(int64(art.Chars)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")
	return cmd
}

// cliLogger writes console-format records to stderr so command output on
// stdout stays clean.
func cliLogger(level string) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: level, Format: "console", OutputPaths: []string{"stderr"}})
}
