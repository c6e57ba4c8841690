package preflight

import (
	"context"

	"draftbot/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Directories checks every configured folder for read/write access.
func Directories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Drafts folder", cfg.Paths.DraftsDir),
		CheckDirectoryAccess("Approved folder", cfg.Paths.ApprovedDir),
		CheckDirectoryAccess("Audio folder", cfg.Paths.AudioDir),
		CheckDirectoryAccess("State folder", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log folder", cfg.Paths.LogDir),
	}
	if cfg.Pipeline.Enabled {
		results = append(results, CheckDirectoryAccess("Data folder", cfg.Paths.DataDir))
	}
	if cfg.Approval.RejectedDir != "" {
		results = append(results, CheckDirectoryAccess("Rejected folder", cfg.Approval.RejectedDir))
	}
	return results
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := Directories(cfg)
	results = append(results,
		CheckJournal(ctx, cfg.JournalPath()),
		CheckHomeAssistant(ctx, cfg.HomeAssistant.URL, cfg.HomeAssistant.Token),
		CheckDiscord(ctx, "", cfg.Discord.BotToken, cfg.Discord.ChannelID),
	)

	if cfg.Pipeline.Enabled {
		results = append(results, CheckLLM(ctx, cfg))
	}
	if cfg.Medium.Enabled {
		results = append(results, CheckMedium(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
