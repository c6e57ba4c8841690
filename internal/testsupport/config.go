package testsupport

import (
	"path/filepath"
	"testing"

	"draftbot/internal/config"
)

// ConfigOption adjusts the generated test configuration before its
// directories are created.
type ConfigOption func(*config.Config)

// NewConfig returns a daemon-ready config whose folders live under a fresh
// temp directory. Settle windows are zero so tests decide immediately.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	root := t.TempDir()
	for dir, field := range map[string]*string{
		"drafts":   &cfg.Paths.DraftsDir,
		"approved": &cfg.Paths.ApprovedDir,
		"audio":    &cfg.Paths.AudioDir,
		"state":    &cfg.Paths.StateDir,
		"logs":     &cfg.Paths.LogDir,
		"data":     &cfg.Paths.DataDir,
	} {
		*field = filepath.Join(root, dir)
	}
	cfg.Discord.BotToken = "test-token"
	cfg.Discord.ChannelID = "1000"
	cfg.HomeAssistant.URL = "http://127.0.0.1:8123"
	cfg.HomeAssistant.Token = "test"
	cfg.Approval.SettleMillis = 0
	cfg.Watch.SettleMillis = 0
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithHomeAssistant points the TTS client at url.
func WithHomeAssistant(url string) ConfigOption {
	return func(cfg *config.Config) { cfg.HomeAssistant.URL = url }
}

// WithApprovalSettle sets the tie-break window in milliseconds.
func WithApprovalSettle(ms int) ConfigOption {
	return func(cfg *config.Config) { cfg.Approval.SettleMillis = ms }
}

// WithRejectedDir moves rejected drafts into a folder beside the others.
func WithRejectedDir() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Approval.RejectedDir = filepath.Join(BaseDir(cfg), "rejected")
	}
}

// WithLLM enables the blog pipeline against baseURL.
func WithLLM(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.APIKey = "test-key"
		cfg.LLM.BaseURL = baseURL
		cfg.Pipeline.Enabled = true
	}
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DraftsDir)
}
