package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	DraftsDir   string `toml:"drafts_dir"`
	ApprovedDir string `toml:"approved_dir"`
	AudioDir    string `toml:"audio_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	DataDir     string `toml:"data_dir"`
}

// Watch controls how the drafts directory is observed.
type Watch struct {
	Extensions      []string `toml:"extensions"`
	NameContains    string   `toml:"name_contains"`
	PollInterval    int      `toml:"poll_interval"`
	SettleMillis    int      `toml:"settle_ms"`
	ProcessExisting bool     `toml:"process_existing"`
}

// HomeAssistant contains the text-to-speech service settings.
type HomeAssistant struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TTSEntityID    string `toml:"tts_entity_id"`
	TTSLanguage    string `toml:"tts_language"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Discord contains the approval channel settings.
type Discord struct {
	BotToken       string `toml:"bot_token"`
	ChannelID      string `toml:"channel_id"`
	ApproveEmoji   string `toml:"approve_emoji"`
	RejectEmoji    string `toml:"reject_emoji"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Approval contains tracker and outcome settings.
type Approval struct {
	SettleMillis int    `toml:"settle_ms"`
	ExpireHours  int    `toml:"expire_hours"`
	RejectedDir  string `toml:"rejected_dir"`
}

// API contains the local HTTP control surface settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// LLM contains the chat completion provider settings used by the blog pipeline.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline controls the scheduled topic and draft generation.
type Pipeline struct {
	Enabled        bool `toml:"enabled"`
	AutoDraft      bool `toml:"auto_draft"`
	ResearchTopics int  `toml:"research_topics"`
	ReportTopics   int  `toml:"report_topics"`
	ScheduleHour   int  `toml:"schedule_hour"`
}

// Medium contains the optional post-approval publishing target.
type Medium struct {
	Enabled          bool     `toml:"enabled"`
	IntegrationToken string   `toml:"integration_token"`
	BaseURL          string   `toml:"base_url"`
	Tags             []string `toml:"tags"`
	PublishStatus    string   `toml:"publish_status"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for draftbot.
//
// Configuration sections by subsystem:
//   - Paths: drafts/approved folders, audio artifacts, state and logs
//   - Watch: drafts folder observation
//   - HomeAssistant: text-to-speech synthesis
//   - Discord: approval channel and marker reactions
//   - Approval: tie-break window, expiry, rejected-draft handling
//   - API: local HTTP control surface
//   - LLM, Pipeline: scheduled topic/draft generation
//   - Medium: publishing approved drafts
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Watch         Watch         `toml:"watch"`
	HomeAssistant HomeAssistant `toml:"home_assistant"`
	Discord       Discord       `toml:"discord"`
	Approval      Approval      `toml:"approval"`
	API           API           `toml:"api"`
	LLM           LLM           `toml:"llm"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Medium        Medium        `toml:"medium"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A .env file in the
// config directory or the working directory is loaded first; variables already
// present in the environment win. Unknown keys are rejected so typos surface
// instead of silently falling back to defaults. It returns the config, the
// path consulted, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	loadDotEnv(filepath.Dir(resolved))

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append([]string{filepath.Join(configDir, ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		if isFile(candidate) {
			// godotenv never overrides variables that are already set.
			_ = godotenv.Load(candidate)
		}
	}
}

// resolveConfigPath picks the config file: an explicit path, then
// $DRAFTBOT_CONFIG, then the default location, then ./draftbot.toml. With
// nothing on disk the default location is reported as missing.
func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("DRAFTBOT_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	local, err := filepath.Abs("draftbot.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, local} {
		if isFile(candidate) {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureDirectories creates the directories the daemon writes to. The drafts
// directory is created when missing; its readability is checked separately
// when the watcher starts.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DraftsDir,
		c.Paths.ApprovedDir,
		c.Paths.AudioDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
		c.Paths.DataDir,
	}
	if c.Approval.RejectedDir != "" {
		dirs = append(dirs, c.Approval.RejectedDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "draftbot.db")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "draftbot.lock")
}

// EventLogPath returns the append-only event log location.
func (c *Config) EventLogPath() string {
	return filepath.Join(c.Paths.LogDir, "draftbot.log")
}

// RejectionLogPath returns the append-only rejection log location.
func (c *Config) RejectionLogPath() string {
	return filepath.Join(c.Paths.LogDir, "rejections.log")
}

// WatchPollInterval returns the reconcile poll cadence for the drafts folder.
func (c *Config) WatchPollInterval() time.Duration {
	return time.Duration(c.Watch.PollInterval) * time.Second
}

// WatchSettle returns how long a file size must stay unchanged before it is read.
func (c *Config) WatchSettle() time.Duration {
	return time.Duration(c.Watch.SettleMillis) * time.Millisecond
}

// ApprovalSettle returns the reaction tie-break window.
func (c *Config) ApprovalSettle() time.Duration {
	return time.Duration(c.Approval.SettleMillis) * time.Millisecond
}

// ApprovalExpiry returns how long an approval may wait; zero disables expiry.
func (c *Config) ApprovalExpiry() time.Duration {
	return time.Duration(c.Approval.ExpireHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(pathValue, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, rest)
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
