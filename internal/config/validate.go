package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"draftbot/internal/services"
)

// Validate ensures the configuration is usable. It checks formats and ranges
// only; credentials needed by the daemon are checked by RequireDaemon.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validatePaths,
		c.validateWatch,
		c.validateHomeAssistant,
		c.validateDiscord,
		c.validateApproval,
		c.validatePipeline,
		c.validateMedium,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// RequireDaemon reports missing settings the approval daemon cannot start
// without. The error lists every missing key at once.
func (c *Config) RequireDaemon() error {
	required := []struct {
		key   string
		value string
	}{
		{"discord.bot_token (DISCORD_BOT_TOKEN)", c.Discord.BotToken},
		{"discord.channel_id (DISCORD_APPROVAL_CHANNEL_ID)", c.Discord.ChannelID},
		{"home_assistant.url (HOME_ASSISTANT_URL)", c.HomeAssistant.URL},
		{"home_assistant.token (HOME_ASSISTANT_TOKEN)", c.HomeAssistant.Token},
		{"paths.drafts_dir (DRAFTS_FOLDER)", c.Paths.DraftsDir},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return &services.ConfigurationError{
			Key: "required settings",
			Err: fmt.Errorf("missing %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// RequireLLM reports whether the blog pipeline can call the LLM provider.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return invalid("llm.api_key", "must be set to run the blog pipeline (or set OPENAI_API_KEY)")
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return &services.ConfigurationError{Key: key, Err: fmt.Errorf(format, args...)}
}

func (c *Config) validatePaths() error {
	if c.Paths.DraftsDir == c.Paths.ApprovedDir {
		return invalid("paths.approved_dir", "must differ from paths.drafts_dir")
	}
	if c.Approval.RejectedDir != "" && c.Approval.RejectedDir == c.Paths.DraftsDir {
		return invalid("approval.rejected_dir", "must differ from paths.drafts_dir")
	}
	if c.Paths.AudioDir == c.Paths.DraftsDir {
		return invalid("paths.audio_dir", "must differ from paths.drafts_dir")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if len(c.Watch.Extensions) == 0 {
		return invalid("watch.extensions", "must include at least one extension")
	}
	if c.Watch.PollInterval <= 0 {
		return invalid("watch.poll_interval", "must be positive (seconds)")
	}
	if c.Watch.SettleMillis < 0 {
		return invalid("watch.settle_ms", "must be >= 0")
	}
	return nil
}

func (c *Config) validateHomeAssistant() error {
	if c.HomeAssistant.URL != "" {
		parsed, err := url.Parse(c.HomeAssistant.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return invalid("home_assistant.url", "must be an absolute URL, got %q", c.HomeAssistant.URL)
		}
	}
	if !strings.HasPrefix(c.HomeAssistant.TTSEntityID, "tts.") || len(c.HomeAssistant.TTSEntityID) <= len("tts.") {
		return invalid("home_assistant.tts_entity_id", "must look like tts.<engine>, got %q", c.HomeAssistant.TTSEntityID)
	}
	if _, err := language.Parse(c.HomeAssistant.TTSLanguage); err != nil {
		return invalid("home_assistant.tts_language", "invalid language tag %q: %v", c.HomeAssistant.TTSLanguage, err)
	}
	if c.HomeAssistant.MaxChars < 200 {
		return invalid("home_assistant.max_chars", "must be at least 200")
	}
	if c.HomeAssistant.TimeoutSeconds <= 0 {
		return invalid("home_assistant.timeout_seconds", "must be positive")
	}
	return nil
}

func (c *Config) validateDiscord() error {
	if c.Discord.ChannelID != "" {
		for _, r := range c.Discord.ChannelID {
			if r < '0' || r > '9' {
				return invalid("discord.channel_id", "must be a numeric snowflake, got %q", c.Discord.ChannelID)
			}
		}
	}
	if c.Discord.ApproveEmoji == c.Discord.RejectEmoji {
		return invalid("discord.reject_emoji", "must differ from discord.approve_emoji")
	}
	if c.Discord.MaxUploadBytes <= 0 {
		return invalid("discord.max_upload_bytes", "must be positive")
	}
	if c.Discord.TimeoutSeconds <= 0 {
		return invalid("discord.timeout_seconds", "must be positive")
	}
	return nil
}

func (c *Config) validateApproval() error {
	if c.Approval.SettleMillis < 0 {
		return invalid("approval.settle_ms", "must be >= 0")
	}
	if c.Approval.ExpireHours < 0 {
		return invalid("approval.expire_hours", "must be >= 0 (0 disables expiry)")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ResearchTopics <= 0 || c.Pipeline.ReportTopics <= 0 {
		return invalid("pipeline.research_topics", "topic counts must be positive")
	}
	if c.Pipeline.ScheduleHour < 0 || c.Pipeline.ScheduleHour > 23 {
		return invalid("pipeline.schedule_hour", "must be between 0 and 23")
	}
	if c.Pipeline.Enabled && c.LLM.APIKey == "" {
		return invalid("llm.api_key", "must be set when pipeline.enabled is true (or set OPENAI_API_KEY)")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return invalid("llm.timeout_seconds", "must be positive")
	}
	return nil
}

func (c *Config) validateMedium() error {
	switch c.Medium.PublishStatus {
	case "draft", "public", "unlisted":
	default:
		return invalid("medium.publish_status", "must be draft, public, or unlisted, got %q", c.Medium.PublishStatus)
	}
	if c.Medium.Enabled && c.Medium.IntegrationToken == "" {
		return invalid("medium.integration_token", "must be set when medium.enabled is true (or set MEDIUM_INTEGRATION_TOKEN)")
	}
	if c.Medium.TimeoutSeconds <= 0 {
		return invalid("medium.timeout_seconds", "must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return invalid("logging.format", "unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return invalid("logging.level", "unsupported value %q", c.Logging.Level)
	}
}
