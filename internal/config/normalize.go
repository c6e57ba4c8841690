package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeHomeAssistant()
	c.normalizeDiscord()
	c.normalizeMedium()
	c.normalizeLogging()
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	return nil
}

// applyEnv lets non-empty environment variables override file values.
func (c *Config) applyEnv() {
	overrides := []struct {
		name   string
		target *string
	}{
		{"DISCORD_BOT_TOKEN", &c.Discord.BotToken},
		{"DISCORD_APPROVAL_CHANNEL_ID", &c.Discord.ChannelID},
		{"HOME_ASSISTANT_URL", &c.HomeAssistant.URL},
		{"HOME_ASSISTANT_TOKEN", &c.HomeAssistant.Token},
		{"TTS_ENTITY_ID", &c.HomeAssistant.TTSEntityID},
		{"TTS_LANGUAGE", &c.HomeAssistant.TTSLanguage},
		{"DRAFTS_FOLDER", &c.Paths.DraftsDir},
		{"APPROVED_FOLDER", &c.Paths.ApprovedDir},
		{"OPENAI_API_KEY", &c.LLM.APIKey},
		{"OPENAI_BASE_URL", &c.LLM.BaseURL},
		{"MEDIUM_INTEGRATION_TOKEN", &c.Medium.IntegrationToken},
		{"DRAFTBOT_API_TOKEN", &c.API.Token},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.name); ok && strings.TrimSpace(value) != "" {
			*o.target = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		target   *string
		fallback string
	}{
		{"paths.drafts_dir", &c.Paths.DraftsDir, defaultDraftsDir},
		{"paths.approved_dir", &c.Paths.ApprovedDir, defaultApprovedDir},
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.target) == "" {
			*f.target = f.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*f.target))
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.target = expanded
	}
	if strings.TrimSpace(c.Approval.RejectedDir) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Approval.RejectedDir))
		if err != nil {
			return fmt.Errorf("approval.rejected_dir: %w", err)
		}
		c.Approval.RejectedDir = expanded
	}
	return nil
}

func (c *Config) normalizeWatch() {
	seen := make(map[string]struct{}, len(c.Watch.Extensions))
	exts := make([]string, 0, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Watch.Extensions = exts
	c.Watch.NameContains = strings.ToLower(strings.TrimSpace(c.Watch.NameContains))
}

func (c *Config) normalizeHomeAssistant() {
	c.HomeAssistant.URL = strings.TrimRight(strings.TrimSpace(c.HomeAssistant.URL), "/")
	c.HomeAssistant.Token = strings.TrimSpace(c.HomeAssistant.Token)
	c.HomeAssistant.TTSEntityID = strings.TrimSpace(c.HomeAssistant.TTSEntityID)
	if c.HomeAssistant.TTSEntityID == "" {
		c.HomeAssistant.TTSEntityID = defaultTTSEntityID
	}
	c.HomeAssistant.TTSLanguage = strings.TrimSpace(c.HomeAssistant.TTSLanguage)
	if c.HomeAssistant.TTSLanguage == "" {
		c.HomeAssistant.TTSLanguage = defaultTTSLanguage
	}
}

func (c *Config) normalizeDiscord() {
	c.Discord.BotToken = strings.TrimSpace(c.Discord.BotToken)
	c.Discord.ChannelID = strings.TrimSpace(c.Discord.ChannelID)
	c.Discord.ApproveEmoji = strings.TrimSpace(c.Discord.ApproveEmoji)
	if c.Discord.ApproveEmoji == "" {
		c.Discord.ApproveEmoji = defaultApproveEmoji
	}
	c.Discord.RejectEmoji = strings.TrimSpace(c.Discord.RejectEmoji)
	if c.Discord.RejectEmoji == "" {
		c.Discord.RejectEmoji = defaultRejectEmoji
	}
}

func (c *Config) normalizeMedium() {
	c.Medium.IntegrationToken = strings.TrimSpace(c.Medium.IntegrationToken)
	c.Medium.BaseURL = strings.TrimRight(strings.TrimSpace(c.Medium.BaseURL), "/")
	if c.Medium.BaseURL == "" {
		c.Medium.BaseURL = defaultMediumBaseURL
	}
	c.Medium.PublishStatus = strings.ToLower(strings.TrimSpace(c.Medium.PublishStatus))
	if c.Medium.PublishStatus == "" {
		c.Medium.PublishStatus = defaultMediumPublishStatus
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
