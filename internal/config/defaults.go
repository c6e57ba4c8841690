package config

const (
	defaultConfigPath           = "~/.config/draftbot/config.toml"
	defaultDraftsDir            = "~/blog/drafts"
	defaultApprovedDir          = "~/blog/approved"
	defaultAudioDir             = "~/.local/share/draftbot/audio"
	defaultStateDir             = "~/.local/share/draftbot"
	defaultLogDir               = "~/.local/share/draftbot/logs"
	defaultDataDir              = "~/.local/share/draftbot/data"
	defaultWatchPollInterval    = 30
	defaultWatchSettleMillis    = 500
	defaultTTSEntityID          = "tts.google_translate_say"
	defaultTTSLanguage          = "en-US"
	defaultTTSMaxChars          = 5000
	defaultTTSTimeoutSeconds    = 60
	defaultApproveEmoji         = "✅"
	defaultRejectEmoji          = "❌"
	defaultMaxUploadBytes       = 25 * 1024 * 1024
	defaultDiscordTimeout       = 30
	defaultApprovalSettleMillis = 1500
	defaultAPIBind              = "127.0.0.1:7878"
	defaultLLMModel             = "gpt-4"
	defaultLLMTimeoutSeconds    = 120
	defaultResearchTopics       = 10
	defaultReportTopics         = 5
	defaultScheduleHour         = 8
	defaultMediumBaseURL        = "https://api.medium.com/v1"
	defaultMediumPublishStatus  = "draft"
	defaultMediumTimeout        = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

var defaultExtensions = []string{".md", ".txt"}

var defaultMediumTags = []string{"HCM", "HR", "Thought Leadership"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DraftsDir:   defaultDraftsDir,
			ApprovedDir: defaultApprovedDir,
			AudioDir:    defaultAudioDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
			DataDir:     defaultDataDir,
		},
		Watch: Watch{
			Extensions:      append([]string(nil), defaultExtensions...),
			PollInterval:    defaultWatchPollInterval,
			SettleMillis:    defaultWatchSettleMillis,
			ProcessExisting: true,
		},
		HomeAssistant: HomeAssistant{
			TTSEntityID:    defaultTTSEntityID,
			TTSLanguage:    defaultTTSLanguage,
			MaxChars:       defaultTTSMaxChars,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Discord: Discord{
			ApproveEmoji:   defaultApproveEmoji,
			RejectEmoji:    defaultRejectEmoji,
			MaxUploadBytes: defaultMaxUploadBytes,
			TimeoutSeconds: defaultDiscordTimeout,
		},
		Approval: Approval{
			SettleMillis: defaultApprovalSettleMillis,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		LLM: LLM{
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Pipeline: Pipeline{
			ResearchTopics: defaultResearchTopics,
			ReportTopics:   defaultReportTopics,
			ScheduleHour:   defaultScheduleHour,
		},
		Medium: Medium{
			BaseURL:        defaultMediumBaseURL,
			Tags:           append([]string(nil), defaultMediumTags...),
			PublishStatus:  defaultMediumPublishStatus,
			TimeoutSeconds: defaultMediumTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
