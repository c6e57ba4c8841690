package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"draftbot/internal/logging"
	"draftbot/internal/services"
	"draftbot/internal/textutil"
)

const (
	truncationSuffix   = "... [content truncated for audio]"
	truncationHeadroom = 100
	defaultMaxChars    = 5000
	defaultTimeout     = 60 * time.Second
	maxAudioBytes      = 200 << 20
)

var audioExtensions = map[string]struct{}{".mp3": {}, ".wav": {}, ".ogg": {}, ".flac": {}, ".opus": {}}

// Config captures the Home Assistant TTS settings.
type Config struct {
	BaseURL        string
	Token          string
	EntityID       string
	Language       string
	MaxChars       int
	AudioDir       string
	TimeoutSeconds int
}

// Artifact is a generated audio file.
type Artifact struct {
	Path        string
	Size        int64
	SourceURL   string
	Chars       int
	Truncated   bool
	CreatedAt   time.Time
	ContentType string
}

// Client talks to the Home Assistant REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a TTS client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "homeassistant")
	return c
}

// PrepareText trims text and cuts it to the configured character budget,
// leaving headroom for the truncation notice. It reports whether it cut.
func (c *Client) PrepareText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= c.cfg.MaxChars {
		return text, false
	}
	runes := []rune(text)
	suffix := utf8.RuneCountInString(truncationSuffix)
	if c.cfg.MaxChars <= suffix {
		return string(runes[:c.cfg.MaxChars]), true
	}
	keep := c.cfg.MaxChars - truncationHeadroom
	if keep <= 0 {
		keep = max(c.cfg.MaxChars-suffix, 1)
	}
	return string(runes[:keep]) + truncationSuffix, true
}

// Synthesize renders text to audio and saves it as <audio_dir>/<stem>-<id>.<ext>.
func (c *Client) Synthesize(ctx context.Context, stem, text string) (Artifact, error) {
	if err := c.validate(); err != nil {
		return Artifact{}, &services.SynthesisError{Op: "validate", Err: err}
	}
	message, truncated := c.PrepareText(text)
	if message == "" {
		return Artifact{}, &services.SynthesisError{Op: "validate", Err: errors.New("draft text is empty")}
	}

	audioURL, err := c.requestURL(ctx, message)
	if err != nil {
		return Artifact{}, &services.SynthesisError{Op: "tts_get_url", Err: err}
	}

	artifact, err := c.download(ctx, stem, audioURL)
	if err != nil {
		return Artifact{}, &services.SynthesisError{Op: "download", Err: err}
	}
	artifact.Chars = utf8.RuneCountInString(message)
	artifact.Truncated = truncated

	c.logger.Info("audio synthesized",
		logging.Event("audio_synthesized"),
		logging.String("audio_path", artifact.Path),
		logging.Int64("audio_size_bytes", artifact.Size),
		logging.Int("char_count", artifact.Chars),
		logging.Bool("truncated", truncated),
	)
	return artifact, nil
}

func (c *Client) validate() error {
	if c.cfg.BaseURL == "" {
		return errors.New("home assistant url not configured")
	}
	if c.cfg.Token == "" {
		return errors.New("home assistant token not configured")
	}
	name, ok := strings.CutPrefix(c.cfg.EntityID, "tts.")
	if !ok || name == "" {
		return fmt.Errorf("invalid tts entity id %q", c.cfg.EntityID)
	}
	if c.cfg.AudioDir == "" {
		return errors.New("audio directory not configured")
	}
	return nil
}

type ttsURLRequest struct {
	EngineID string `json:"engine_id"`
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
	Cache    bool   `json:"cache"`
}

type ttsURLResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func (c *Client) requestURL(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(ttsURLRequest{
		EngineID: c.cfg.EntityID,
		Message:  message,
		Language: c.cfg.Language,
		Cache:    false,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/tts_get_url", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed ttsURLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return c.resolveAudioURL(parsed)
}

func (c *Client) resolveAudioURL(resp ttsURLResponse) (string, error) {
	raw := strings.TrimSpace(resp.URL)
	if raw == "" {
		raw = strings.TrimSpace(resp.Path)
	}
	if raw == "" {
		return "", errors.New("response did not include an audio url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse audio url: %w", err)
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	base, err := url.Parse(c.cfg.BaseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return base.ResolveReference(parsed).String(), nil
}

func (c *Client) download(ctx context.Context, stem, audioURL string) (Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Artifact{}, classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Artifact{}, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := os.MkdirAll(c.cfg.AudioDir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create audio dir: %w", err)
	}
	target := filepath.Join(c.cfg.AudioDir, artifactName(stem, audioURL))
	tmp := target + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Artifact{}, fmt.Errorf("create audio file: %w", err)
	}
	written, copyErr := io.Copy(out, io.LimitReader(resp.Body, maxAudioBytes+1))
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("write audio: %w", classifyTransportError(copyErr))
	case closeErr != nil:
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("close audio file: %w", closeErr)
	case written == 0:
		_ = os.Remove(tmp)
		return Artifact{}, errors.New("audio response was empty")
	case written > maxAudioBytes:
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("audio response exceeds %d bytes", maxAudioBytes)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return Artifact{}, fmt.Errorf("finalize audio file: %w", err)
	}

	return Artifact{
		Path:        target,
		Size:        written,
		SourceURL:   audioURL,
		CreatedAt:   c.now(),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func artifactName(stem, audioURL string) string {
	stem = textutil.SanitizeFileName(stem)
	if stem == "" {
		stem = "draft"
	}
	ext := ".mp3"
	if parsed, err := url.Parse(audioURL); err == nil {
		if candidate := strings.ToLower(path.Ext(parsed.Path)); candidate != "" {
			if _, ok := audioExtensions[candidate]; ok {
				ext = candidate
			}
		}
	}
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "homeassistant", "request", "request timed out", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "homeassistant", "request", "request timed out", err)
	}
	return services.Wrap(services.ErrTransient, "homeassistant", "request", "service unreachable", err)
}
