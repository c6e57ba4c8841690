package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"draftbot/internal/services"
)

const (
	defaultHTTPTimeout   = 120 * time.Second
	defaultRetryAttempts = 2
	defaultModel         = "gpt-4"
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Request is one chat completion call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client wraps the chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retries    int
	api        openai.Client
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

// WithRetryMaxAttempts overrides how many times a failed request is retried.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts >= 0 {
			c.retries = attempts
		}
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retries:    defaultRetryAttempts,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(client.cfg.APIKey),
		option.WithHTTPClient(client.httpClient),
		option.WithMaxRetries(client.retries),
	}
	if client.cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(client.cfg.BaseURL))
	}
	client.api = openai.NewClient(requestOpts...)
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete issues a chat completion request and returns the reply text with
// surrounding code fences removed.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	system := strings.TrimSpace(req.System)
	user := strings.TrimSpace(req.User)
	if system == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "system prompt required", nil)
	}
	if user == "" {
		return "", services.Wrap(services.ErrValidation, "llm", "complete", "user prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "llm", "complete", "api key required", nil)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "llm", "complete", "request timed out", err)
		}
		return "", services.Wrap(services.ErrTransient, "llm", "complete", "chat completion failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "llm", "complete", "empty choices", nil)
	}
	choice := resp.Choices[0]
	content := StripCodeFence(choice.Message.Content)
	if content == "" {
		return "", services.Wrap(services.ErrTransient, "llm", "complete",
			fmt.Sprintf("empty content (finish_reason=%q, refusal=%q)", choice.FinishReason, choice.Message.Refusal), nil)
	}
	return content, nil
}

// HealthCheck issues a tiny completion to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	reply, err := c.Complete(ctx, Request{
		System:    "Reply with the single word OK.",
		User:      "ping",
		MaxTokens: 5,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !strings.Contains(strings.ToUpper(reply), "OK") {
		return fmt.Errorf("llm health: unexpected reply %q", reply)
	}
	return nil
}

// StripCodeFence trims whitespace and removes one surrounding ``` fence, which
// models often add around whole-document replies.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if idx := strings.Index(inner, "\n"); idx >= 0 {
		// Drop the language tag line.
		if tag := strings.TrimSpace(inner[:idx]); !strings.Contains(tag, " ") {
			inner = inner[idx+1:]
		}
	}
	return strings.TrimSpace(inner)
}
