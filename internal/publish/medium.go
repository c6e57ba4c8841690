package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"draftbot/internal/config"
	"draftbot/internal/services"
)

// maxMediumTags is the number of tags the Medium API accepts per post.
const maxMediumTags = 5

// HTTPDoer describes the HTTP client used by the Medium client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MediumUser is the account behind an integration token.
type MediumUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// MediumPost is a post creation request.
type MediumPost struct {
	Title         string   `json:"title"`
	ContentFormat string   `json:"contentFormat"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	PublishStatus string   `json:"publishStatus"`
}

// MediumPostResult is the created post.
type MediumPostResult struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	AuthorID      string `json:"authorId"`
	URL           string `json:"url"`
	PublishStatus string `json:"publishStatus"`
}

type mediumEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
}

// MediumClient talks to the Medium REST API.
type MediumClient struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// NewMediumClient constructs a client from configuration. A nil client means
// Medium publishing is disabled.
func NewMediumClient(cfg *config.Config, client HTTPDoer) *MediumClient {
	if cfg == nil || !cfg.Medium.Enabled {
		return nil
	}
	token := strings.TrimSpace(cfg.Medium.IntegrationToken)
	if token == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Medium.TimeoutSeconds) * time.Second}
	}
	return &MediumClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Medium.BaseURL), "/"),
		token:   token,
		client:  client,
	}
}

// Me returns the account owning the integration token.
func (c *MediumClient) Me(ctx context.Context) (MediumUser, error) {
	var user MediumUser
	err := c.do(ctx, http.MethodGet, "/me", nil, &user)
	return user, err
}

// CreatePost creates post under userID.
func (c *MediumClient) CreatePost(ctx context.Context, userID string, post MediumPost) (MediumPostResult, error) {
	if strings.TrimSpace(userID) == "" {
		return MediumPostResult{}, services.Wrap(services.ErrValidation, "medium", "create post", "user id required", nil)
	}
	if post.ContentFormat == "" {
		post.ContentFormat = "markdown"
	}
	if len(post.Tags) > maxMediumTags {
		post.Tags = post.Tags[:maxMediumTags]
	}
	var result MediumPostResult
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/posts", post, &result)
	return result, err
}

func (c *MediumClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode medium request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build medium request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "utf-8")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "medium", strings.ToLower(method)+" "+path, "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "medium", strings.ToLower(method)+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	var env mediumEnvelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	decodeErr := json.Unmarshal(data, &env)
	if resp.StatusCode >= http.StatusMultipleChoices {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if decodeErr == nil && len(env.Errors) > 0 {
			msg = fmt.Sprintf("status %d: %s", resp.StatusCode, env.Errors[0].Message)
		}
		marker := services.ErrPublish
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "medium", strings.ToLower(method)+" "+path, msg, nil)
	}
	if decodeErr != nil {
		return services.Wrap(services.ErrPublish, "medium", strings.ToLower(method)+" "+path, "decode response", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return services.Wrap(services.ErrPublish, "medium", strings.ToLower(method)+" "+path, "decode data", err)
	}
	return nil
}
