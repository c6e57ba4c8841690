package publish_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"draftbot/internal/config"
	"draftbot/internal/logging"
	"draftbot/internal/publish"
	"draftbot/internal/services"
	"draftbot/internal/testsupport"
)

type mediumServer struct {
	posts      []publish.MediumPost
	auth       []string
	postStatus int
}

func (m *mediumServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		m.auth = append(m.auth, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "u123", "username": "writer"}})
	})
	mux.HandleFunc("POST /v1/users/u123/posts", func(w http.ResponseWriter, r *http.Request) {
		var post publish.MediumPost
		if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
			t.Errorf("decode post: %v", err)
		}
		m.posts = append(m.posts, post)
		if m.postStatus != 0 {
			w.WriteHeader(m.postStatus)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": []any{map[string]any{"message": "Token was invalid.", "code": 6003}}})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "p1", "url": "https://medium.com/@writer/p1", "publishStatus": post.PublishStatus}})
	})
	return mux
}

func newMediumConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Medium.Enabled = true
	cfg.Medium.IntegrationToken = "medium-token"
	cfg.Medium.BaseURL = baseURL + "/v1"
	cfg.Medium.Tags = []string{"HCM", "HR", "Thought Leadership", "Work", "People", "Extra"}
	return cfg
}

func writeApproved(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.ApprovedDir, "post.md")
	testsupport.WriteText(t, path, "# Sample HCM Post\n\nThis is a test post about HCM trends.\n")
	return path
}

func TestPublishApprovedPostsToMedium(t *testing.T) {
	medium := &mediumServer{}
	srv := httptest.NewServer(medium.handler(t))
	defer srv.Close()
	cfg := newMediumConfig(t, srv.URL)
	path := writeApproved(t, cfg)

	p := publish.New(cfg, publish.NewMediumClient(cfg, srv.Client()), logging.NewNop())
	if err := p.PublishApproved(context.Background(), path); err != nil {
		t.Fatalf("PublishApproved: %v", err)
	}

	if len(medium.posts) != 1 {
		t.Fatalf("expected one post, got %d", len(medium.posts))
	}
	post := medium.posts[0]
	if post.Title != "Sample HCM Post" || post.ContentFormat != "markdown" || post.PublishStatus != "draft" {
		t.Fatalf("unexpected post %+v", post)
	}
	if strings.Contains(post.Content, "# Sample HCM Post") || !strings.Contains(post.Content, "HCM trends") {
		t.Fatalf("expected body without title line, got %q", post.Content)
	}
	if len(post.Tags) != 5 {
		t.Fatalf("expected tags capped at 5, got %v", post.Tags)
	}
	if medium.auth[0] != "Bearer medium-token" {
		t.Fatalf("unexpected auth header %q", medium.auth[0])
	}

	social, err := os.ReadFile(publish.SocialPath(path))
	if err != nil {
		t.Fatalf("read social file: %v", err)
	}
	if !strings.Contains(string(social), "LinkedIn:\nThis is a test post about HCM trends.... #HCM #HR #ThoughtLeadership") ||
		!strings.Contains(string(social), "Twitter:\nSample HCM Post: This is a test post about HCM trends.... #HCM #HR") {
		t.Fatalf("unexpected social file:\n%s", social)
	}
}

func TestPublishApprovedMediumError(t *testing.T) {
	medium := &mediumServer{postStatus: http.StatusUnauthorized}
	srv := httptest.NewServer(medium.handler(t))
	defer srv.Close()
	cfg := newMediumConfig(t, srv.URL)
	path := writeApproved(t, cfg)

	p := publish.New(cfg, publish.NewMediumClient(cfg, srv.Client()), logging.NewNop())
	err := p.PublishApproved(context.Background(), path)
	if !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Token was invalid.") {
		t.Fatalf("expected medium error message, got %v", err)
	}
	if _, statErr := os.Stat(publish.SocialPath(path)); statErr != nil {
		t.Fatalf("snippets should still be written: %v", statErr)
	}
}

func TestNewMediumClientDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if publish.NewMediumClient(cfg, nil) != nil {
		t.Fatal("expected nil client when medium is disabled")
	}
	cfg.Medium.Enabled = true
	if publish.NewMediumClient(cfg, nil) != nil {
		t.Fatal("expected nil client without a token")
	}
}

func TestPublishApprovedWithoutMedium(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeApproved(t, cfg)
	p := publish.New(cfg, nil, logging.NewNop())
	if err := p.PublishApproved(context.Background(), path); err != nil {
		t.Fatalf("PublishApproved: %v", err)
	}
	if _, err := os.Stat(publish.SocialPath(path)); err != nil {
		t.Fatalf("expected social file: %v", err)
	}
}
