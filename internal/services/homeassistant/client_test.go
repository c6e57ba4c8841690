package homeassistant

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
	"time"
	"unicode/utf8"

	"draftbot/internal/services"
)

type fakeHA struct {
	t         *testing.T
	gotBody   ttsURLRequest
	urlStatus int
	audio     []byte
}

func (f *fakeHA) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tts_get_url", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			f.t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			f.t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&f.gotBody); err != nil {
			f.t.Errorf("decode body: %v", err)
		}
		if f.urlStatus != 0 {
			http.Error(w, "entity not found", f.urlStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"url":  "",
			"path": "/api/tts_proxy/abc123.mp3",
		})
	})
	mux.HandleFunc("/api/tts_proxy/abc123.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(f.audio)
	})
	return mux
}

func newTestClient(t *testing.T, baseURL string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:  baseURL,
		Token:    "secret",
		EntityID: "tts.google_translate_say",
		Language: "en-US",
		MaxChars: 5000,
		AudioDir: t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestSynthesizeDownloadsAudio(t *testing.T) {
	fake := &fakeHA{t: t, audio: []byte("ID3-fake-mp3")}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL+"/", nil)
	artifact, err := client.Synthesize(context.Background(), "post", "Hello world")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if fake.gotBody.EngineID != "tts.google_translate_say" || fake.gotBody.Message != "Hello world" || fake.gotBody.Language != "en-US" {
		t.Fatalf("unexpected request body: %+v", fake.gotBody)
	}
	if filepath.Dir(artifact.Path) != client.cfg.AudioDir {
		t.Fatalf("artifact saved outside audio dir: %s", artifact.Path)
	}
	base := filepath.Base(artifact.Path)
	if !strings.HasPrefix(base, "post-") || filepath.Ext(base) != ".mp3" {
		t.Fatalf("unexpected artifact name %q", base)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "ID3-fake-mp3" || artifact.Size != int64(len(data)) {
		t.Fatalf("unexpected artifact content %q size %d", data, artifact.Size)
	}
	if artifact.Truncated {
		t.Fatal("did not expect truncation")
	}
}

func TestSynthesizeTruncatesLongText(t *testing.T) {
	fake := &fakeHA{t: t, audio: []byte("audio")}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	artifact, err := client.Synthesize(context.Background(), "long", strings.Repeat("a", 6000))
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !artifact.Truncated {
		t.Fatal("expected truncation")
	}
	if !strings.HasSuffix(fake.gotBody.Message, truncationSuffix) {
		t.Fatalf("expected truncation suffix, got %q", fake.gotBody.Message[len(fake.gotBody.Message)-40:])
	}
	if want := 4900 + len(truncationSuffix); len(fake.gotBody.Message) != want {
		t.Fatalf("unexpected message length %d want %d", len(fake.gotBody.Message), want)
	}
}

func TestPrepareTextStaysWithinSmallBudgets(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, limit := range []int{100, 60, 34, 20, 1} {
		client := NewClient(Config{MaxChars: limit})
		got, cut := client.PrepareText(text)
		if !cut {
			t.Fatalf("max_chars=%d: expected truncation", limit)
		}
		if n := utf8.RuneCountInString(got); n > limit {
			t.Fatalf("max_chars=%d: message has %d chars: %q", limit, n, got)
		}
	}
}

func TestSynthesizeErrors(t *testing.T) {
	fake := &fakeHA{t: t, audio: []byte("audio")}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	tests := []struct {
		name   string
		mutate func(*Config)
		text   string
		status int
	}{
		{name: "empty text", text: "   "},
		{name: "invalid entity", mutate: func(c *Config) { c.EntityID = "media_player.kitchen" }, text: "hi"},
		{name: "http error", text: "hi", status: http.StatusBadRequest},
		{name: "unreachable", mutate: func(c *Config) { c.BaseURL = "http://127.0.0.1:1" }, text: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake.urlStatus = tt.status
			client := newTestClient(t, server.URL, tt.mutate)
			_, err := client.Synthesize(context.Background(), "post", tt.text)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrSynthesis) {
				t.Fatalf("expected synthesis error, got %v", err)
			}
			var synthErr *services.SynthesisError
			if !errors.As(err, &synthErr) {
				t.Fatalf("expected *SynthesisError, got %T", err)
			}
			entries, _ := os.ReadDir(client.cfg.AudioDir)
			if len(entries) != 0 {
				t.Fatalf("expected no audio files after failure, got %d", len(entries))
			}
		})
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Synthesize(ctx, "post", "hi")
	if !errors.Is(err, services.ErrTimeout) || !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected timeout synthesis error, got %v", err)
	}
}

func TestResolveAbsoluteURL(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://ha.local:8123"})
	got, err := client.resolveAudioURL(ttsURLResponse{URL: "http://cdn.local/a.mp3"})
	if err != nil || got != "http://cdn.local/a.mp3" {
		t.Fatalf("unexpected url %q err %v", got, err)
	}
	if _, err := client.resolveAudioURL(ttsURLResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}
