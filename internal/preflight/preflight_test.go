package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"draftbot/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHomeAssistant_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/" || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"message":"API running."}`))
	}))
	defer srv.Close()

	result := CheckHomeAssistant(context.Background(), srv.URL+"/", "good-token")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckHomeAssistant_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckHomeAssistant(context.Background(), srv.URL, "bad-token")
	if result.Passed || result.Detail != "auth failed (invalid token)" {
		t.Fatalf("expected auth failure, got %+v", result)
	}
}

func TestCheckHomeAssistant_Missing(t *testing.T) {
	if CheckHomeAssistant(context.Background(), "", "token").Passed {
		t.Fatal("expected failure for missing URL")
	}
	if CheckHomeAssistant(context.Background(), "http://localhost", "").Passed {
		t.Fatal("expected failure for missing token")
	}
}

func TestCheckDiscord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bot good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/channels/1000" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1000","name":"drafts"}`))
	}))
	defer srv.Close()

	ok := CheckDiscord(context.Background(), srv.URL, "good", "1000")
	if !ok.Passed || ok.Detail != "channel #drafts reachable" {
		t.Fatalf("expected pass, got %+v", ok)
	}
	if res := CheckDiscord(context.Background(), srv.URL, "bad", "1000"); res.Passed {
		t.Fatal("expected auth failure")
	}
	if res := CheckDiscord(context.Background(), srv.URL, "good", "2000"); res.Passed || res.Detail != "bot cannot see the approval channel" {
		t.Fatalf("expected channel failure, got %+v", res)
	}
	if res := CheckDiscord(context.Background(), srv.URL, "good", ""); res.Passed {
		t.Fatal("expected failure for missing channel")
	}
}

func TestCheckJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if res := CheckJournal(context.Background(), cfg.JournalPath()); !res.Passed {
		t.Fatalf("missing journal should pass, got %+v", res)
	}
	testsupport.MustOpenJournal(t, cfg)
	if res := CheckJournal(context.Background(), cfg.JournalPath()); !res.Passed {
		t.Fatalf("expected existing journal to pass, got %+v", res)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestDirectories_IncludesOptionalFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRejectedDir(), testsupport.WithLLM("http://127.0.0.1:1"))
	results := Directories(cfg)
	if len(results) != 7 {
		t.Fatalf("expected 7 folder checks, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_SkipsDisabledFeatures(t *testing.T) {
	ha := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ha.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithHomeAssistant(ha.URL))
	cfg.Pipeline.Enabled = false
	cfg.Medium.Enabled = false

	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "LLM" || r.Name == "Medium" {
			t.Fatalf("unexpected %s check when disabled", r.Name)
		}
	}
	found := false
	for _, r := range results {
		if r.Name == "Home Assistant" {
			found = true
			if !r.Passed {
				t.Errorf("Home Assistant check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected Home Assistant check in results")
	}
}

func TestCheckDaemon_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = addr
	res := CheckDaemon(context.Background(), cfg)
	if res.Passed || res.Detail != "not running" {
		t.Fatalf("expected not running, got %+v", res)
	}
}
