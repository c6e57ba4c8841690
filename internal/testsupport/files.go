package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"draftbot/internal/config"
)

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteDraft drops a Markdown draft into the configured drafts folder and
// returns its path.
func WriteDraft(t testing.TB, cfg *config.Config, name, body string) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.DraftsDir, name)
	WriteText(t, path, body)
	return path
}
