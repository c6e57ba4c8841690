package drafts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Format identifies how draft text is written.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatPlain    Format = "plain"
)

// Draft is a submitted text file awaiting approval.
type Draft struct {
	Path      string
	Text      string
	Format    Format
	CreatedAt time.Time
}

// Load reads the draft at path. CreatedAt is the file modification time.
func Load(path string) (Draft, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Draft{}, fmt.Errorf("resolve draft path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Draft{}, err
	}
	if info.IsDir() {
		return Draft{}, fmt.Errorf("%s is a directory", abs)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Draft{}, err
	}
	if !utf8.Valid(data) {
		return Draft{}, fmt.Errorf("%s is not valid UTF-8 text", abs)
	}
	return New(abs, string(data), info.ModTime()), nil
}

// New builds a Draft from text already in memory.
func New(path, text string, createdAt time.Time) Draft {
	return Draft{
		Path:      path,
		Text:      text,
		Format:    DetectFormat(path, text),
		CreatedAt: createdAt,
	}
}

// Name returns the draft file name.
func (d Draft) Name() string {
	return filepath.Base(d.Path)
}

// Stem returns the file name without its extension.
func (d Draft) Stem() string {
	name := d.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// CharCount returns the number of characters (runes) in the draft.
func (d Draft) CharCount() int {
	return utf8.RuneCountInString(d.Text)
}

// Title returns the first level-one heading, then the first heading of any
// level, then the first non-empty line, falling back to the file stem.
func (d Draft) Title() string {
	if d.Format == FormatMarkdown {
		if title := markdownTitle(d.Text); title != "" {
			return title
		}
	}
	for _, line := range strings.Split(d.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return Truncate(strings.TrimSpace(strings.TrimLeft(line, "#")), 100, "…")
	}
	return d.Stem()
}

// SpeechText returns the draft as plain prose suitable for text-to-speech.
func (d Draft) SpeechText() string {
	if d.Format == FormatMarkdown {
		return markdownSpeech(d.Text)
	}
	return strings.TrimSpace(d.Text)
}

// Excerpt returns at most limit characters of the raw text, suffixed with
// "..." when anything was cut.
func (d Draft) Excerpt(limit int) string {
	return Truncate(strings.TrimSpace(d.Text), limit, "...")
}

// Truncate cuts s to at most limit runes and appends suffix when it was cut.
func Truncate(s string, limit int, suffix string) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:limit]), func(r rune) bool { return r == ' ' || r == '\n' }) + suffix
}
