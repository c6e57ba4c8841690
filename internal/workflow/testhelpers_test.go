package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/drafts"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/outcome"
	"draftbot/internal/services/homeassistant"
	"draftbot/internal/testsupport"
)

type stubSynthesizer struct {
	dir   string
	name  string
	err   error
	texts []string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, stem, text string) (homeassistant.Artifact, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return homeassistant.Artifact{}, s.err
	}
	name := s.name
	if name == "" {
		name = stem + "-audio"
	}
	path := filepath.Join(s.dir, name+".mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		return homeassistant.Artifact{}, err
	}
	return homeassistant.Artifact{Path: path, Size: 3, Chars: len(text)}, nil
}

type stubAnnouncer struct {
	mu        sync.Mutex
	nextID    []string
	published []drafts.Draft
	decided   []approval.Tracker
	reactions map[string][]approval.Reaction
	err       error
}

func (a *stubAnnouncer) ChannelID() string { return "c1" }

func (a *stubAnnouncer) Publish(_ context.Context, d drafts.Draft, _ homeassistant.Artifact) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	if len(a.nextID) == 0 {
		return "", errors.New("no message ids left")
	}
	id := a.nextID[0]
	a.nextID = a.nextID[1:]
	a.published = append(a.published, d)
	return id, nil
}

func (a *stubAnnouncer) MarkDecided(_ context.Context, t approval.Tracker) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decided = append(a.decided, t)
	return nil
}

func (a *stubAnnouncer) Reactions(_ context.Context, _, messageID, _ string, _ time.Time) ([]approval.Reaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reactions[messageID], nil
}

func (a *stubAnnouncer) publishedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.published)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	cfg       *config.Config
	store     *journal.Store
	synth     *stubSynthesizer
	announcer *stubAnnouncer
	manager   *Manager
	clock     *testClock
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenJournal(t, cfg)
	clock := &testClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	synth := &stubSynthesizer{dir: cfg.Paths.AudioDir}
	announcer := &stubAnnouncer{nextID: []string{"m1", "m2", "m3"}}
	table := approval.NewTable(cfg.ApprovalSettle(), approval.WithClock(clock.Now))
	table.SetBotUserID("bot")
	manager := NewManager(cfg, table, Deps{
		Synthesizer: synth,
		Announcer:   announcer,
		Finalizer:   outcome.New(cfg, logging.NewNop(), outcome.WithClock(clock.Now)),
		Journal:     store,
	}, logging.NewNop(), WithClock(clock.Now))
	return &fixture{cfg: cfg, store: store, synth: synth, announcer: announcer, manager: manager, clock: clock}
}

func (f *fixture) writeDraft(t *testing.T, name, body string) string {
	t.Helper()
	return testsupport.WriteDraft(t, f.cfg, name, body)
}

