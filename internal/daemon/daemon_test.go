package daemon

import (
	"context"
	"errors"
	"os"
	"strconv"
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
	"draftbot/internal/workflow"
)

type announcerStub struct {
	mu      sync.Mutex
	decided []approval.Tracker
}

func (a *announcerStub) ChannelID() string { return "1000" }

func (a *announcerStub) Publish(context.Context, drafts.Draft, homeassistant.Artifact) (string, error) {
	return "m1", nil
}

func (a *announcerStub) MarkDecided(_ context.Context, t approval.Tracker) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.decided = append(a.decided, t)
	return nil
}

func (a *announcerStub) Reactions(context.Context, string, string, string, time.Time) ([]approval.Reaction, error) {
	return nil, nil
}

type daemonFixture struct {
	cfg     *config.Config
	store   *journal.Store
	manager *workflow.Manager
	hub     *logging.StreamHub
	daemon  *Daemon
}

func newDaemonFixture(t *testing.T, opts ...Option) *daemonFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	hub := logging.NewStreamHub(64)
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", OutputPaths: []string{os.DevNull}, Stream: hub})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	table := approval.NewTable(cfg.ApprovalSettle())
	mgr := workflow.NewManager(cfg, table, workflow.Deps{
		Announcer: &announcerStub{},
		Finalizer: outcome.New(cfg, logger),
		Journal:   store,
	}, logger)

	d, err := New(cfg, store, logger, mgr, append([]Option{WithLogStream(hub)}, opts...)...)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &daemonFixture{cfg: cfg, store: store, manager: mgr, hub: hub, daemon: d}
}

// registerDraft writes a draft and tracks it as awaiting approval under messageID.
func (f *daemonFixture) registerDraft(t *testing.T, messageID, name string) string {
	t.Helper()
	path := testsupport.WriteDraft(t, f.cfg, name, "# Title\n\nBody text.\n")
	p := approval.Pending{
		MessageID:   messageID,
		ChannelID:   "1000",
		DraftPath:   path,
		PublishedAt: time.Now().UTC(),
	}
	if _, err := f.manager.Table().Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.store.SavePending(context.Background(), p); err != nil {
		t.Fatalf("SavePending: %v", err)
	}
	return path
}

func TestDaemonStartStop(t *testing.T) {
	var started, stopped []string
	svc := func(name string) Service {
		return Service{
			Name:  name,
			Start: func(context.Context) error { started = append(started, name); return nil },
			Stop:  func() { stopped = append(stopped, name) },
			Health: func() workflow.ComponentHealth {
				return workflow.HealthyComponent(name)
			},
		}
	}
	f := newDaemonFixture(t, WithServices(svc("watcher"), svc("gateway")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := f.daemon.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.JournalPath != f.cfg.JournalPath() || status.LockFilePath != f.cfg.LockPath() {
		t.Fatalf("unexpected paths in status: %+v", status)
	}
	if len(status.Components) != 3 || status.Components[0].Name != "journal" || !status.Components[0].Ready {
		t.Fatalf("unexpected components: %+v", status.Components)
	}

	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	f.daemon.Stop()
	if f.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if len(started) != 2 || started[0] != "watcher" {
		t.Fatalf("unexpected start order: %v", started)
	}
	if len(stopped) != 2 || stopped[0] != "gateway" || stopped[1] != "watcher" {
		t.Fatalf("expected reverse stop order, got %v", stopped)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	first := newDaemonFixture(t)
	ctx := context.Background()
	if err := first.daemon.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	pidPath := first.cfg.LockPath() + ".pid"
	want := strconv.Itoa(os.Getpid()) + "\n"
	if data, err := os.ReadFile(pidPath); err != nil || string(data) != want {
		t.Fatalf("pid file = %q err=%v", data, err)
	}
	if err := os.WriteFile(pidPath, []byte("12345\n"), 0o644); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	table := approval.NewTable(0)
	mgr := workflow.NewManager(first.cfg, table, workflow.Deps{
		Announcer: &announcerStub{},
		Finalizer: outcome.New(first.cfg, logging.NewNop()),
		Journal:   first.store,
	}, logging.NewNop())
	second, err := New(first.cfg, first.store, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if data, err := os.ReadFile(pidPath); err != nil || string(data) != "12345\n" {
		t.Fatalf("second instance touched the pid file: %q err=%v", data, err)
	}

	first.daemon.Stop()
	if _, err := os.Stat(pidPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pid file left after Stop: %v", err)
	}
}

func TestDaemonServiceStartFailureReleasesLock(t *testing.T) {
	f := newDaemonFixture(t, WithServices(Service{
		Name:  "gateway",
		Start: func(context.Context) error { return os.ErrPermission },
	}))
	ctx := context.Background()
	if err := f.daemon.Start(ctx); err == nil {
		t.Fatal("expected start failure")
	}
	if f.manager.Status().Running {
		t.Fatal("workflow left running after failed start")
	}
	f.daemon.services = nil
	if err := f.daemon.Start(ctx); err != nil {
		t.Fatalf("lock not released after failed start: %v", err)
	}
}

func TestDaemonDecideRejectsUnknownDecision(t *testing.T) {
	f := newDaemonFixture(t)
	f.registerDraft(t, "m1", "post.md")
	if _, _, err := f.daemon.Decide(context.Background(), "m1", "maybe", ""); err == nil {
		t.Fatal("expected validation error")
	}
}
