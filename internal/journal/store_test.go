package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.OpenPath(filepath.Join(t.TempDir(), "state", "draftbot.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenReusesExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftbot.db")
	store, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	ctx := context.Background()
	if err := store.MarkSeen(ctx, "/drafts/a.md", journal.SeenAnnounced, "", time.Now()); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Seen(ctx, "/drafts/a.md"); err != nil || !ok {
		t.Fatalf("expected seen after reopen, ok=%v err=%v", ok, err)
	}
}

func TestOpenRejectsNewerJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftbot.db")
	store, err := journal.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	_ = db.Close()

	if _, err := journal.OpenPath(path); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSeenSetRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	if _, ok, err := store.Seen(ctx, "/drafts/post.md"); err != nil || ok {
		t.Fatalf("expected unseen, ok=%v err=%v", ok, err)
	}
	if err := store.MarkSeen(ctx, "/drafts/post.md", journal.SeenFailed, "tts unreachable", at); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	row, ok, err := store.Seen(ctx, "/drafts/post.md")
	if err != nil || !ok {
		t.Fatalf("Seen: ok=%v err=%v", ok, err)
	}
	if row.Status != journal.SeenFailed || row.Detail != "tts unreachable" || !row.SeenAt.Equal(at) {
		t.Fatalf("unexpected row: %+v", row)
	}

	if err := store.MarkSeen(ctx, "/drafts/post.md", journal.SeenAnnounced, "", at.Add(time.Hour)); err != nil {
		t.Fatalf("MarkSeen update: %v", err)
	}
	row, _, err = store.Seen(ctx, "/drafts/post.md")
	if err != nil || row.Status != journal.SeenAnnounced {
		t.Fatalf("expected announced, got %+v err=%v", row, err)
	}

	removed, err := store.Forget(ctx, "/drafts/post.md")
	if err != nil || !removed {
		t.Fatalf("Forget: removed=%v err=%v", removed, err)
	}
	if _, ok, _ := store.Seen(ctx, "/drafts/post.md"); ok {
		t.Fatal("expected path forgotten")
	}
}

func TestPendingAndDecisions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	published := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	first := approval.Pending{MessageID: "m1", ChannelID: "c1", DraftPath: "/drafts/post.md", AudioPath: "/audio/a1.mp3", Title: "Hello world", PublishedAt: published}
	second := approval.Pending{MessageID: "m2", ChannelID: "c1", DraftPath: "/drafts/other.md", PublishedAt: published.Add(time.Minute)}
	for _, p := range []approval.Pending{second, first} {
		if err := store.SavePending(ctx, p); err != nil {
			t.Fatalf("SavePending %s: %v", p.MessageID, err)
		}
	}

	dup := first
	dup.MessageID = "m3"
	if err := store.SavePending(ctx, dup); err == nil {
		t.Fatal("expected unique draft_path violation")
	}
	if err := store.SavePending(ctx, approval.Pending{MessageID: "m4"}); !errors.Is(err, approval.ErrInvalidPending) {
		t.Fatalf("expected ErrInvalidPending, got %v", err)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].MessageID != "m1" || pending[0].Title != "Hello world" {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	decision := journal.Decision{
		MessageID: "m1",
		DraftPath: first.DraftPath,
		State:     approval.StateApproved,
		DecidedBy: "u1",
		DecidedAt: published.Add(2 * time.Minute),
		FinalPath: "/approved/post.md",
	}
	if err := store.RecordDecision(ctx, decision); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if err := store.RecordDecision(ctx, journal.Decision{MessageID: "m2", State: approval.StateAwaiting}); err == nil {
		t.Fatal("expected non-terminal state to be refused")
	}

	pending, _ = store.ListPending(ctx)
	if len(pending) != 1 || pending[0].MessageID != "m2" {
		t.Fatalf("expected only m2 pending, got %+v", pending)
	}
	decisions, err := store.ListDecisions(ctx, 10)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].State != approval.StateApproved || decisions[0].FinalPath != "/approved/post.md" {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}

	if err := store.DeletePending(ctx, "m2"); err != nil {
		t.Fatalf("DeletePending: %v", err)
	}
	if pending, _ = store.ListPending(ctx); len(pending) != 0 {
		t.Fatalf("expected no pending, got %+v", pending)
	}
}

func TestClaimScheduleRunOncePerDay(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

	if ran, err := store.ScheduleRan(ctx, "2024-03-04", "research"); err != nil || ran {
		t.Fatalf("expected not ran, ran=%v err=%v", ran, err)
	}
	if err := store.ClaimScheduleRun(ctx, "2024-03-04", "research", "10 topics", now); err != nil {
		t.Fatalf("ClaimScheduleRun: %v", err)
	}
	if err := store.ClaimScheduleRun(ctx, "2024-03-04", "research", "", now); !errors.Is(err, journal.ErrAlreadyRan) {
		t.Fatalf("expected ErrAlreadyRan, got %v", err)
	}
	if err := store.ClaimScheduleRun(ctx, "2024-03-04", "report", "", now); err != nil {
		t.Fatalf("different mode should be claimable: %v", err)
	}
	if ran, _ := store.ScheduleRan(ctx, "2024-03-04", "research"); !ran {
		t.Fatal("expected research marked as ran")
	}
}
