package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/journal"
	"draftbot/internal/services"
	"draftbot/internal/testsupport"
)

func TestApproveScenario(t *testing.T) {
	f := newFixture(t)
	f.synth.name = "a1"
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")

	tracker, err := f.manager.HandleDraft(ctx, draft)
	if err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}
	if tracker.MessageID != "m1" || tracker.State != approval.StateAwaiting {
		t.Fatalf("unexpected tracker %+v", tracker)
	}
	if filepath.Base(tracker.AudioPath) != "a1.mp3" {
		t.Fatalf("unexpected audio path %q", tracker.AudioPath)
	}
	if len(f.synth.texts) != 1 || f.synth.texts[0] != "Hello world" {
		t.Fatalf("unexpected synthesized text %q", f.synth.texts)
	}

	result, _ := f.manager.HandleReaction(ctx, approval.Reaction{MessageID: "m1", UserID: "u1", Marker: approval.MarkerApprove, At: f.clock.Now()})
	if result != approval.OfferDecided {
		t.Fatalf("offer result = %s", result)
	}

	got, ok := f.manager.Table().Get("m1")
	if !ok || got.State != approval.StateApproved {
		t.Fatalf("tracker m1 = %+v, ok=%v", got, ok)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.ApprovedDir, "post.md")); err != nil {
		t.Fatalf("post.md not in approved folder: %v", err)
	}
	if _, err := os.Stat(draft); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("post.md still in drafts folder: %v", err)
	}

	pending, _ := f.store.ListPending(ctx)
	if len(pending) != 0 {
		t.Fatalf("journal still has pending rows: %+v", pending)
	}
	decisions, _ := f.store.ListDecisions(ctx, 0)
	if len(decisions) != 1 || decisions[0].State != approval.StateApproved {
		t.Fatalf("unexpected decisions %+v", decisions)
	}
	if _, seen, _ := f.store.Seen(ctx, draft); seen {
		t.Fatal("moved draft should leave the seen-set")
	}
	if len(f.announcer.decided) != 1 {
		t.Fatalf("expected message marked decided once, got %d", len(f.announcer.decided))
	}
}

func TestSecondReactionHasNoEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	if _, err := f.manager.HandleDraft(ctx, draft); err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}

	f.manager.HandleReaction(ctx, approval.Reaction{MessageID: "m1", UserID: "u1", Marker: approval.MarkerReject})
	result, _ := f.manager.HandleReaction(ctx, approval.Reaction{MessageID: "m1", UserID: "u2", Marker: approval.MarkerApprove})
	if result != approval.OfferIgnored {
		t.Fatalf("second reaction result = %s", result)
	}
	if got, _ := f.manager.Table().Get("m1"); got.State != approval.StateRejected {
		t.Fatalf("state changed to %s", got.State)
	}
	if _, err := os.Stat(draft); err != nil {
		t.Fatalf("rejected draft should stay in place: %v", err)
	}
	data, _ := os.ReadFile(f.cfg.RejectionLogPath())
	if n := strings.Count(string(data), "\n"); n != 1 {
		t.Fatalf("expected one rejection line, got %d", n)
	}
	if len(f.announcer.decided) != 1 {
		t.Fatalf("finalize ran %d times", len(f.announcer.decided))
	}
}

func TestHandleDraftOncePerPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	if _, err := f.manager.HandleDraft(ctx, draft); err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}
	if _, err := f.manager.HandleDraft(ctx, draft); !errors.Is(err, approval.ErrDuplicateDraft) {
		t.Fatalf("expected ErrDuplicateDraft, got %v", err)
	}
	if n := f.announcer.publishedCount(); n != 1 {
		t.Fatalf("published %d times", n)
	}
}

func TestSynthesisFailureSkipsDraft(t *testing.T) {
	f := newFixture(t)
	f.synth.err = &services.SynthesisError{Op: "tts_get_url", Err: errors.New("connection refused")}
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")

	if _, err := f.manager.HandleDraft(ctx, draft); !errors.Is(err, services.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if f.announcer.publishedCount() != 0 {
		t.Fatal("nothing should be published after a synthesis failure")
	}
	row, ok, err := f.store.Seen(ctx, draft)
	if err != nil || !ok || row.Status != journal.SeenFailed {
		t.Fatalf("expected failed seen row, got %+v ok=%v err=%v", row, ok, err)
	}
	if status := f.manager.Status(); status.LastError == "" {
		t.Fatal("status should expose the last error")
	}
}

func TestPublishFailureRemovesAudio(t *testing.T) {
	f := newFixture(t)
	f.announcer.err = &services.PublishError{Op: "send", Err: errors.New("missing access")}
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")

	if _, err := f.manager.HandleDraft(ctx, draft); !errors.Is(err, services.ErrPublish) {
		t.Fatalf("expected publish error, got %v", err)
	}
	entries, _ := os.ReadDir(f.cfg.Paths.AudioDir)
	if len(entries) != 0 {
		t.Fatalf("orphan audio left behind: %d files", len(entries))
	}
	if len(f.manager.Pending()) != 0 {
		t.Fatal("no tracker should be registered")
	}
}

func TestSettleWindowOrdersByEventTime(t *testing.T) {
	f := newFixture(t, testsupport.WithApprovalSettle(1500))
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	if _, err := f.manager.HandleDraft(ctx, draft); err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}

	base := f.clock.Now()
	f.manager.HandleReaction(ctx, approval.Reaction{MessageID: "m1", UserID: "u1", Marker: approval.MarkerApprove, At: base.Add(200 * time.Millisecond)})
	f.manager.HandleReaction(ctx, approval.Reaction{MessageID: "m1", UserID: "u2", Marker: approval.MarkerReject, At: base.Add(100 * time.Millisecond)})

	if decided := f.manager.Settle(ctx); len(decided) != 0 {
		t.Fatalf("settled before window closed: %+v", decided)
	}
	f.clock.Advance(2 * time.Second)
	decided := f.manager.Settle(ctx)
	if len(decided) != 1 || decided[0].State != approval.StateRejected || decided[0].DecidedBy != "u2" {
		t.Fatalf("unexpected settle result %+v", decided)
	}
}

func TestDecideManual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	if _, err := f.manager.HandleDraft(ctx, draft); err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}

	if _, _, err := f.manager.Decide(ctx, "nope", "api", approval.MarkerApprove); !errors.Is(err, approval.ErrUnknownMessage) {
		t.Fatalf("expected unknown message, got %v", err)
	}
	if _, _, err := f.manager.Decide(ctx, "m1", "api", approval.Marker("maybe")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	result, tracker, err := f.manager.Decide(ctx, "m1", "api", approval.MarkerApprove)
	if err != nil || result != approval.OfferDecided || tracker.State != approval.StateApproved {
		t.Fatalf("Decide: result=%s tracker=%+v err=%v", result, tracker, err)
	}
	result, tracker, err = f.manager.Decide(ctx, "m1", "api", approval.MarkerReject)
	if err != nil || result != approval.OfferIgnored || tracker.State != approval.StateApproved {
		t.Fatalf("repeat Decide: result=%s tracker=%+v err=%v", result, tracker, err)
	}
}

func TestRestoreAndCatchUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	audio := filepath.Join(f.cfg.Paths.AudioDir, "post-a1.mp3")
	testsupport.WriteText(t, audio, "ID3")
	if err := f.store.SavePending(ctx, approval.Pending{MessageID: "m9", ChannelID: "c1", DraftPath: draft, AudioPath: audio, PublishedAt: f.clock.Now()}); err != nil {
		t.Fatalf("SavePending: %v", err)
	}

	restored, err := f.manager.Restore(ctx)
	if err != nil || restored != 1 {
		t.Fatalf("Restore: restored=%d err=%v", restored, err)
	}
	f.announcer.reactions = map[string][]approval.Reaction{
		"m9": {
			{MessageID: "m9", UserID: "bot", Marker: approval.MarkerApprove},
			{MessageID: "m9", UserID: "u1", Marker: approval.MarkerReject},
		},
	}
	if offered := f.manager.CatchUp(ctx, "bot"); offered != 1 {
		t.Fatalf("offered %d reactions", offered)
	}
	if got, _ := f.manager.Table().Get("m9"); got.State != approval.StateRejected {
		t.Fatalf("restored tracker state %s", got.State)
	}
	if _, err := os.Stat(audio); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("audio should be deleted on reject")
	}
}

func TestHandleDraftAppliesReactionsPlacedDuringAnnouncement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	early := approval.Reaction{MessageID: "m1", UserID: "u1", Marker: approval.MarkerApprove, At: f.clock.Now()}
	if result, _ := f.manager.HandleReaction(ctx, early); result != approval.OfferIgnored {
		t.Fatalf("reaction before registration = %s", result)
	}
	f.announcer.reactions = map[string][]approval.Reaction{"m1": {early}}

	tracker, err := f.manager.HandleDraft(ctx, draft)
	if err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}
	if tracker.State != approval.StateApproved {
		t.Fatalf("expected early reaction to decide, got %+v", tracker)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.ApprovedDir, "post.md")); err != nil {
		t.Fatalf("post.md not in approved folder: %v", err)
	}
}

func TestRestoreDropsApprovalsForMissingDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := filepath.Join(f.cfg.Paths.DraftsDir, "gone.md")
	if err := f.store.SavePending(ctx, approval.Pending{MessageID: "m7", ChannelID: "c1", DraftPath: gone, PublishedAt: f.clock.Now()}); err != nil {
		t.Fatalf("SavePending: %v", err)
	}

	restored, err := f.manager.Restore(ctx)
	if err != nil || restored != 0 {
		t.Fatalf("Restore: restored=%d err=%v", restored, err)
	}
	if _, ok := f.manager.Table().Get("m7"); ok {
		t.Fatal("missing draft should not be tracked")
	}
	if pending, _ := f.store.ListPending(ctx); len(pending) != 0 {
		t.Fatalf("journal still has pending rows: %+v", pending)
	}
}

func TestSweepExpiresStaleApprovals(t *testing.T) {
	f := newFixture(t)
	f.manager.expiry = time.Hour
	ctx := context.Background()
	draft := f.writeDraft(t, "post.md", "Hello world")
	tracker, err := f.manager.HandleDraft(ctx, draft)
	if err != nil {
		t.Fatalf("HandleDraft: %v", err)
	}

	if expired := f.manager.Sweep(ctx); len(expired) != 0 {
		t.Fatalf("expired too early: %+v", expired)
	}
	f.clock.Advance(2 * time.Hour)
	expired := f.manager.Sweep(ctx)
	if len(expired) != 1 || expired[0].State != approval.StateExpired {
		t.Fatalf("unexpected sweep result %+v", expired)
	}
	if _, err := os.Stat(tracker.AudioPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expired audio should be deleted")
	}
	if _, err := os.Stat(draft); err != nil {
		t.Fatalf("expired draft should stay: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	f.manager.Sweep(ctx)
	if _, ok := f.manager.Table().Get(tracker.MessageID); ok {
		t.Fatal("old terminal tracker should be pruned")
	}
}
