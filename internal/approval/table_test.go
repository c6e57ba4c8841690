package approval

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTable(t *testing.T, settle time.Duration) (*Table, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	table := NewTable(settle, WithClock(clock.Now))
	table.SetBotUserID("bot")
	return table, clock
}

func register(t *testing.T, table *Table, messageID, draft string) {
	t.Helper()
	if _, err := table.Register(Pending{MessageID: messageID, DraftPath: draft, AudioPath: draft + ".mp3"}); err != nil {
		t.Fatalf("Register(%s): %v", messageID, err)
	}
}

func TestRegisterEnforcesOnePendingPerDraft(t *testing.T) {
	table, _ := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/post.md")

	if _, err := table.Register(Pending{MessageID: "m2", DraftPath: "/drafts/post.md"}); !errors.Is(err, ErrDuplicateDraft) {
		t.Fatalf("expected ErrDuplicateDraft, got %v", err)
	}
	if _, err := table.Register(Pending{MessageID: "m1", DraftPath: "/drafts/other.md"}); !errors.Is(err, ErrDuplicateMessage) {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}
	if _, err := table.Register(Pending{MessageID: "m3"}); !errors.Is(err, ErrInvalidPending) {
		t.Fatalf("expected ErrInvalidPending, got %v", err)
	}

	if err := table.Remove("m1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	register(t, table, "m2", "/drafts/post.md")
}

func TestOfferDecidesImmediatelyWithoutSettleWindow(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/post.md")

	result, tr := table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerApprove, At: clock.now})
	if result != OfferDecided || tr.State != StateApproved || tr.DecidedBy != "alice" {
		t.Fatalf("unexpected offer result %s tracker %+v", result, tr)
	}
}

func TestTerminalTrackerIgnoresLaterReactions(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/post.md")

	table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerReject, At: clock.now})
	clock.Advance(time.Second)
	result, _ := table.Offer(Reaction{MessageID: "m1", UserID: "bob", Marker: MarkerApprove, At: clock.now})
	if result != OfferIgnored {
		t.Fatalf("expected later reaction ignored, got %s", result)
	}
	tr, _ := table.Get("m1")
	if tr.State != StateRejected || tr.DecidedBy != "alice" {
		t.Fatalf("tracker changed after terminal decision: %+v", tr)
	}
}

func TestOfferIgnoresBotUnknownAndInvalid(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/post.md")

	cases := []Reaction{
		{MessageID: "m1", UserID: "bot", Marker: MarkerApprove, At: clock.now},
		{MessageID: "m1", UserID: "", Marker: MarkerApprove, At: clock.now},
		{MessageID: "m1", UserID: "alice", Marker: Marker("thumbs_up"), At: clock.now},
		{MessageID: "unknown", UserID: "alice", Marker: MarkerApprove, At: clock.now},
	}
	for _, r := range cases {
		if result, _ := table.Offer(r); result != OfferIgnored {
			t.Fatalf("expected %+v ignored, got %s", r, result)
		}
	}
	tr, _ := table.Get("m1")
	if tr.State != StateAwaiting {
		t.Fatalf("expected tracker still awaiting, got %s", tr.State)
	}
}

func TestSettleUsesEventTimestampNotArrivalOrder(t *testing.T) {
	table, clock := newTestTable(t, 1500*time.Millisecond)
	register(t, table, "m1", "/drafts/post.md")

	early := clock.now.Add(-2 * time.Second)
	late := clock.now.Add(-1 * time.Second)

	// Approve arrives first but happened later.
	if result, _ := table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerApprove, At: late}); result != OfferHeld {
		t.Fatalf("expected held, got %s", result)
	}
	if result, _ := table.Offer(Reaction{MessageID: "m1", UserID: "bob", Marker: MarkerReject, At: early}); result != OfferHeld {
		t.Fatalf("expected held, got %s", result)
	}

	if decided := table.Settle(clock.now.Add(time.Second)); len(decided) != 0 {
		t.Fatalf("settled before window closed: %+v", decided)
	}
	next, ok := table.NextSettle()
	if !ok || !next.Equal(clock.now.Add(1500*time.Millisecond)) {
		t.Fatalf("unexpected next settle %s %v", next, ok)
	}

	decided := table.Settle(clock.now.Add(1500 * time.Millisecond))
	if len(decided) != 1 {
		t.Fatalf("expected one decision, got %d", len(decided))
	}
	if decided[0].State != StateRejected || decided[0].DecidedBy != "bob" || !decided[0].DecidedAt.Equal(early) {
		t.Fatalf("expected earliest reaction to win, got %+v", decided[0])
	}
	if again := table.Settle(clock.now.Add(time.Hour)); len(again) != 0 {
		t.Fatalf("tracker decided twice: %+v", again)
	}
}

func TestSettleTieResolvesToRejected(t *testing.T) {
	table, clock := newTestTable(t, time.Second)
	register(t, table, "m1", "/drafts/post.md")

	at := clock.now
	table.Offer(Reaction{MessageID: "m1", UserID: "bob", Marker: MarkerReject, At: at})
	table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerApprove, At: at})

	decided := table.Settle(clock.now.Add(time.Second))
	if len(decided) != 1 || decided[0].State != StateRejected {
		t.Fatalf("expected tie to resolve to rejected, got %+v", decided)
	}
}

func TestExpire(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "old", "/drafts/old.md")
	clock.Advance(2 * time.Hour)
	register(t, table, "new", "/drafts/new.md")

	if got := table.Expire(clock.now, 0); got != nil {
		t.Fatalf("expected expiry disabled, got %+v", got)
	}
	expired := table.Expire(clock.now, time.Hour)
	if len(expired) != 1 || expired[0].MessageID != "old" || expired[0].State != StateExpired {
		t.Fatalf("unexpected expired set: %+v", expired)
	}
	if result, _ := table.Offer(Reaction{MessageID: "old", UserID: "alice", Marker: MarkerApprove}); result != OfferIgnored {
		t.Fatalf("expected reaction on expired tracker ignored, got %s", result)
	}
}

func TestListAndByDraft(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m2", "/drafts/b.md")
	clock.Advance(time.Minute)
	register(t, table, "m1", "/drafts/a.md")

	list := table.List()
	if len(list) != 2 || list[0].MessageID != "m2" || list[1].MessageID != "m1" {
		t.Fatalf("unexpected order: %+v", list)
	}
	tr, ok := table.ByDraft("/drafts/a.md")
	if !ok || tr.MessageID != "m1" {
		t.Fatalf("unexpected ByDraft result %+v %v", tr, ok)
	}
	if err := table.Remove("missing"); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
}

func TestParseMarker(t *testing.T) {
	if m, ok := ParseMarker("approve"); !ok || m != MarkerApprove {
		t.Fatalf("unexpected parse for approve: %s %v", m, ok)
	}
	if m, ok := ParseMarker("rejected"); !ok || m != MarkerReject {
		t.Fatalf("unexpected parse for rejected: %s %v", m, ok)
	}
	if _, ok := ParseMarker("maybe"); ok {
		t.Fatal("expected unknown marker to fail")
	}
}

func TestRegisterReplacesTerminalTrackerForSameDraft(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/post.md")
	table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerApprove, At: clock.now})

	register(t, table, "m2", "/drafts/post.md")
	if _, ok := table.Get("m1"); ok {
		t.Fatal("expected terminal tracker m1 replaced")
	}
	if tr, ok := table.ByDraft("/drafts/post.md"); !ok || tr.MessageID != "m2" {
		t.Fatalf("unexpected draft mapping %+v", tr)
	}
}

func TestPruneDropsOldTerminalTrackers(t *testing.T) {
	table, clock := newTestTable(t, 0)
	register(t, table, "m1", "/drafts/a.md")
	register(t, table, "m2", "/drafts/b.md")
	table.Offer(Reaction{MessageID: "m1", UserID: "alice", Marker: MarkerReject, At: clock.now})

	if n := table.Prune(clock.now); n != 0 {
		t.Fatalf("cutoff equal to decision time should keep tracker, removed %d", n)
	}
	clock.Advance(time.Hour)
	if n := table.Prune(clock.now); n != 1 {
		t.Fatalf("expected one pruned tracker, got %d", n)
	}
	if _, ok := table.Get("m2"); !ok {
		t.Fatal("awaiting tracker must survive pruning")
	}
}
