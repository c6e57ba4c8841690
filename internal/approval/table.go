package approval

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	tracker      Tracker
	offers       []Reaction
	firstOfferAt time.Time
}

// Table owns every tracker. All methods are safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	settle  time.Duration
	botID   string
	now     func() time.Time
	entries map[string]*entry
	byDraft map[string]string
}

// Option customizes a Table.
type Option func(*Table)

// WithClock overrides the time source used to start settle windows.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTable creates an empty table. settle is the tie-break window; zero
// decides on the first reaction.
func NewTable(settle time.Duration, opts ...Option) *Table {
	if settle < 0 {
		settle = 0
	}
	t := &Table{
		settle:  settle,
		now:     time.Now,
		entries: make(map[string]*entry),
		byDraft: make(map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetBotUserID records the bot's own user so its reactions are ignored.
func (t *Table) SetBotUserID(id string) {
	t.mu.Lock()
	t.botID = id
	t.mu.Unlock()
}

// BotUserID returns the id set by SetBotUserID, or "" before the gateway is
// ready.
func (t *Table) BotUserID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.botID
}

// SettleWindow returns the configured tie-break window.
func (t *Table) SettleWindow() time.Duration {
	return t.settle
}

// Register starts tracking a published message. A draft may have at most one
// tracker awaiting a decision; a terminal tracker for the same path is
// replaced.
func (t *Table) Register(p Pending) (Tracker, error) {
	if p.MessageID == "" || p.DraftPath == "" {
		return Tracker{}, ErrInvalidPending
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[p.MessageID]; ok {
		return Tracker{}, ErrDuplicateMessage
	}
	if id, ok := t.byDraft[p.DraftPath]; ok {
		if !t.entries[id].tracker.State.Terminal() {
			return Tracker{}, ErrDuplicateDraft
		}
		delete(t.entries, id)
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = t.now()
	}
	e := &entry{tracker: Tracker{Pending: p, State: StateAwaiting}}
	t.entries[p.MessageID] = e
	t.byDraft[p.DraftPath] = p.MessageID
	return e.tracker, nil
}

// Offer hands a reaction to the tracker for its message. Reactions by the
// bot, on unknown messages, with unknown markers, or on terminal trackers
// are ignored. With a zero settle window the first valid reaction decides.
func (t *Table) Offer(r Reaction) (OfferResult, Tracker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[r.MessageID]
	if !ok || e.tracker.State.Terminal() {
		return OfferIgnored, Tracker{}
	}
	if r.UserID == "" || (t.botID != "" && r.UserID == t.botID) {
		return OfferIgnored, e.snapshot()
	}
	if _, ok := r.Marker.Decision(); !ok {
		return OfferIgnored, e.snapshot()
	}
	now := t.now()
	if r.At.IsZero() {
		r.At = now
	}
	if len(e.offers) == 0 {
		e.firstOfferAt = now
	}
	e.offers = append(e.offers, r)
	if t.settle == 0 {
		e.decide()
		return OfferDecided, e.snapshot()
	}
	return OfferHeld, e.snapshot()
}

// Settle decides every tracker whose settle window has closed by now and
// returns the trackers that changed state.
func (t *Table) Settle(now time.Time) []Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	var decided []Tracker
	for _, e := range t.entries {
		if e.tracker.State.Terminal() || len(e.offers) == 0 {
			continue
		}
		if now.Sub(e.firstOfferAt) < t.settle {
			continue
		}
		e.decide()
		decided = append(decided, e.snapshot())
	}
	sortTrackers(decided)
	return decided
}

// NextSettle returns when the earliest open settle window closes.
func (t *Table) NextSettle() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var next time.Time
	for _, e := range t.entries {
		if e.tracker.State.Terminal() || len(e.offers) == 0 {
			continue
		}
		deadline := e.firstOfferAt.Add(t.settle)
		if next.IsZero() || deadline.Before(next) {
			next = deadline
		}
	}
	return next, !next.IsZero()
}

// Expire moves trackers that have awaited a decision for at least maxAge to
// Expired and returns them. A non-positive maxAge disables expiry.
func (t *Table) Expire(now time.Time, maxAge time.Duration) []Tracker {
	if maxAge <= 0 {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []Tracker
	for _, e := range t.entries {
		if e.tracker.State.Terminal() || len(e.offers) > 0 {
			continue
		}
		if now.Sub(e.tracker.PublishedAt) < maxAge {
			continue
		}
		e.tracker.State = StateExpired
		e.tracker.DecidedAt = now
		expired = append(expired, e.snapshot())
	}
	sortTrackers(expired)
	return expired
}

// Get returns the tracker for a message.
func (t *Table) Get(messageID string) (Tracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[messageID]
	if !ok {
		return Tracker{}, false
	}
	return e.snapshot(), true
}

// ByDraft returns the tracker registered for a draft path.
func (t *Table) ByDraft(path string) (Tracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byDraft[path]
	if !ok {
		return Tracker{}, false
	}
	return t.entries[id].snapshot(), true
}

// List returns every tracker ordered by publish time.
func (t *Table) List() []Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Tracker, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.snapshot())
	}
	sortTrackers(out)
	return out
}

// Remove forgets a tracker, freeing its draft for a new registration.
func (t *Table) Remove(messageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[messageID]
	if !ok {
		return ErrUnknownMessage
	}
	delete(t.entries, messageID)
	if t.byDraft[e.tracker.DraftPath] == messageID {
		delete(t.byDraft, e.tracker.DraftPath)
	}
	return nil
}

// Prune forgets terminal trackers decided before cutoff and returns how many
// were removed.
func (t *Table) Prune(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, e := range t.entries {
		if !e.tracker.State.Terminal() || !e.tracker.DecidedAt.Before(cutoff) {
			continue
		}
		delete(t.entries, id)
		if t.byDraft[e.tracker.DraftPath] == id {
			delete(t.byDraft, e.tracker.DraftPath)
		}
		removed++
	}
	return removed
}

// decide applies the earliest held reaction. Equal timestamps resolve to
// Rejected.
func (e *entry) decide() {
	winner := e.offers[0]
	for _, r := range e.offers[1:] {
		switch {
		case r.At.Before(winner.At):
			winner = r
		case r.At.Equal(winner.At) && r.Marker == MarkerReject:
			winner = r
		}
	}
	state, _ := winner.Marker.Decision()
	e.tracker.State = state
	e.tracker.DecidedAt = winner.At
	e.tracker.DecidedBy = winner.UserID
	e.offers = nil
}

func (e *entry) snapshot() Tracker {
	tr := e.tracker
	tr.Offers = len(e.offers)
	return tr
}

func sortTrackers(trackers []Tracker) {
	sort.Slice(trackers, func(i, j int) bool {
		if trackers[i].PublishedAt.Equal(trackers[j].PublishedAt) {
			return trackers[i].MessageID < trackers[j].MessageID
		}
		return trackers[i].PublishedAt.Before(trackers[j].PublishedAt)
	})
}
