package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEvent is one log record as served by the daemon's /api/logs endpoint.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	DraftPath     string            `json:"draft_path,omitempty"`
	MessageID     string            `json:"message_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField is one of the bullet lines the console handler prints under a
// headline.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// EventMatcher selects events during Fetch and Tail. A nil matcher accepts
// everything.
type EventMatcher func(LogEvent) bool

func (m EventMatcher) accepts(evt LogEvent) bool { return m == nil || m(evt) }

// StreamHub keeps the most recent events in a fixed ring and wakes followers
// when new ones arrive.
type StreamHub struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ring  []LogEvent
	start int
	size  int
	seq   uint64
}

// NewStreamHub allocates a hub holding at most capacity events.
func NewStreamHub(capacity int) *StreamHub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &StreamHub{ring: make([]LogEvent, capacity)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish stamps evt with the next sequence number, evicting the oldest
// event once the ring is full.
func (h *StreamHub) Publish(evt LogEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	evt.Sequence = h.seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.size < len(h.ring) {
		h.ring[(h.start+h.size)%len(h.ring)] = evt
		h.size++
	} else {
		h.ring[h.start] = evt
		h.start = (h.start + 1) % len(h.ring)
	}
	h.cond.Broadcast()
}

// Fetch returns up to limit matching events newer than since, plus the
// latest sequence number. With wait set it blocks until a matching event
// arrives or ctx ends.
func (h *StreamHub) Fetch(ctx context.Context, since uint64, limit int, wait bool, match EventMatcher) ([]LogEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	limit = h.clampLimit(limit)

	if wait {
		stop := context.AfterFunc(ctx, func() {
			h.mu.Lock()
			h.cond.Broadcast()
			h.mu.Unlock()
		})
		defer stop()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return nil, h.seq, err
		}
		var out []LogEvent
		h.each(func(evt LogEvent) bool {
			if evt.Sequence > since && match.accepts(evt) {
				out = append(out, evt)
			}
			return len(out) < limit
		})
		if len(out) > 0 || !wait {
			return out, h.seq, nil
		}
		// Skip non-matching events on the next pass.
		since = h.seq
		h.cond.Wait()
	}
}

// Tail returns the newest limit matching events without blocking.
func (h *StreamHub) Tail(limit int, match EventMatcher) ([]LogEvent, uint64) {
	if h == nil {
		return nil, 0
	}
	limit = h.clampLimit(limit)
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []LogEvent
	for i := h.size - 1; i >= 0 && len(out) < limit; i-- {
		if evt := h.at(i); match.accepts(evt) {
			out = append(out, evt)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, h.seq
}

// FirstSequence reports the oldest sequence number still buffered.
func (h *StreamHub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size == 0 {
		return h.seq
	}
	return h.at(0).Sequence
}

func (h *StreamHub) clampLimit(limit int) int {
	if limit <= 0 || limit > len(h.ring) {
		return len(h.ring)
	}
	return limit
}

func (h *StreamHub) at(i int) LogEvent {
	return h.ring[(h.start+i)%len(h.ring)]
}

// each visits buffered events oldest first until fn returns false.
func (h *StreamHub) each(fn func(LogEvent) bool) {
	for i := 0; i < h.size; i++ {
		if !fn(h.at(i)) {
			return
		}
	}
}

// streamHandler mirrors every record into the hub before handing it on.
type streamHandler struct {
	next  slog.Handler
	hub   *StreamHub
	bound []slog.Attr
}

func newStreamHandler(next slog.Handler, hub *StreamHub) slog.Handler {
	if hub == nil || next == nil {
		return next
	}
	return &streamHandler{next: next, hub: hub}
}

func (h *streamHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *streamHandler) Handle(ctx context.Context, record slog.Record) error {
	h.hub.Publish(recordEvent(record, h.bound))
	return h.next.Handle(ctx, record.Clone())
}

func (h *streamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.bound)+len(attrs))
	bound = append(append(bound, h.bound...), attrs...)
	return &streamHandler{next: h.next.WithAttrs(attrs), hub: h.hub, bound: bound}
}

func (h *streamHandler) WithGroup(name string) slog.Handler {
	return &streamHandler{next: h.next.WithGroup(name), hub: h.hub, bound: h.bound}
}

// recordEvent flattens a record into a LogEvent. Attributes passed at the
// call site win over those bound with With.
func recordEvent(record slog.Record, bound []slog.Attr) LogEvent {
	evt := LogEvent{
		Timestamp: record.Time,
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
		Fields:    map[string]string{},
	}
	apply := func(attr slog.Attr) {
		attr = maskSecret(attr)
		key := strings.TrimSpace(attr.Key)
		value := attrString(attr.Value)
		switch key {
		case "":
		case FieldComponent:
			evt.Component = value
		case FieldDraftPath:
			evt.DraftPath = value
		case FieldMessageID:
			evt.MessageID = value
		case FieldCorrelationID:
			evt.CorrelationID = value
		default:
			evt.Fields[key] = value
		}
	}
	for _, attr := range bound {
		apply(attr)
	}

	var local []kv
	record.Attrs(func(attr slog.Attr) bool {
		apply(attr)
		if key := strings.TrimSpace(attr.Key); key != "" {
			local = append(local, kv{key: key, value: maskSecret(attr).Value})
		}
		return true
	})

	info, _ := selectInfoFields(local, infoAttrLimit, false)
	for _, field := range info {
		evt.Details = append(evt.Details, DetailField{Label: field.label, Value: field.value})
	}
	return evt
}
