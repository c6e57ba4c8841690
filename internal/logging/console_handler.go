package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders human-oriented console lines: a headline naming the
// component and the draft or message, then bullet fields. Fields that repeat
// unchanged for the same subject are suppressed at INFO.
type prettyHandler struct {
	out       *lockedWriter
	level     *slog.LevelVar
	bound     []slog.Attr
	groups    []string
	addSource bool
	lastSeen  *fieldMemory
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// fieldMemory remembers the last value printed per subject and label.
type fieldMemory struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{
		out:       &lockedWriter{w: w},
		level:     lvl,
		addSource: addSource,
		lastSeen:  &fieldMemory{values: map[string]map[string]string{}},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var attrs []kv
	for _, attr := range h.bound {
		flattenAttr(&attrs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&attrs, h.groups, attr)
		return true
	})
	attrs = dedupeKVsByKey(attrs)

	var component, draftPath, messageID string
	body := make([]kv, 0, len(attrs))
	for _, a := range attrs {
		switch a.key {
		case FieldComponent:
			component = attrString(a.value)
			continue
		case FieldDraftPath:
			draftPath = attrString(a.value)
		case FieldMessageID:
			messageID = attrString(a.value)
		}
		body = append(body, a)
	}
	subject := composeSubject(draftPath, messageID)

	var sb strings.Builder
	h.writeHeadline(&sb, ts, record, component, subject)
	if record.Level < slog.LevelInfo {
		writeDebugFields(&sb, attrs)
	} else {
		key := subject
		if key == "" {
			key = component
		}
		fields, hidden := selectInfoFields(body, 0, true)
		fields = h.lastSeen.changed(key, fields, record.Level > slog.LevelInfo)
		writeInfoFields(&sb, fields, hidden)
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, sb.String())
	return err
}

func (h *prettyHandler) writeHeadline(sb *strings.Builder, ts time.Time, record slog.Record, component, subject string) {
	sb.WriteString(formatTimestamp(ts))
	sb.WriteString(" " + levelLabel(record.Level))
	if component != "" {
		sb.WriteString(" [" + component + "]")
	}
	if subject != "" {
		sb.WriteString(" " + subject)
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	sb.WriteString(" – " + msg)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(sb, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	sb.WriteByte('\n')
}

func writeInfoFields(sb *strings.Builder, fields []infoField, hidden int) {
	for _, f := range fields {
		fmt.Fprintf(sb, "    - %s: %s\n", f.label, f.value)
	}
	switch {
	case hidden == 1:
		sb.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(sb, "    + %d more fields hidden\n", hidden)
	}
}

func writeDebugFields(sb *strings.Builder, attrs []kv) {
	for _, a := range attrs {
		fmt.Fprintf(sb, "    %s: %s\n", a.key, formatValue(a.value))
	}
}

// composeSubject renders "name-draft.md (msg 1234)" style subjects.
func composeSubject(draftPath, messageID string) string {
	var parts []string
	if p := strings.TrimSpace(draftPath); p != "" {
		parts = append(parts, filepath.Base(p))
	}
	if id := strings.TrimSpace(messageID); id != "" {
		if len(parts) > 0 {
			parts = append(parts, "(msg "+id+")")
		} else {
			parts = append(parts, "msg "+id)
		}
	}
	return strings.Join(parts, " ")
}

// changed drops fields whose value matches what was last printed for key.
// Warnings and errors always print in full but still refresh the memory.
func (m *fieldMemory) changed(key string, fields []infoField, always bool) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.values[key]
	if prev == nil {
		prev = map[string]string{}
		m.values[key] = prev
	}
	out := fields[:0:0]
	for _, f := range fields {
		if always || prev[f.label] != f.value {
			out = append(out, f)
		}
		prev[f.label] = f.value
	}
	return out
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = append(append([]slog.Attr(nil), h.bound...), attrs...)
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	index := make(map[string]int, len(attrs))
	out := make([]kv, 0, len(attrs))
	for _, a := range attrs {
		if a.key == "" {
			continue
		}
		if i, ok := index[a.key]; ok {
			out[i].value = a.value
			continue
		}
		index[a.key] = len(out)
		out = append(out, a)
	}
	return out
}

// flattenAttr expands groups into dotted keys and masks secrets.
func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		path := prefix
		if attr.Key != "" {
			path = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			flattenAttr(dst, path, member)
		}
		return
	}
	attr = maskSecret(attr)
	key := strings.Join(append(append([]string(nil), prefix...), attr.Key), ".")
	*dst = append(*dst, kv{key: strings.Trim(key, "."), value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
