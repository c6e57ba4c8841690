package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"draftbot/internal/logging"
)

// Filter narrows events printed by the CLI. Empty fields match everything.
type Filter struct {
	Component string
	MessageID string
	MinLevel  string
}

// Match reports whether evt passes the filter.
func (f Filter) Match(evt logging.LogEvent) bool {
	if f.Component != "" && !strings.EqualFold(evt.Component, f.Component) {
		return false
	}
	if f.MessageID != "" && evt.MessageID != f.MessageID {
		return false
	}
	if f.MinLevel != "" {
		var min, got slog.Level
		if err := min.UnmarshalText([]byte(f.MinLevel)); err == nil {
			if err := got.UnmarshalText([]byte(evt.Level)); err == nil && got < min {
				return false
			}
		}
	}
	return true
}

var reservedKeys = map[string]bool{
	"ts": true, "level": true, "msg": true, "source": true,
	logging.FieldComponent:     true,
	logging.FieldDraftPath:     true,
	logging.FieldMessageID:     true,
	logging.FieldCorrelationID: true,
}

// ParseLine decodes one line of the JSON event log. Lines that are not JSON
// objects are rejected.
func ParseLine(line string) (logging.LogEvent, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return logging.LogEvent{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return logging.LogEvent{}, false
	}
	evt := logging.LogEvent{
		Level:         strings.ToUpper(stringValue(raw["level"])),
		Message:       stringValue(raw["msg"]),
		Component:     stringValue(raw[logging.FieldComponent]),
		DraftPath:     stringValue(raw[logging.FieldDraftPath]),
		MessageID:     stringValue(raw[logging.FieldMessageID]),
		CorrelationID: stringValue(raw[logging.FieldCorrelationID]),
	}
	if ts, err := time.Parse(time.RFC3339, stringValue(raw["ts"])); err == nil {
		evt.Timestamp = ts
	}
	for key, value := range raw {
		if reservedKeys[key] {
			continue
		}
		if evt.Fields == nil {
			evt.Fields = make(map[string]string)
		}
		evt.Fields[key] = stringValue(value)
	}
	return evt, true
}

// FormatEvent renders evt on a single line:
//
//	2026-01-05 09:00:00 INFO  [workflow] message: draft announced  message_id=123
func FormatEvent(evt logging.LogEvent) string {
	var b strings.Builder
	if !evt.Timestamp.IsZero() {
		b.WriteString(evt.Timestamp.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(evt.Level))
	if evt.Component != "" {
		fmt.Fprintf(&b, " [%s]", evt.Component)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	var extras []string
	if evt.MessageID != "" {
		extras = append(extras, logging.FieldMessageID+"="+evt.MessageID)
	}
	if evt.DraftPath != "" {
		extras = append(extras, logging.FieldDraftPath+"="+evt.DraftPath)
	}
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		extras = append(extras, key+"="+quoteIfNeeded(evt.Fields[key]))
	}
	for _, d := range evt.Details {
		extras = append(extras, d.Label+"="+quoteIfNeeded(d.Value))
	}
	if len(extras) > 0 {
		b.WriteString("  ")
		b.WriteString(strings.Join(extras, " "))
	}
	return b.String()
}

// FormatLine formats a raw event log line, returning plain text lines
// unchanged.
func FormatLine(line string, filter Filter) (string, bool) {
	evt, ok := ParseLine(line)
	if !ok {
		return line, true
	}
	if !filter.Match(evt) {
		return "", false
	}
	return FormatEvent(evt), true
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func quoteIfNeeded(value string) string {
	if strings.ContainsAny(value, " \t\"") {
		return fmt.Sprintf("%q", value)
	}
	return value
}
