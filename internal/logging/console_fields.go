package logging

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	FieldDecisionResult,
	"title",
	"draft_format",
	"char_count",
	"truncated",
	"audio_size_bytes",
	"audio_path",
	"approved_path",
	"marker",
	"user_id",
	"error_message",
	FieldErrorHint,
	FieldImpact,
	"status",
	"mode",
	"topic_count",
	"medium_url",
	"pending_count",
	"elapsed",
	"reason",
}

// selectInfoFields formats attrs as labelled bullets, highlighted keys first.
// limit=0 means no limit. Without includeDebug, debug-only keys and overlong
// values are counted as hidden instead.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	ordered := make([]kv, 0, len(attrs))
	for _, key := range infoHighlightKeys {
		if i := slices.IndexFunc(attrs, func(a kv) bool { return a.key == key }); i >= 0 {
			ordered = append(ordered, attrs[i])
		}
	}
	for _, a := range attrs {
		if !slices.Contains(infoHighlightKeys, a.key) {
			ordered = append(ordered, a)
		}
	}

	var (
		fields []infoField
		hidden int
	)
	for _, a := range ordered {
		if skipInfoKey(a.key) {
			continue
		}
		val := formatValueForKey(a.key, a.value)
		switch {
		case !includeDebug && (isDebugOnlyKey(a.key) || shouldHideInfoValue(a.key, val)):
			hidden++
		case limit > 0 && len(fields) >= limit:
			hidden++
		default:
			fields = append(fields, infoField{label: displayLabel(a.key), value: val})
		}
	}
	return fields, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		if n := v.Int64(); isByteSizeKey(key) && n >= 0 {
			return humanize.IBytes(uint64(n))
		}
	case slog.KindUint64:
		if isByteSizeKey(key) {
			return humanize.IBytes(v.Uint64())
		}
	case slog.KindDuration:
		return formatDurationHuman(v.Duration())
	case slog.KindTime:
		return humanize.Time(v.Time())
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size"
}

func formatDurationHuman(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldDraftPath, FieldMessageID, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "", FieldCorrelationID, "channel_id", "emoji_raw", "request_url", "tts_url":
		return true
	}
	return IsSecretKey(key)
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", FieldErrorHint:
		return false
	}
	return len(value) > 120
}

var infoLabels = map[string]string{
	FieldAlert:          "Alert",
	FieldEventType:      "Event",
	FieldDecisionType:   "Decision",
	FieldDecisionResult: "Result",
	FieldErrorHint:      "Hint",
	"char_count":        "Characters",
	"audio_size_bytes":  "Audio Size",
	"audio_path":        "Audio",
	"approved_path":     "Approved As",
	"user_id":           "Reviewer",
	"medium_url":        "Medium",
	"topic_count":       "Topics",
	"pending_count":     "Pending",
}

func displayLabel(key string) string {
	if label, ok := infoLabels[key]; ok {
		return label
	}
	return titleizeKey(key)
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		part = strings.ToLower(part)
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
