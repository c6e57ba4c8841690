package api

import (
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/logging"
	"draftbot/internal/workflow"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// PendingItem describes a tracked approval in a transport-friendly format.
type PendingItem struct {
	MessageID   string `json:"messageId"`
	ChannelID   string `json:"channelId"`
	DraftPath   string `json:"draftPath"`
	AudioPath   string `json:"audioPath,omitempty"`
	Title       string `json:"title,omitempty"`
	State       string `json:"state"`
	PublishedAt string `json:"publishedAt,omitempty"`
	DecidedAt   string `json:"decidedAt,omitempty"`
	DecidedBy   string `json:"decidedBy,omitempty"`
	HeldOffers  int    `json:"heldOffers,omitempty"`
}

// PendingListResponse wraps trackers awaiting a decision.
type PendingListResponse struct {
	Items []PendingItem `json:"items"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running      bool         `json:"running"`
	Pending      int          `json:"pending"`
	Announced    int          `json:"announced"`
	Decided      int          `json:"decided"`
	LastError    string       `json:"lastError,omitempty"`
	LastDraft    string       `json:"lastDraft,omitempty"`
	LastDecision *PendingItem `json:"lastDecision,omitempty"`
	ExpiryHours  float64      `json:"expiryHours"`
}

// ComponentHealth mirrors readiness reporting for daemon collaborators.
type ComponentHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse aggregates daemon runtime information for API consumers.
type HealthResponse struct {
	Running      bool              `json:"running"`
	PID          int               `json:"pid"`
	StartedAt    string            `json:"startedAt,omitempty"`
	JournalPath  string            `json:"journalPath"`
	LockFilePath string            `json:"lockFilePath"`
	Workflow     WorkflowStatus    `json:"workflow"`
	Components   []ComponentHealth `json:"components"`
}

// DecisionRequest asks the daemon to approve or reject a pending message.
type DecisionRequest struct {
	Decision string `json:"decision"`
	User     string `json:"user,omitempty"`
}

// DecisionResponse reports what a manual decision did.
type DecisionResponse struct {
	Result string      `json:"result"`
	Item   PendingItem `json:"item"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogStreamResponse wraps log events returned by the log API.
type LogStreamResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// FromTracker converts an approval tracker into its transport form.
func FromTracker(t approval.Tracker) PendingItem {
	return PendingItem{
		MessageID:   t.MessageID,
		ChannelID:   t.ChannelID,
		DraftPath:   t.DraftPath,
		AudioPath:   t.AudioPath,
		Title:       t.Title,
		State:       string(t.State),
		PublishedAt: formatTime(t.PublishedAt),
		DecidedAt:   formatTime(t.DecidedAt),
		DecidedBy:   t.DecidedBy,
		HeldOffers:  t.Offers,
	}
}

// FromTrackers converts a slice of trackers.
func FromTrackers(trackers []approval.Tracker) []PendingItem {
	out := make([]PendingItem, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, FromTracker(t))
	}
	return out
}

// FromStatusSummary converts workflow diagnostics.
func FromStatusSummary(s workflow.StatusSummary) WorkflowStatus {
	status := WorkflowStatus{
		Running:     s.Running,
		Pending:     s.Pending,
		Announced:   s.Announced,
		Decided:     s.Decided,
		LastError:   s.LastError,
		LastDraft:   s.LastDraft,
		ExpiryHours: s.Expiry.Hours(),
	}
	if s.LastDecision != nil {
		item := FromTracker(*s.LastDecision)
		status.LastDecision = &item
	}
	return status
}

// FromComponentHealth converts workflow health records.
func FromComponentHealth(items []workflow.ComponentHealth) []ComponentHealth {
	out := make([]ComponentHealth, 0, len(items))
	for _, h := range items {
		out = append(out, ComponentHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// ParseTime reads a timestamp produced by this package.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
