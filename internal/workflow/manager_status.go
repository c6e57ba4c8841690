package workflow

import (
	"time"

	"draftbot/internal/approval"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool              `json:"running"`
	Pending      int               `json:"pending"`
	Announced    int               `json:"announced"`
	Decided      int               `json:"decided"`
	LastError    string            `json:"last_error,omitempty"`
	LastDraft    string            `json:"last_draft,omitempty"`
	LastDecision *approval.Tracker `json:"last_decision,omitempty"`
	Expiry       time.Duration     `json:"expiry"`
}

// Status returns the latest workflow information.
func (m *Manager) Status() StatusSummary {
	pending := 0
	for _, t := range m.table.List() {
		if !t.State.Terminal() {
			pending++
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{
		Running:   m.running,
		Pending:   pending,
		Announced: m.announced,
		Decided:   m.decided,
		LastDraft: m.lastDraft,
		Expiry:    m.expiry,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastDecision != nil {
		decision := *m.lastDecision
		summary.LastDecision = &decision
	}
	return summary
}

// Pending returns trackers still awaiting a decision.
func (m *Manager) Pending() []approval.Tracker {
	all := m.table.List()
	out := all[:0]
	for _, t := range all {
		if !t.State.Terminal() {
			out = append(out, t)
		}
	}
	return out
}
