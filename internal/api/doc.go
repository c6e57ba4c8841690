// Package api defines wire-format types, converters, and a client for the
// daemon's local HTTP API. It translates approval trackers and workflow
// status into transport-friendly DTOs so the CLI can render them without
// coupling to internal types.
//
// # Key Types
//
// PendingItem: transport representation of a tracker awaiting a decision.
//
// HealthResponse: daemon running state, workflow counters, and component
// health.
//
// DecisionRequest/DecisionResponse: manual approve/reject through the API.
//
// LogStreamResponse: structured log payloads for live tailing.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Approval states are exposed as their
// lowercase string values. Timestamps use RFC3339 with milliseconds.
package api
