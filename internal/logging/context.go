package logging

import (
	"context"
	"log/slog"

	"draftbot/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent = "component"
	// FieldDraftPath is the draft file a record concerns.
	FieldDraftPath = "draft_path"
	// FieldMessageID is the Discord announcement a record concerns.
	FieldMessageID     = "message_id"
	FieldCorrelationID = "correlation_id"
	// FieldEventType lets operators filter without parsing messages.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-visible consequence of a warning.
	FieldImpact         = "impact"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldAlert          = "alert"
)

// ContextFields returns the draft, message, and request identifiers carried
// by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if path, ok := services.DraftPathFromContext(ctx); ok {
		fields = append(fields, DraftPath(path))
	}
	if id, ok := services.MessageIDFromContext(ctx); ok {
		fields = append(fields, MessageID(id))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext binds the identifiers carried by ctx onto logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
