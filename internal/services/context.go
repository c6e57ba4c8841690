package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// tag identifies one string value carried on a context for log correlation.
type tag int

const (
	tagDraftPath tag = iota
	tagMessageID
	tagRequestID
)

func withTag(ctx context.Context, key tag, value string) context.Context {
	if value = strings.TrimSpace(value); value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func tagFrom(ctx context.Context, key tag) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithDraftPath tags ctx with the draft file being processed.
func WithDraftPath(ctx context.Context, path string) context.Context {
	return withTag(ctx, tagDraftPath, path)
}

func DraftPathFromContext(ctx context.Context) (string, bool) {
	return tagFrom(ctx, tagDraftPath)
}

// WithMessageID tags ctx with the Discord announcement message.
func WithMessageID(ctx context.Context, id string) context.Context {
	return withTag(ctx, tagMessageID, id)
}

func MessageIDFromContext(ctx context.Context) (string, bool) {
	return tagFrom(ctx, tagMessageID)
}

// WithRequestID tags ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withTag(ctx, tagRequestID, id)
}

// WithNewRequestID tags ctx with a fresh random correlation identifier unless
// one is already present.
func WithNewRequestID(ctx context.Context) context.Context {
	if _, ok := RequestIDFromContext(ctx); ok {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return tagFrom(ctx, tagRequestID)
}
