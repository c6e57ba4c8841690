package services_test

import (
	"context"
	"testing"

	"draftbot/internal/services"
)

func TestContextTagsRoundTrip(t *testing.T) {
	ctx := services.WithDraftPath(context.Background(), "/drafts/post-draft.md")
	ctx = services.WithMessageID(ctx, "m1")
	ctx = services.WithRequestID(ctx, "req-123")

	checks := []struct {
		name string
		get  func(context.Context) (string, bool)
		want string
	}{
		{"draft path", services.DraftPathFromContext, "/drafts/post-draft.md"},
		{"message id", services.MessageIDFromContext, "m1"},
		{"request id", services.RequestIDFromContext, "req-123"},
	}
	for _, c := range checks {
		if got, ok := c.get(ctx); !ok || got != c.want {
			t.Errorf("%s = %q (%v), want %q", c.name, got, ok, c.want)
		}
	}
}

func TestBlankTagsLeaveContextUntouched(t *testing.T) {
	base := context.Background()
	if ctx := services.WithDraftPath(base, "  "); ctx != base {
		t.Fatal("expected blank draft path to return the same context")
	}
	if _, ok := services.MessageIDFromContext(services.WithMessageID(base, "")); ok {
		t.Fatal("expected no message id for blank input")
	}
}

func TestWithNewRequestIDKeepsExisting(t *testing.T) {
	ctx := services.WithNewRequestID(context.Background())
	first, ok := services.RequestIDFromContext(ctx)
	if !ok || len(first) != 36 {
		t.Fatalf("expected uuid request id, got %q", first)
	}
	again, _ := services.RequestIDFromContext(services.WithNewRequestID(ctx))
	if again != first {
		t.Fatalf("request id replaced: %q -> %q", first, again)
	}
}
