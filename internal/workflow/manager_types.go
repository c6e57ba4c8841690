package workflow

import (
	"context"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/drafts"
	"draftbot/internal/journal"
	"draftbot/internal/outcome"
	"draftbot/internal/services/homeassistant"
	"draftbot/internal/watcher"
)

// Synthesizer turns draft text into an audio artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, stem, text string) (homeassistant.Artifact, error)
}

// Announcer posts drafts for approval and reflects decisions back.
type Announcer interface {
	ChannelID() string
	Publish(ctx context.Context, d drafts.Draft, art homeassistant.Artifact) (string, error)
	MarkDecided(ctx context.Context, t approval.Tracker) error
	Reactions(ctx context.Context, channelID, messageID, botID string, at time.Time) ([]approval.Reaction, error)
}

// Finalizer applies a terminal decision to the filesystem.
type Finalizer interface {
	Finalize(ctx context.Context, t approval.Tracker) (outcome.Result, error)
}

// Journal persists what the manager must remember across restarts.
type Journal interface {
	MarkSeen(ctx context.Context, path string, status journal.SeenStatus, detail string, at time.Time) error
	Forget(ctx context.Context, path string) (bool, error)
	SavePending(ctx context.Context, p approval.Pending) error
	ListPending(ctx context.Context) ([]approval.Pending, error)
	DeletePending(ctx context.Context, messageID string) error
	RecordDecision(ctx context.Context, d journal.Decision) error
}

// DraftSource delivers new draft files.
type DraftSource interface {
	Events() <-chan watcher.Event
	Forget(path string)
}

// ReactionSource delivers marker reactions.
type ReactionSource interface {
	Reactions() <-chan approval.Reaction
}

// Deps bundles the manager's collaborators. Drafts and Reactions may be nil
// when the manager is driven directly.
type Deps struct {
	Synthesizer Synthesizer
	Announcer   Announcer
	Finalizer   Finalizer
	Journal     Journal
	Drafts      DraftSource
	Reactions   ReactionSource
}
