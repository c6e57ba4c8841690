package workflow

import (
	"context"
	"errors"
	"os"

	"draftbot/internal/approval"
	"draftbot/internal/drafts"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// HandleDraft announces one draft: load, synthesize, publish, register. A
// failure is logged and recorded against the path; the caller moves on to
// the next draft.
func (m *Manager) HandleDraft(ctx context.Context, path string) (approval.Tracker, error) {
	ctx = services.WithNewRequestID(services.WithDraftPath(ctx, path))
	logger := logging.WithContext(ctx, m.logger)

	m.mu.Lock()
	m.lastDraft = path
	m.mu.Unlock()

	if existing, ok := m.table.ByDraft(path); ok && !existing.State.Terminal() {
		logger.Info("draft already awaiting a decision",
			logging.Args(logging.DecisionAttrs("draft_announce", "skipped", "pending approval exists")...)...,
		)
		return existing, approval.ErrDuplicateDraft
	}

	d, err := drafts.Load(path)
	if err != nil {
		m.setLastError(err)
		logging.WarnWithContext(logger, "draft unreadable; skipping", "draft_read_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "draft is retried after a restart"),
			logging.String(logging.FieldErrorHint, "check the file is complete UTF-8 text"),
		)
		return approval.Tracker{}, err
	}

	art, err := m.deps.Synthesizer.Synthesize(ctx, d.Stem(), d.SpeechText())
	if err != nil {
		m.fail(ctx, path, "synthesis", err)
		return approval.Tracker{}, err
	}

	messageID, err := m.deps.Announcer.Publish(ctx, d, art)
	if err != nil {
		if rmErr := os.Remove(art.Path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Debug("orphan audio cleanup failed", logging.Error(rmErr))
		}
		m.fail(ctx, path, "publish", err)
		return approval.Tracker{}, err
	}

	ctx = services.WithMessageID(ctx, messageID)
	logger = logging.WithContext(ctx, m.logger)
	pending := approval.Pending{
		MessageID:   messageID,
		ChannelID:   m.deps.Announcer.ChannelID(),
		DraftPath:   d.Path,
		AudioPath:   art.Path,
		Title:       d.Title(),
		PublishedAt: m.now(),
	}
	tracker, err := m.table.Register(pending)
	if err != nil {
		m.fail(ctx, path, "register", err)
		return approval.Tracker{}, err
	}
	if err := m.deps.Journal.SavePending(ctx, pending); err != nil {
		logging.WarnWithContext(logger, "pending approval not journaled", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "approval is lost if the daemon restarts before a decision"),
		)
	}
	if err := m.deps.Journal.MarkSeen(ctx, d.Path, journal.SeenAnnounced, messageID, m.now()); err != nil {
		logging.WarnWithContext(logger, "seen-set not journaled", "journal_write_failed", logging.Error(err))
	}

	m.mu.Lock()
	m.announced++
	m.mu.Unlock()

	// Reactions that arrived while the markers were being added reached the
	// table before the message was registered.
	if n, err := m.offerExisting(ctx, tracker, m.table.BotUserID(), m.now()); err != nil {
		logging.WarnWithContext(logger, "early reactions not read", "catchup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "reactions placed during announcement are ignored"),
		)
	} else if n > 0 {
		if current, ok := m.table.Get(messageID); ok {
			tracker = current
		}
	}

	logger.Info("draft awaiting approval",
		logging.Event("draft_announced"),
		logging.String("title", pending.Title),
		logging.Int("chars", d.CharCount()),
		logging.Bool("audio_truncated", art.Truncated),
	)
	m.notifyDecisionLoop()
	return tracker, nil
}

func (m *Manager) fail(ctx context.Context, path, step string, err error) {
	m.setLastError(err)
	logger := logging.WithContext(ctx, m.logger)
	hint := "check the service logs"
	switch {
	case errors.Is(err, services.ErrSynthesis):
		hint = "check home_assistant.url, token and tts_entity_id"
	case errors.Is(err, services.ErrPublish):
		hint = "check the bot can post and attach files in the approval channel"
	}
	logging.ErrorWithContext(logger, step+" failed; draft skipped", "draft_"+step+"_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "draft is not announced until it is re-queued"),
	)
	if jerr := m.deps.Journal.MarkSeen(ctx, path, journal.SeenFailed, step+": "+err.Error(), m.now()); jerr != nil {
		logger.Warn("failed draft not journaled", logging.Error(jerr))
	}
}
