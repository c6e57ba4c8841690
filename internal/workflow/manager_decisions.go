package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// HandleReaction offers a reaction to its tracker and finalizes the tracker
// when the offer decides it.
func (m *Manager) HandleReaction(ctx context.Context, r approval.Reaction) (approval.OfferResult, approval.Tracker) {
	result, tracker := m.table.Offer(r)
	logger := m.logger.With(logging.MessageID(r.MessageID))
	switch result {
	case approval.OfferDecided:
		return result, m.finalize(ctx, tracker)
	case approval.OfferHeld:
		logger.Debug("reaction held for tie-break",
			logging.String("user_id", r.UserID),
			logging.String("marker", string(r.Marker)),
			logging.Duration("settle_window", m.table.SettleWindow()),
		)
	default:
		logger.Debug("reaction ignored",
			logging.String("user_id", r.UserID),
			logging.String("marker", string(r.Marker)),
		)
	}
	return result, tracker
}

// Decide applies a manual decision with the same semantics as a reaction.
// With a settle window the decision lands when the window closes.
func (m *Manager) Decide(ctx context.Context, messageID, userID string, marker approval.Marker) (approval.OfferResult, approval.Tracker, error) {
	if _, ok := marker.Decision(); !ok {
		return approval.OfferIgnored, approval.Tracker{}, fmt.Errorf("%w: unknown marker %q", services.ErrValidation, marker)
	}
	existing, ok := m.table.Get(messageID)
	if !ok {
		return approval.OfferIgnored, approval.Tracker{}, approval.ErrUnknownMessage
	}
	if existing.State.Terminal() {
		return approval.OfferIgnored, existing, nil
	}
	result, tracker := m.HandleReaction(ctx, approval.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Marker:    marker,
		At:        m.now(),
	})
	if result == approval.OfferHeld {
		m.notifyDecisionLoop()
	}
	return result, tracker, nil
}

// Settle decides trackers whose tie-break window has closed.
func (m *Manager) Settle(ctx context.Context) []approval.Tracker {
	decided := m.table.Settle(m.now())
	for i, t := range decided {
		decided[i] = m.finalize(ctx, t)
	}
	return decided
}

// Sweep expires trackers past the configured age and prunes old terminal
// trackers from memory.
func (m *Manager) Sweep(ctx context.Context) []approval.Tracker {
	now := m.now()
	expired := m.table.Expire(now, m.expiry)
	for i, t := range expired {
		expired[i] = m.finalize(ctx, t)
	}
	if n := m.table.Prune(now.Add(-terminalMaxAge)); n > 0 {
		m.logger.Debug("pruned decided trackers", logging.Int("count", n))
	}
	return expired
}

// finalize applies the outcome of a terminal tracker exactly once.
func (m *Manager) finalize(ctx context.Context, t approval.Tracker) approval.Tracker {
	ctx = services.WithMessageID(services.WithDraftPath(ctx, t.DraftPath), t.MessageID)
	logger := logging.WithContext(ctx, m.logger)

	res, err := m.deps.Finalizer.Finalize(ctx, t)
	if err != nil {
		m.setLastError(err)
	}

	if jerr := m.deps.Journal.RecordDecision(ctx, journal.Decision{
		MessageID: t.MessageID,
		DraftPath: t.DraftPath,
		State:     t.State,
		DecidedBy: t.DecidedBy,
		DecidedAt: t.DecidedAt,
		FinalPath: res.FinalPath,
	}); jerr != nil {
		logging.WarnWithContext(logger, "decision not journaled", "journal_write_failed",
			logging.Error(jerr),
			logging.String(logging.FieldImpact, "the approval is restored as pending after a restart"),
		)
	}

	if err == nil && res.FinalPath != "" && res.FinalPath != t.DraftPath {
		if _, ferr := m.deps.Journal.Forget(ctx, t.DraftPath); ferr != nil {
			logger.Warn("seen-set entry not cleared", logging.Error(ferr))
		}
		if m.deps.Drafts != nil {
			m.deps.Drafts.Forget(t.DraftPath)
		}
	}

	if merr := m.deps.Announcer.MarkDecided(ctx, t); merr != nil {
		logging.WarnWithContext(logger, "approval message not updated", "discord_edit_failed",
			logging.Error(merr),
			logging.String(logging.FieldImpact, "message still looks pending in the channel"),
		)
	}

	m.mu.Lock()
	snapshot := t
	m.lastDecision = &snapshot
	m.decided++
	m.mu.Unlock()

	logger.Info("approval decided",
		logging.Args(append(logging.DecisionAttrs("approval", string(t.State), "marker reaction"),
			logging.String("decided_by", t.DecidedBy),
			logging.String("final_path", res.FinalPath),
		)...)...,
	)
	return t
}

// Restore loads pending approvals from the journal into the table.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	pending, err := m.deps.Journal.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore pending approvals: %w", err)
	}
	restored := 0
	for _, p := range pending {
		if _, err := os.Stat(p.DraftPath); errors.Is(err, os.ErrNotExist) {
			if derr := m.deps.Journal.DeletePending(ctx, p.MessageID); derr != nil {
				m.logger.Warn("stale approval not removed", logging.MessageID(p.MessageID), logging.Error(derr))
			}
			logging.WarnWithContext(m.logger, "pending draft no longer exists; approval dropped", "restore_draft_missing",
				logging.MessageID(p.MessageID),
				logging.DraftPath(p.DraftPath),
				logging.String(logging.FieldImpact, "reactions on this message are ignored"),
			)
			continue
		}
		if _, err := m.table.Register(p); err != nil {
			if errors.Is(err, approval.ErrDuplicateMessage) {
				continue
			}
			logging.WarnWithContext(m.logger, "pending approval not restored", "restore_failed",
				logging.MessageID(p.MessageID),
				logging.DraftPath(p.DraftPath),
				logging.Error(err),
			)
			continue
		}
		restored++
	}
	if restored > 0 {
		m.logger.Info("pending approvals restored",
			logging.Event("approvals_restored"),
			logging.Int("count", restored),
		)
	}
	return restored, nil
}

// CatchUp offers reactions placed while the daemon was offline. botID is
// excluded.
func (m *Manager) CatchUp(ctx context.Context, botID string) int {
	m.table.SetBotUserID(botID)
	offered := 0
	at := m.now()
	for _, t := range m.table.List() {
		if t.State.Terminal() {
			continue
		}
		n, err := m.offerExisting(ctx, t, botID, at)
		if err != nil {
			logging.WarnWithContext(m.logger, "reaction catch-up failed", "catchup_failed",
				logging.MessageID(t.MessageID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "earlier reactions are ignored; react again to decide"),
			)
			continue
		}
		offered += n
	}
	m.notifyDecisionLoop()
	return offered
}

// offerExisting re-reads the reactions already on t's message and offers
// them to the table. It returns how many were not ignored.
func (m *Manager) offerExisting(ctx context.Context, t approval.Tracker, botID string, at time.Time) (int, error) {
	reactions, err := m.deps.Announcer.Reactions(ctx, t.ChannelID, t.MessageID, botID, at)
	if err != nil {
		return 0, err
	}
	offered := 0
	for _, r := range reactions {
		if result, _ := m.HandleReaction(ctx, r); result != approval.OfferIgnored {
			offered++
		}
	}
	return offered, nil
}
