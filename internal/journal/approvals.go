package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"draftbot/internal/approval"
)

// Decision is a recorded terminal outcome.
type Decision struct {
	ID        int64
	MessageID string
	DraftPath string
	State     approval.State
	DecidedBy string
	DecidedAt time.Time
	FinalPath string
}

// SavePending persists an awaiting approval so it survives restarts.
func (s *Store) SavePending(ctx context.Context, p approval.Pending) error {
	if p.MessageID == "" || p.DraftPath == "" {
		return approval.ErrInvalidPending
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO pending (message_id, channel_id, draft_path, audio_path, title, published_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.MessageID, p.ChannelID, p.DraftPath, p.AudioPath, p.Title, formatTime(p.PublishedAt),
	)
	if err != nil {
		return fmt.Errorf("save pending %s: %w", p.MessageID, err)
	}
	return nil
}

// ListPending returns persisted approvals ordered by publish time.
func (s *Store) ListPending(ctx context.Context) ([]approval.Pending, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, channel_id, draft_path, audio_path, title, published_at
		 FROM pending ORDER BY published_at, message_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var out []approval.Pending
	for rows.Next() {
		var (
			p           approval.Pending
			audio       sql.NullString
			title       sql.NullString
			publishedAt string
		)
		if err := rows.Scan(&p.MessageID, &p.ChannelID, &p.DraftPath, &audio, &title, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		p.AudioPath = audio.String
		p.Title = title.String
		p.PublishedAt = parseTime(publishedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePending drops a persisted approval without recording a decision.
func (s *Store) DeletePending(ctx context.Context, messageID string) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM pending WHERE message_id = ?", messageID); err != nil {
		return fmt.Errorf("delete pending %s: %w", messageID, err)
	}
	return nil
}

// RecordDecision removes the pending row and appends the decision in one
// transaction.
func (s *Store) RecordDecision(ctx context.Context, d Decision) error {
	ctx = ensureContext(ctx)
	if !d.State.Terminal() {
		return fmt.Errorf("record decision %s: state %q is not terminal", d.MessageID, d.State)
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM pending WHERE message_id = ?", d.MessageID); err != nil {
			return fmt.Errorf("delete pending %s: %w", d.MessageID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decisions (message_id, draft_path, state, decided_by, decided_at, final_path)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			d.MessageID, d.DraftPath, string(d.State), d.DecidedBy, formatTime(d.DecidedAt), d.FinalPath,
		); err != nil {
			return fmt.Errorf("insert decision %s: %w", d.MessageID, err)
		}
		return tx.Commit()
	})
}

// ListDecisions returns the most recent decisions first. A non-positive limit
// returns all of them.
func (s *Store) ListDecisions(ctx context.Context, limit int) ([]Decision, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, message_id, draft_path, state, decided_by, decided_at, final_path
		FROM decisions ORDER BY decided_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d         Decision
			state     string
			decidedBy sql.NullString
			decidedAt string
			final     sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.MessageID, &d.DraftPath, &state, &decidedBy, &decidedAt, &final); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.State = approval.State(state)
		d.DecidedBy = decidedBy.String
		d.DecidedAt = parseTime(decidedAt)
		d.FinalPath = final.String
		out = append(out, d)
	}
	return out, rows.Err()
}
