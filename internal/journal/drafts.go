package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SeenStatus records what happened when a draft was first observed.
type SeenStatus string

const (
	// SeenAnnounced means the draft was synthesized and posted for approval.
	SeenAnnounced SeenStatus = "announced"
	// SeenFailed means synthesis or publishing failed; the draft is not retried
	// until it is removed from the journal.
	SeenFailed SeenStatus = "failed"
	// SeenSkipped means the draft was present at startup and ignored.
	SeenSkipped SeenStatus = "skipped"
)

// SeenDraft is one row of the seen-set.
type SeenDraft struct {
	Path   string
	Status SeenStatus
	Detail string
	SeenAt time.Time
}

// MarkSeen records a draft path in the seen-set, replacing any prior status.
func (s *Store) MarkSeen(ctx context.Context, path string, status SeenStatus, detail string, at time.Time) error {
	if path == "" {
		return errors.New("mark seen: path is required")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO seen_drafts (path, status, detail, seen_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET status = excluded.status, detail = excluded.detail`,
		path, string(status), detail, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("mark seen %s: %w", path, err)
	}
	return nil
}

// Seen reports whether path is already in the seen-set.
func (s *Store) Seen(ctx context.Context, path string) (SeenDraft, bool, error) {
	ctx = ensureContext(ctx)
	var (
		row    SeenDraft
		status string
		detail sql.NullString
		seenAt string
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT path, status, detail, seen_at FROM seen_drafts WHERE path = ?", path,
		).Scan(&row.Path, &status, &detail, &seenAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return SeenDraft{}, false, nil
	}
	if err != nil {
		return SeenDraft{}, false, fmt.Errorf("lookup seen %s: %w", path, err)
	}
	row.Status = SeenStatus(status)
	row.Detail = detail.String
	row.SeenAt = parseTime(seenAt)
	return row, true, nil
}

// Forget removes a path from the seen-set so it can be processed again.
func (s *Store) Forget(ctx context.Context, path string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM seen_drafts WHERE path = ?", path)
	if err != nil {
		return false, fmt.Errorf("forget %s: %w", path, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
