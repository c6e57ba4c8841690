package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ScheduleRan reports whether the given mode already ran on date (YYYY-MM-DD).
func (s *Store) ScheduleRan(ctx context.Context, date, mode string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM schedule_runs WHERE run_date = ? AND mode = ?", date, mode,
		).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("check schedule run %s/%s: %w", date, mode, err)
	}
	return count > 0, nil
}

// ErrAlreadyRan is returned by ClaimScheduleRun when the slot is taken.
var ErrAlreadyRan = errors.New("schedule slot already ran")

// ClaimScheduleRun records that mode ran on date. It fails with ErrAlreadyRan
// when the slot was claimed before.
func (s *Store) ClaimScheduleRun(ctx context.Context, date, mode, detail string, at time.Time) error {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO schedule_runs (run_date, mode, ran_at, detail) VALUES (?, ?, ?, ?)
		 ON CONFLICT(run_date, mode) DO NOTHING`,
		date, mode, formatTime(at), detail,
	)
	if err != nil {
		return fmt.Errorf("claim schedule run %s/%s: %w", date, mode, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyRan
	}
	return nil
}
