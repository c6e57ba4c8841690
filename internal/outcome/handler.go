package outcome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/fileutil"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// ApprovedPublisher receives approved drafts after they reach the approved
// folder. Errors are logged and do not undo the move.
type ApprovedPublisher interface {
	PublishApproved(ctx context.Context, path string) error
}

// Result describes what a finalize step changed on disk.
type Result struct {
	State        approval.State
	FinalPath    string
	AudioRemoved bool
	LogLine      string
}

// Handler finalizes decided trackers.
type Handler struct {
	approvedDir  string
	rejectedDir  string
	rejectionLog string
	publisher    ApprovedPublisher
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes a Handler.
type Option func(*Handler)

// WithPublisher attaches a post-approval publisher.
func WithPublisher(p ApprovedPublisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// WithClock overrides the time source used for log lines and name stamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// New constructs a Handler from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		approvedDir:  cfg.Paths.ApprovedDir,
		rejectedDir:  cfg.Approval.RejectedDir,
		rejectionLog: cfg.RejectionLogPath(),
		logger:       logging.NewComponentLogger(logger, "outcome"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Finalize dispatches on the tracker's terminal state.
func (h *Handler) Finalize(ctx context.Context, t approval.Tracker) (Result, error) {
	switch t.State {
	case approval.StateApproved:
		return h.Approve(ctx, t)
	case approval.StateRejected:
		return h.Reject(ctx, t)
	case approval.StateExpired:
		return h.Expire(ctx, t)
	default:
		return Result{State: t.State}, fmt.Errorf("finalize %s: state %q is not terminal", t.MessageID, t.State)
	}
}

// Approve moves the draft into the approved folder. Nothing is deleted.
func (h *Handler) Approve(ctx context.Context, t approval.Tracker) (Result, error) {
	result := Result{State: approval.StateApproved}
	logger := h.logger.With(logging.DraftPath(t.DraftPath), logging.MessageID(t.MessageID))

	dst, err := h.move(t.DraftPath, h.approvedDir)
	if err != nil {
		logging.ErrorWithContext(logger, "approved draft move failed", "outcome_move_failed",
			logging.Error(err),
			logging.String("destination_dir", h.approvedDir),
			logging.String(logging.FieldErrorHint, "check the approved folder exists and is writable"),
		)
		return result, err
	}
	result.FinalPath = dst
	logger.Info("draft approved",
		logging.Event("draft_approved"),
		logging.String("final_path", dst),
		logging.String("decided_by", t.DecidedBy),
	)

	if h.publisher != nil {
		if err := h.publisher.PublishApproved(ctx, dst); err != nil {
			logging.WarnWithContext(logger, "post-approval publish failed", "publish_approved_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "draft stays in the approved folder unpublished"),
				logging.String(logging.FieldErrorHint, "publish it manually or fix the medium settings"),
			)
		}
	}
	return result, nil
}

// Reject removes the audio artifact and appends the draft to the rejection
// log. The source draft is moved only when a rejected folder is configured.
func (h *Handler) Reject(_ context.Context, t approval.Tracker) (Result, error) {
	result := Result{State: approval.StateRejected, FinalPath: t.DraftPath}
	logger := h.logger.With(logging.DraftPath(t.DraftPath), logging.MessageID(t.MessageID))
	var errs []error

	removed, err := removeAudio(t.AudioPath)
	result.AudioRemoved = removed
	if err != nil {
		errs = append(errs, err)
		logging.ErrorWithContext(logger, "audio delete failed", "outcome_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the audio file by hand"),
		)
	}

	line := fmt.Sprintf("%s,%s", h.now().UTC().Format(time.RFC3339), t.DraftPath)
	if err := fileutil.AppendLine(h.rejectionLog, line); err != nil {
		wrapped := &services.FileOperationError{Op: "append", Path: h.rejectionLog, Err: err}
		errs = append(errs, wrapped)
		logging.ErrorWithContext(logger, "rejection log append failed", "outcome_log_failed",
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "check the log directory is writable"),
		)
	} else {
		result.LogLine = line
	}

	if h.rejectedDir != "" {
		dst, err := h.move(t.DraftPath, h.rejectedDir)
		if err != nil {
			errs = append(errs, err)
			logging.ErrorWithContext(logger, "rejected draft move failed", "outcome_move_failed",
				logging.Error(err),
				logging.String("destination_dir", h.rejectedDir),
			)
		} else {
			result.FinalPath = dst
		}
	}

	logger.Info("draft rejected",
		logging.Event("draft_rejected"),
		logging.Bool("audio_removed", result.AudioRemoved),
		logging.String("final_path", result.FinalPath),
		logging.String("decided_by", t.DecidedBy),
	)
	return result, errors.Join(errs...)
}

// Expire removes the audio artifact and leaves the draft in place.
func (h *Handler) Expire(_ context.Context, t approval.Tracker) (Result, error) {
	result := Result{State: approval.StateExpired, FinalPath: t.DraftPath}
	removed, err := removeAudio(t.AudioPath)
	result.AudioRemoved = removed
	logger := h.logger.With(logging.DraftPath(t.DraftPath), logging.MessageID(t.MessageID))
	if err != nil {
		logging.ErrorWithContext(logger, "audio delete failed", "outcome_delete_failed", logging.Error(err))
		return result, err
	}
	logger.Info("approval expired",
		logging.Event("approval_expired"),
		logging.Bool("audio_removed", removed),
	)
	return result, nil
}

func (h *Handler) move(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &services.FileOperationError{Op: "mkdir", Path: dir, Err: err}
	}
	dst := fileutil.UniquePath(dir, filepath.Base(src), h.now())
	if err := fileutil.MoveFile(src, dst); err != nil {
		return "", &services.FileOperationError{Op: "move", Path: src, Err: err}
	}
	return dst, nil
}

func removeAudio(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, &services.FileOperationError{Op: "delete", Path: path, Err: err}
	}
	return true, nil
}
