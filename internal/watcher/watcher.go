package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"draftbot/internal/config"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/services"
)

// Event reports a draft file that appeared in the watched directory.
type Event struct {
	Path    string
	Size    int64
	ModTime time.Time
	// Existing is set for files found by the startup scan.
	Existing bool
}

// SeenLookup answers whether a path was already handled in an earlier run
// and records drafts the startup scan passes over.
type SeenLookup interface {
	Seen(ctx context.Context, path string) (journal.SeenDraft, bool, error)
	MarkSeen(ctx context.Context, path string, status journal.SeenStatus, detail string, at time.Time) error
}

type candidate struct {
	size     int64
	modTime  time.Time
	since    time.Time
	existing bool
}

// Watcher tracks the drafts directory.
type Watcher struct {
	dir             string
	extensions      map[string]struct{}
	nameContains    string
	pollInterval    time.Duration
	settle          time.Duration
	processExisting bool
	seen            SeenLookup
	logger          *slog.Logger
	now             func() time.Time

	events chan Event

	mu         sync.Mutex
	known      map[string]struct{}
	candidates map[string]*candidate
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New builds a watcher from configuration. seen may be nil.
func New(cfg *config.Config, seen SeenLookup, logger *slog.Logger) *Watcher {
	exts := make(map[string]struct{}, len(cfg.Watch.Extensions))
	for _, ext := range cfg.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &Watcher{
		dir:             cfg.Paths.DraftsDir,
		extensions:      exts,
		nameContains:    strings.ToLower(strings.TrimSpace(cfg.Watch.NameContains)),
		pollInterval:    cfg.WatchPollInterval(),
		settle:          cfg.WatchSettle(),
		processExisting: cfg.Watch.ProcessExisting,
		seen:            seen,
		logger:          logging.NewComponentLogger(logger, "watcher"),
		now:             time.Now,
		events:          make(chan Event, 64),
		known:           make(map[string]struct{}),
		candidates:      make(map[string]*candidate),
	}
}

// Events returns the channel new drafts are delivered on.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start verifies the directory is readable, performs the startup scan, and
// begins watching. An unreadable directory is a configuration error.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.mu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return &services.ConfigurationError{Key: "paths.drafts_dir", Err: fmt.Errorf("read %s: %w", w.dir, err)}
	}

	fsw, err := fsnotify.NewWatcher()
	if err == nil {
		if addErr := fsw.Add(w.dir); addErr != nil {
			_ = fsw.Close()
			fsw, err = nil, addErr
		}
	}
	if err != nil {
		logging.WarnWithContext(w.logger, "filesystem notifications unavailable; relying on polling", "watch_notify_unavailable",
			logging.Error(err),
			logging.Duration("poll_interval", w.pollInterval),
			logging.String(logging.FieldImpact, "new drafts are noticed on the next poll"),
			logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches or ignore on network mounts"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.running = true
	w.cancel = cancel
	w.mu.Unlock()

	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if entry.IsDir() || !w.accepts(path) {
			continue
		}
		if !w.processExisting {
			w.skipExisting(runCtx, path)
			continue
		}
		w.consider(runCtx, path, true)
	}

	w.logger.Info("watching drafts directory",
		logging.Event("watcher_started"),
		logging.String("dir", w.dir),
		logging.Int("existing_files", len(entries)),
		logging.Bool("notify", fsw != nil),
	)

	w.wg.Add(1)
	go w.loop(runCtx, fsw)
	return nil
}

// Stop halts watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

// Forget drops path from the seen-set so a later file at the same location
// is treated as new.
func (w *Watcher) Forget(path string) {
	w.mu.Lock()
	delete(w.known, path)
	delete(w.candidates, path)
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()

	var (
		notifyEvents <-chan fsnotify.Event
		notifyErrors <-chan error
	)
	if fsw != nil {
		defer fsw.Close()
		notifyEvents = fsw.Events
		notifyErrors = fsw.Errors
	}

	interval := w.pollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()

	settleTick := w.settle / 2
	if settleTick < 50*time.Millisecond {
		settleTick = 50 * time.Millisecond
	}
	settle := time.NewTicker(settleTick)
	defer settle.Stop()

	w.flush(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-notifyEvents:
			if !ok {
				notifyEvents = nil
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.consider(ctx, ev.Name, false)
		case err, ok := <-notifyErrors:
			if !ok {
				notifyErrors = nil
				continue
			}
			logging.WarnWithContext(w.logger, "filesystem notification error", "watch_notify_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next poll reconciles missed files"),
			)
		case <-poll.C:
			w.reconcile(ctx)
		case <-settle.C:
		}
		w.flush(ctx)
	}
}

// reconcile lists the directory and considers every unseen file.
func (w *Watcher) reconcile(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.WarnWithContext(w.logger, "drafts directory scan failed", "watch_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "new drafts are delayed until the directory is readable"),
			logging.String(logging.FieldErrorHint, "check the drafts mount"),
		)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.consider(ctx, filepath.Join(w.dir, entry.Name()), false)
	}
}

func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if _, ok := w.extensions[strings.ToLower(filepath.Ext(name))]; !ok {
		return false
	}
	if w.nameContains != "" && !strings.Contains(strings.ToLower(name), w.nameContains) {
		return false
	}
	return true
}

func (w *Watcher) markKnown(path string) {
	w.mu.Lock()
	w.known[path] = struct{}{}
	w.mu.Unlock()
}

// consider registers path as a settle candidate unless it was already seen.
func (w *Watcher) consider(ctx context.Context, path string, existing bool) {
	if filepath.Dir(path) != filepath.Clean(w.dir) || !w.accepts(path) {
		return
	}
	w.mu.Lock()
	_, done := w.known[path]
	c, pending := w.candidates[path]
	w.mu.Unlock()
	if done {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(w.logger, "draft stat failed; skipping", "watch_stat_failed",
				logging.DraftPath(path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is retried on the next poll"),
			)
		}
		return
	}
	if info.IsDir() {
		return
	}

	if pending {
		w.mu.Lock()
		if info.Size() != c.size || !info.ModTime().Equal(c.modTime) {
			c.size = info.Size()
			c.modTime = info.ModTime()
			c.since = w.now()
		}
		w.mu.Unlock()
		return
	}

	if w.seen != nil {
		if row, ok, err := w.seen.Seen(ctx, path); err != nil {
			logging.WarnWithContext(w.logger, "journal lookup failed", "watch_journal_failed",
				logging.DraftPath(path),
				logging.Error(err),
			)
			return
		} else if ok && (row.Status != journal.SeenSkipped || !w.processExisting) {
			w.markKnown(path)
			w.logger.Debug("draft already handled",
				logging.DraftPath(path),
				logging.String("status", string(row.Status)),
			)
			return
		}
	}

	w.mu.Lock()
	w.candidates[path] = &candidate{size: info.Size(), modTime: info.ModTime(), since: w.now(), existing: existing}
	w.mu.Unlock()
}

// skipExisting ignores a file found by the startup scan. First sightings are
// journaled as skipped; a later start with process_existing picks them up.
func (w *Watcher) skipExisting(ctx context.Context, path string) {
	w.markKnown(path)
	if w.seen == nil {
		return
	}
	if _, ok, err := w.seen.Seen(ctx, path); err != nil || ok {
		return
	}
	if err := w.seen.MarkSeen(ctx, path, journal.SeenSkipped, "present at startup", w.now()); err != nil {
		logging.WarnWithContext(w.logger, "skipped draft not journaled", "journal_write_failed",
			logging.DraftPath(path),
			logging.Error(err),
		)
	}
}

// flush emits candidates whose size and mod time held still for the settle window.
func (w *Watcher) flush(ctx context.Context) {
	now := w.now()
	w.mu.Lock()
	paths := make([]string, 0, len(w.candidates))
	for path := range w.candidates {
		paths = append(paths, path)
	}
	w.mu.Unlock()
	sort.Strings(paths)

	for _, path := range paths {
		info, err := os.Stat(path)
		w.mu.Lock()
		c, ok := w.candidates[path]
		if !ok {
			w.mu.Unlock()
			continue
		}
		if err != nil {
			delete(w.candidates, path)
			w.mu.Unlock()
			if !errors.Is(err, os.ErrNotExist) {
				logging.WarnWithContext(w.logger, "draft stat failed; skipping", "watch_stat_failed",
					logging.DraftPath(path),
					logging.Error(err),
				)
			}
			continue
		}
		if info.Size() != c.size || !info.ModTime().Equal(c.modTime) {
			c.size = info.Size()
			c.modTime = info.ModTime()
			c.since = now
			w.mu.Unlock()
			continue
		}
		if now.Sub(c.since) < w.settle {
			w.mu.Unlock()
			continue
		}
		delete(w.candidates, path)
		w.known[path] = struct{}{}
		ev := Event{Path: path, Size: c.size, ModTime: c.modTime, Existing: c.existing}
		w.mu.Unlock()

		w.logger.Debug("draft detected",
			logging.Event("draft_detected"),
			logging.DraftPath(path),
			logging.Int64("size_bytes", ev.Size),
		)
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}
