package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/journal"
	"draftbot/internal/logging"
	"draftbot/internal/services"
	"draftbot/internal/workflow"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another draftbot daemon instance is already running")

// Service is a collaborator whose lifetime follows the daemon's.
type Service struct {
	Name   string
	Start  func(context.Context) error
	Stop   func()
	Health func() workflow.ComponentHealth
}

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *journal.Store
	workflow *workflow.Manager
	hub      *logging.StreamHub
	services []Service
	started  []Service
	api      *apiServer

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Workflow     workflow.StatusSummary
	JournalPath  string
	LockFilePath string
	Components   []workflow.ComponentHealth
}

// Option configures optional daemon collaborators.
type Option func(*Daemon)

// WithServices registers services started after the workflow, in order.
func WithServices(services ...Service) Option {
	return func(d *Daemon) {
		d.services = append(d.services, services...)
	}
}

// WithLogStream exposes hub through the log API.
func WithLogStream(hub *logging.StreamHub) Option {
	return func(d *Daemon) {
		d.hub = hub
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *journal.Store, logger *slog.Logger, wf *workflow.Manager, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, journal, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		pidPath:  lockPath + ".pid",
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, then launches the workflow manager,
// registered services, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		d.logger.Warn("pid file not written", logging.String("path", d.pidPath), logging.Error(err))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}

	for _, svc := range d.services {
		if svc.Start != nil {
			if err := svc.Start(d.ctx); err != nil {
				d.stopServices()
				d.workflow.Stop()
				d.abortStart()
				return fmt.Errorf("start %s: %w", svc.Name, err)
			}
		}
		d.started = append(d.started, svc)
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = api.start(d.ctx)
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "api server unavailable", "api_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check api.bind is a free local address"),
			logging.String(logging.FieldImpact, "CLI status and manual decisions need the daemon API"),
		)
		api = nil
	}
	d.api = api

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("draftbot daemon started",
		logging.Event("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("services", len(d.started)),
	)
	return nil
}

func (d *Daemon) abortStart() {
	d.removePIDFile()
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// removePIDFile runs while the lock is still held.
func (d *Daemon) removePIDFile() {
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("pid file not removed", logging.String("path", d.pidPath), logging.Error(err))
	}
}

func (d *Daemon) stopServices() {
	for i := len(d.started) - 1; i >= 0; i-- {
		if stop := d.started[i].Stop; stop != nil {
			stop()
		}
	}
	d.started = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	d.stopServices()
	d.workflow.Stop()
	d.removePIDFile()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("draftbot daemon stopped", logging.Event("daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogStream returns the in-memory log hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	return d.hub
}

// Pending returns trackers awaiting a decision.
func (d *Daemon) Pending() []approval.Tracker {
	return d.workflow.Pending()
}

// Decide applies a manual approve/reject decision for messageID.
func (d *Daemon) Decide(ctx context.Context, messageID, decision, user string) (approval.OfferResult, approval.Tracker, error) {
	marker, ok := approval.ParseMarker(strings.ToLower(strings.TrimSpace(decision)))
	if !ok {
		return approval.OfferIgnored, approval.Tracker{}, fmt.Errorf("%w: decision must be approve or reject, got %q", services.ErrValidation, decision)
	}
	if strings.TrimSpace(user) == "" {
		user = "api"
	}
	return d.workflow.Decide(ctx, messageID, user, marker)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	components := make([]workflow.ComponentHealth, 0, len(d.services)+1)
	if err := d.store.Ping(ctx); err != nil {
		components = append(components, workflow.UnhealthyComponent("journal", err.Error()))
	} else {
		components = append(components, workflow.HealthyComponent("journal"))
	}
	for _, svc := range d.services {
		if svc.Health != nil {
			components = append(components, svc.Health())
		}
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		Workflow:     d.workflow.Status(),
		JournalPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Components:   components,
	}
}
