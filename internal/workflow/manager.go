package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"draftbot/internal/approval"
	"draftbot/internal/config"
	"draftbot/internal/logging"
)

const (
	sweepInterval  = time.Minute
	terminalMaxAge = 24 * time.Hour
)

// Manager coordinates draft announcement and approval decisions.
type Manager struct {
	cfg    *config.Config
	table  *approval.Table
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
	expiry time.Duration

	wake chan struct{}

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lastErr      error
	lastDraft    string
	lastDecision *approval.Tracker
	announced    int
	decided      int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the manager's time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a workflow manager around table.
func NewManager(cfg *config.Config, table *approval.Table, deps Deps, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:    cfg,
		table:  table,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "workflow"),
		now:    time.Now,
		expiry: cfg.ApprovalExpiry(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Table exposes the approval table.
func (m *Manager) Table() *approval.Table {
	return m.table
}

// Start begins consuming draft and reaction events.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.runDrafts(runCtx)
	go m.runDecisions(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runDrafts(ctx context.Context) {
	defer m.wg.Done()
	if m.deps.Drafts == nil {
		<-ctx.Done()
		return
	}
	events := m.deps.Drafts.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := m.HandleDraft(ctx, ev.Path); err != nil && errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) runDecisions(ctx context.Context) {
	defer m.wg.Done()
	var reactions <-chan approval.Reaction
	if m.deps.Reactions != nil {
		reactions = m.deps.Reactions.Reactions()
	}
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	var settleC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reactions:
			if !ok {
				reactions = nil
				continue
			}
			m.HandleReaction(ctx, r)
		case <-m.wake:
		case <-settleC:
			m.Settle(ctx)
		case <-sweep.C:
			m.Sweep(ctx)
		}
		settleC = nil
		if next, ok := m.table.NextSettle(); ok {
			settleC = time.After(max(next.Sub(m.now()), 0))
		}
	}
}

func (m *Manager) notifyDecisionLoop() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
