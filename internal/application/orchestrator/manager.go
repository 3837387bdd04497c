package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/internal/application/workers"
	"github.com/aescanero/wfdiag/pkg/catalog"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// Config holds the manager settings that do not come from injected adapters.
type Config struct {
	// OutputRoot receives one directory per session.
	OutputRoot string
	// TaskTimeout applies to catalog entries without their own timeout.
	TaskTimeout time.Duration
	// ProgressInterval is the sampling period of progress updates.
	ProgressInterval time.Duration
	// Admin grants access to admin-only tasks.
	Admin bool
	// Packagers maps each output format to the packager producing its artifact.
	Packagers map[domain.OutputFormat]ports.Packager
	// SystemInfo describes the host in report.json. Optional.
	SystemInfo SystemInfoFunc
	// CollectorGrace bounds the wait for a timed-out collector before a
	// warning is logged; DefaultCollectorGrace when zero.
	CollectorGrace time.Duration
}

// Manager coordinates diagnostic sessions
type Manager struct {
	catalog   *catalog.Catalog
	store     *SessionStore
	runner    *Runner
	sampler   *ProgressSampler
	pool      *workers.Pool
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	logger    *zap.Logger
	cfg       Config

	active   atomic.Int64
	samplers sync.WaitGroup
}

// NewManager creates a new orchestrator manager. The pool must be started by
// the caller; Shutdown stops it.
func NewManager(
	cat *catalog.Catalog,
	pool *workers.Pool,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	validator *Validator,
	logger *zap.Logger,
	cfg Config,
) *Manager {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	store := NewSessionStore()
	runner := NewRunner(store, cfg.Packagers, cfg.SystemInfo, metrics, logger, cfg.OutputRoot, cfg.TaskTimeout, cfg.Admin)
	if cfg.CollectorGrace > 0 {
		runner.grace = cfg.CollectorGrace
	}
	m := &Manager{
		catalog:   cat,
		store:     store,
		runner:    runner,
		sampler:   NewProgressSampler(store, eventBus, cfg.ProgressInterval, logger),
		pool:      pool,
		eventBus:  eventBus,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
	}
	pool.Health().ObserveSessions(store.Counts)
	return m
}

// Admin reports whether admin-only tasks are available.
func (m *Manager) Admin() bool { return m.cfg.Admin }

// ListTasks returns the tasks available at the manager's privilege level.
func (m *Manager) ListTasks() []domain.TaskDescriptor {
	return m.catalog.List(m.cfg.Admin)
}

// SystemInfo describes the host.
func (m *Manager) SystemInfo(ctx context.Context) domain.SystemInfo {
	if m.cfg.SystemInfo == nil {
		return domain.SystemInfo{IsAdmin: m.cfg.Admin}
	}
	return m.cfg.SystemInfo(ctx, m.cfg.Admin)
}

// StartSession validates req, registers a pending session and schedules it.
// It returns the pending snapshot without waiting for the run.
func (m *Manager) StartSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	req, err := m.validator.Validate(req)
	if err != nil {
		m.logger.Warn("session request rejected", zap.Error(err))
		return domain.Session{}, fmt.Errorf("validation failed: %w", err)
	}

	entries := m.catalog.Resolve(req.TaskIDs, m.cfg.Admin)
	session := domain.Session{
		ID:           uuid.New(),
		Status:       domain.SessionStatusPending,
		OutputFormat: req.OutputFormat,
		TotalTasks:   len(entries),
		Errors:       []string{},
	}
	if err := m.store.Insert(session, msgQueued); err != nil {
		return domain.Session{}, fmt.Errorf("failed to register session: %w", err)
	}

	id := session.ID
	finished := make(chan struct{})

	m.active.Add(1)
	m.metrics.SetActiveSessions(int(m.active.Load()))
	m.metrics.RecordSessionStarted(string(req.OutputFormat))

	m.samplers.Add(1)
	go func() {
		defer m.samplers.Done()
		m.sampler.Run(id, finished)
	}()

	job := func(ctx context.Context) {
		defer m.sessionDone(finished)
		m.runner.Run(ctx, id, entries)
	}
	if err := m.pool.Submit(job); err != nil {
		// never ran; fail it so pollers and the sampler see a terminal state
		m.runner.abort(m.logger.With(zap.String("session_id", id.String())), id, time.Now(),
			&domain.SetupError{Op: "schedule", Err: err})
		m.sessionDone(finished)
		return session.Clone(), nil
	}

	m.logger.Info("session submitted",
		zap.String("session_id", id.String()),
		zap.String("output_format", string(req.OutputFormat)),
		zap.Int("requested_tasks", len(req.TaskIDs)),
		zap.Int("resolved_tasks", len(entries)))

	return session.Clone(), nil
}

func (m *Manager) sessionDone(finished chan struct{}) {
	close(finished)
	m.metrics.SetActiveSessions(int(m.active.Add(-1)))
}

// GetSession returns a snapshot of session id.
func (m *Manager) GetSession(_ context.Context, id uuid.UUID) (domain.Session, error) {
	return m.store.Get(id)
}

// Progress returns the latest progress update of session id, as the sampler
// would publish it now.
func (m *Manager) Progress(_ context.Context, id uuid.UUID) (domain.ProgressUpdate, error) {
	sess, msg, err := m.store.Snapshot(id)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	return domain.NewProgressUpdate(sess, msg, time.Now()), nil
}

// CancelSession asks a running session to stop before its next task. It
// fails with domain.ErrInvalidTransition unless the session is running and
// not already cancelling.
func (m *Manager) CancelSession(_ context.Context, id uuid.UUID) error {
	if err := m.store.RequestCancel(id); err != nil {
		return err
	}
	m.logger.Info("session cancellation requested", zap.String("session_id", id.String()))
	return nil
}

// OutputPath returns the artifact of a completed session.
func (m *Manager) OutputPath(_ context.Context, id uuid.UUID) (string, error) {
	sess, err := m.store.Get(id)
	if err != nil {
		return "", err
	}
	if sess.Status != domain.SessionStatusCompleted || sess.OutputPath == "" {
		return "", fmt.Errorf("session %s is %s: %w", id, sess.Status, domain.ErrOutputUnavailable)
	}
	return sess.OutputPath, nil
}

// Subscribe streams progress updates of session id. The channel closes when
// ctx is done.
func (m *Manager) Subscribe(ctx context.Context, id uuid.UUID) (<-chan domain.ProgressUpdate, error) {
	if _, err := m.store.Get(id); err != nil {
		return nil, err
	}
	ch, err := m.eventBus.Subscribe(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return ch, nil
}

// SessionCounts returns the number of sessions per status.
func (m *Manager) SessionCounts() map[string]int {
	return m.store.Counts()
}

// Shutdown stops scheduling, cancels running sessions at their next task
// boundary and waits until every session is terminal and its final progress
// update is published.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down orchestrator manager")

	var errs []error
	if err := m.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop worker pool: %w", err))
	}

	done := make(chan struct{})
	go func() {
		m.samplers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("progress samplers: %w", ctx.Err()))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	m.logger.Info("orchestrator manager shut down complete")
	return nil
}
