package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/catalog"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// ReportFile is written into every session directory before packaging.
const ReportFile = "report.json"

// runningCeiling caps progress while a session is running so that progress
// reaches 1.0 if and only if the session is Completed.
const runningCeiling = 0.95

// DefaultCollectorGrace is how long a collector may keep running after its
// timeout before the runner warns that it ignores cancellation.
const DefaultCollectorGrace = 2 * time.Second

// errAbandoned marks a collector left running because the worker was stopped.
var errAbandoned = errors.New("abandoned")

// Status lines carried by progress updates.
const (
	msgQueued    = "Waiting for a free worker"
	msgStarting  = "Starting diagnostics"
	msgArchiving = "Creating archive..."
	msgReporting = "Writing report..."
	msgCompleted = "Diagnostics completed successfully"
	msgCancelled = "Diagnostics cancelled"
)

func runningMessage(task string) string { return fmt.Sprintf("Running %s...", task) }

func failedMessage(errs []string) string {
	return "Diagnostics failed: " + strings.Join(errs, ", ")
}

// runningProgress maps completed/total into [0, runningCeiling].
func runningProgress(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return runningCeiling * float64(completed) / float64(total)
}

// SystemInfoFunc describes the host a report is generated on.
type SystemInfoFunc func(ctx context.Context, isAdmin bool) domain.SystemInfo

// Runner executes one session's tasks sequentially and owns every write to
// that session until its terminal transition.
type Runner struct {
	store       *SessionStore
	packagers   map[domain.OutputFormat]ports.Packager
	systemInfo  SystemInfoFunc
	metrics     ports.MetricsCollector
	logger      *zap.Logger
	outputRoot  string
	taskTimeout time.Duration
	grace       time.Duration
	admin       bool
	now         func() time.Time
}

// NewRunner creates a runner writing session directories below outputRoot.
func NewRunner(
	store *SessionStore,
	packagers map[domain.OutputFormat]ports.Packager,
	systemInfo SystemInfoFunc,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	outputRoot string,
	taskTimeout time.Duration,
	admin bool,
) *Runner {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &Runner{
		store:       store,
		packagers:   packagers,
		systemInfo:  systemInfo,
		metrics:     metrics,
		logger:      logger,
		outputRoot:  outputRoot,
		taskTimeout: taskTimeout,
		grace:       DefaultCollectorGrace,
		admin:       admin,
		now:         time.Now,
	}
}

// SessionDir returns the output directory of session id.
func (r *Runner) SessionDir(id uuid.UUID) string {
	return filepath.Join(r.outputRoot, id.String())
}

// Run drives session id from Pending to a terminal state. ctx is the worker
// context: once it is done no further task starts.
func (r *Runner) Run(ctx context.Context, id uuid.UUID, entries []catalog.Entry) domain.Session {
	logger := r.logger.With(zap.String("session_id", id.String()))
	started := r.now()

	if err := ctx.Err(); err != nil {
		return r.abort(logger, id, started, &domain.SetupError{Op: "start", Err: err})
	}
	dir := r.SessionDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return r.abort(logger, id, started, &domain.SetupError{Op: "create output directory", Err: err})
	}

	err := r.store.WithSession(id, msgStarting, func(s *domain.Session) error {
		s.Status = domain.SessionStatusRunning
		s.StartedAt = &started
		if s.TotalTasks == 0 {
			s.TotalTasks = len(entries)
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to start session", zap.Error(err))
		return r.snapshot(id)
	}
	logger.Info("session started", zap.Int("tasks", len(entries)))

	results := make([]domain.TaskResult, 0, len(entries))
	cancelled := false
	for i, e := range entries {
		if r.cancelled(ctx, id) {
			cancelled = true
			break
		}
		name := e.Descriptor.Name
		r.update(logger, id, runningMessage(name), func(s *domain.Session) error {
			s.CurrentTask = name
			return nil
		})

		res, cerr := r.runTask(ctx, e, dir)
		results = append(results, res)

		completed := i + 1
		r.update(logger, id, "", func(s *domain.Session) error {
			if cerr != nil {
				s.Errors = append(s.Errors, cerr.Error())
			}
			s.CompletedTasks = completed
			s.Progress = runningProgress(completed, s.TotalTasks)
			return nil
		})
	}
	if !cancelled && r.cancelled(ctx, id) {
		cancelled = true
	}

	if cancelled {
		return r.finish(logger, id, started, msgCancelled, func(s *domain.Session) {
			s.Status = domain.SessionStatusCancelled
			s.CurrentTask = ""
		})
	}

	path, err := r.pack(ctx, logger, id, dir, results, started)
	if err != nil {
		return r.fail(logger, id, started, err)
	}
	return r.finish(logger, id, started, msgCompleted, func(s *domain.Session) {
		s.Status = domain.SessionStatusCompleted
		s.CurrentTask = ""
		s.Progress = 1.0
		s.OutputPath = path
	})
}

func (r *Runner) cancelled(ctx context.Context, id uuid.UUID) bool {
	return ctx.Err() != nil || r.store.CancelRequested(id)
}

func (r *Runner) update(logger *zap.Logger, id uuid.UUID, message string, fn func(*domain.Session) error) {
	if err := r.store.WithSession(id, message, fn); err != nil {
		logger.Error("failed to update session", zap.Error(err))
	}
}

// runTask invokes one collector under its timeout. A panic or an overrun is
// turned into a CollectorError like any other failure.
func (r *Runner) runTask(ctx context.Context, e catalog.Entry, dir string) (domain.TaskResult, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = r.taskTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := r.now()
	err := invoke(ctx, tctx, e.Collector, dir, r.grace, r.logger.With(zap.String("task_id", e.Descriptor.ID)))
	if errors.Is(err, context.DeadlineExceeded) && tctx.Err() != nil {
		err = fmt.Errorf("timed out after %s", timeout)
	}
	elapsed := r.now().Sub(start)

	res := domain.TaskResult{
		TaskID:     e.Descriptor.ID,
		TaskName:   e.Descriptor.Name,
		Success:    err == nil,
		DurationMs: elapsed.Milliseconds(),
	}
	r.metrics.RecordTaskExecuted(e.Descriptor.ID, err == nil, elapsed)

	if err != nil {
		cerr := &domain.CollectorError{TaskID: e.Descriptor.ID, Task: e.Descriptor.Name, Err: err}
		res.Error = err.Error()
		r.logger.Warn("task failed",
			zap.String("task_id", e.Descriptor.ID),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return res, cerr
	}
	r.logger.Debug("task completed",
		zap.String("task_id", e.Descriptor.ID),
		zap.Duration("duration", elapsed))
	return res, nil
}

// invoke returns when the collector does. Once ctx is done the collector
// gets grace to return; after that invoke keeps waiting so that no two tasks
// of a session ever overlap, and gives up only when parent is done.
func invoke(parent, ctx context.Context, c ports.Collector, dir string, grace time.Duration, logger *zap.Logger) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- c.Collect(ctx, dir)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	overrun := ctx.Err()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
		return overrun
	case <-timer.C:
	}

	logger.Warn("collector ignores cancellation, waiting for it to return",
		zap.Duration("grace", grace))
	select {
	case <-done:
		return overrun
	case <-parent.Done():
		return fmt.Errorf("%w: collector still running", errAbandoned)
	}
}

// pack writes report.json and hands the directory to the packager for the
// session's output format.
func (r *Runner) pack(ctx context.Context, logger *zap.Logger, id uuid.UUID, dir string, results []domain.TaskResult, started time.Time) (string, error) {
	sess, err := r.store.Get(id)
	if err != nil {
		return "", err
	}
	packager, ok := r.packagers[sess.OutputFormat]
	if !ok {
		return "", &domain.PackagingError{Err: fmt.Errorf("no packager for output format %q", sess.OutputFormat)}
	}

	msg := msgReporting
	if sess.OutputFormat.WantsArchive() {
		msg = msgArchiving
	}
	r.update(logger, id, msg, func(*domain.Session) error { return nil })

	if err := r.writeReport(ctx, id, dir, results, started); err != nil {
		return "", &domain.PackagingError{Err: err}
	}
	path, err := packager.Pack(ctx, dir)
	if err != nil {
		return "", &domain.PackagingError{Err: err}
	}
	return path, nil
}

func (r *Runner) writeReport(ctx context.Context, id uuid.UUID, dir string, results []domain.TaskResult, started time.Time) error {
	report := domain.DiagnosticReport{
		SessionID:   id,
		TaskResults: results,
		Summary:     domain.Summarize(results, r.now().Sub(started)),
		GeneratedAt: r.now().UTC(),
	}
	if r.systemInfo != nil {
		report.SystemInfo = r.systemInfo(ctx, r.admin)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ReportFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// abort fails a session that never reached Running.
func (r *Runner) abort(logger *zap.Logger, id uuid.UUID, started time.Time, cause error) domain.Session {
	logger.Error("session setup failed", zap.Error(cause))
	return r.fail(logger, id, started, cause)
}

// fail appends cause and moves the session to Failed. The runner is the only
// writer, so the errors read here are the ones the terminal write extends.
func (r *Runner) fail(logger *zap.Logger, id uuid.UUID, started time.Time, cause error) domain.Session {
	errs := append(r.snapshot(id).Errors, cause.Error())
	return r.finish(logger, id, started, failedMessage(errs), func(s *domain.Session) {
		s.Status = domain.SessionStatusFailed
		s.CurrentTask = ""
		s.Errors = append(s.Errors, cause.Error())
	})
}

// finish performs the terminal write.
func (r *Runner) finish(logger *zap.Logger, id uuid.UUID, started time.Time, message string, fn func(*domain.Session)) domain.Session {
	now := r.now()
	var final domain.Session
	err := r.store.WithSession(id, message, func(s *domain.Session) error {
		fn(s)
		s.CompletedAt = &now
		final = s.Clone()
		return nil
	})
	if err != nil {
		logger.Error("failed to finish session", zap.Error(err))
		return r.snapshot(id)
	}

	elapsed := now.Sub(started)
	r.metrics.RecordSessionFinished(string(final.Status), elapsed)
	logger.Info("session finished",
		zap.String("status", string(final.Status)),
		zap.Int("completed_tasks", final.CompletedTasks),
		zap.Int("total_tasks", final.TotalTasks),
		zap.Int("errors", len(final.Errors)),
		zap.Duration("duration", elapsed))
	return final
}

func (r *Runner) snapshot(id uuid.UUID) domain.Session {
	s, _ := r.store.Get(id)
	return s
}
