package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/ports"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Job is one unit of work. ctx is cancelled when the pool shuts down; jobs
// still queued at that point run once with the cancelled context so they can
// record why they never started.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of worker goroutines. Submit never blocks:
// jobs wait in an unbounded FIFO queue until a worker is free.
type Pool struct {
	size    int
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	mu      sync.Mutex
	queue   []Job
	closed  bool
	wake    chan struct{}
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// Stats is a point-in-time view of the pool.
type Stats struct {
	Size   int `json:"size"`
	Busy   int `json:"busy"`
	Idle   int `json:"idle"`
	Queued int `json:"queued"`
}

// NewPool creates a new worker pool
func NewPool(size int, metrics ports.MetricsCollector, logger *zap.Logger, healthCheckInterval time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		metrics: metrics,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Health returns the pool's health monitor.
func (p *Pool) Health() *HealthMonitor { return p.health }

// Start starts the worker pool
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}

	p.health.Start()
}

// Submit enqueues job.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()

	p.signal()
	return nil
}

func (p *Pool) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest job. ok is false once the pool is closed and drained.
func (p *Pool) next() (job Job, ok bool) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			job = p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			more := len(p.queue) > 0
			p.mu.Unlock()
			if more {
				// pass the wakeup on to another idle worker
				p.signal()
			}
			return job, true
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-p.wake:
		case <-p.ctx.Done():
		}
	}
}

// Shutdown stops accepting jobs, cancels running ones and waits for every
// worker to drain the queue.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus, len(p.workers))
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// Stats returns the current pool occupancy.
func (p *Pool) Stats() Stats {
	s := Stats{Size: p.size}
	for _, st := range p.GetStatus() {
		switch st {
		case WorkerStatusBusy:
			s.Busy++
		case WorkerStatusIdle:
			s.Idle++
		}
	}
	p.mu.Lock()
	s.Queued = len(p.queue)
	p.mu.Unlock()
	return s
}

func (w *worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	if s == WorkerStatusBusy {
		w.lastJob = time.Now()
	}
	w.mu.Unlock()
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		job, ok := w.pool.next()
		if !ok {
			break
		}
		w.setStatus(WorkerStatusBusy)
		w.execute(job)
		w.setStatus(WorkerStatusIdle)
	}

	w.setStatus(WorkerStatusStopped)
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

func (w *worker) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.pool.logger.Error("job panicked",
				zap.String("worker_id", w.id),
				zap.Any("panic", r))
		}
	}()
	job(w.pool.ctx)
}
