package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor monitors worker health
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	sessions func() map[string]int
}

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	TotalWorkers   int            `json:"total_workers"`
	IdleWorkers    int            `json:"idle_workers"`
	BusyWorkers    int            `json:"busy_workers"`
	StoppedWorkers int            `json:"stopped_workers"`
	QueuedJobs     int            `json:"queued_jobs"`
	Sessions       map[string]int `json:"sessions,omitempty"`
	Healthy        bool           `json:"healthy"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// ObserveSessions registers a source of per-status session counts that is
// sampled on every health check.
func (h *HealthMonitor) ObserveSessions(fn func() map[string]int) {
	h.mu.Lock()
	h.sessions = fn
	h.mu.Unlock()
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// run is the main health monitoring loop
func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth checks worker health and logs status
func (h *HealthMonitor) checkHealth() {
	status := h.GetStatus()

	h.logger.Info("worker pool health check",
		zap.Int("total", status.TotalWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("queued", status.QueuedJobs),
		zap.Any("sessions", status.Sessions),
		zap.Bool("healthy", status.Healthy))

	h.pool.metrics.RecordPoolStatus(status.BusyWorkers, status.QueuedJobs)
	if status.Sessions != nil {
		h.pool.metrics.RecordSessionStatus(status.Sessions)
	}

	if !status.Healthy {
		h.logger.Warn("worker pool is unhealthy",
			zap.Int("stopped", status.StoppedWorkers),
			zap.Int("total", status.TotalWorkers))
	}

	// Sessions wait as Pending while this holds.
	if status.QueuedJobs > 0 {
		h.logger.Warn("all workers are busy - sessions are queued",
			zap.Int("total", status.TotalWorkers),
			zap.Int("queued", status.QueuedJobs))
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	workerStatuses := h.pool.GetStatus()

	var idle, busy, stopped int
	for _, status := range workerStatuses {
		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}

	h.mu.RLock()
	sessions := h.sessions
	h.mu.RUnlock()

	st := &HealthStatus{
		TotalWorkers:   len(workerStatuses),
		IdleWorkers:    idle,
		BusyWorkers:    busy,
		StoppedWorkers: stopped,
		QueuedJobs:     h.pool.Stats().Queued,
		Healthy:        len(workerStatuses) > 0 && stopped == 0,
		Timestamp:      time.Now(),
	}
	if sessions != nil {
		st.Sessions = sessions()
	}
	return st
}

// IsHealthy returns true if the worker pool is healthy
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}
