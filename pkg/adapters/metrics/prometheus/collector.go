package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	tasksExecuted    *prometheus.CounterVec
	taskDuration     *prometheus.HistogramVec
	progressDropped  prometheus.Counter
	activeSessions   prometheus.Gauge
	sessionsByStatus *prometheus.GaugeVec
	workerPoolBusy   prometheus.Gauge
	workerPoolQueued prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector registered with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		sessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wfdiag_sessions_started_total",
				Help: "Total number of diagnostic sessions started",
			},
			[]string{"output_format"},
		),
		sessionsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wfdiag_sessions_finished_total",
				Help: "Total number of diagnostic sessions that reached a terminal state",
			},
			[]string{"status"},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wfdiag_session_duration_seconds",
				Help:    "Session duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"status"},
		),
		tasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wfdiag_tasks_executed_total",
				Help: "Total number of diagnostic tasks executed",
			},
			[]string{"task", "success"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wfdiag_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 600},
			},
			[]string{"task"},
		),
		progressDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wfdiag_progress_updates_dropped_total",
				Help: "Progress updates discarded because a subscriber was slow",
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wfdiag_active_sessions",
				Help: "Number of sessions not yet in a terminal state",
			},
		),
		sessionsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wfdiag_sessions",
				Help: "Number of stored sessions by status",
			},
			[]string{"status"},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wfdiag_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolQueued: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wfdiag_worker_pool_queued",
				Help: "Number of sessions waiting for a worker",
			},
		),
	}
}

// RecordSessionStarted counts a new session
func (c *Collector) RecordSessionStarted(format string) {
	c.sessionsStarted.WithLabelValues(format).Inc()
}

// RecordSessionFinished counts a terminal session and its duration
func (c *Collector) RecordSessionFinished(status string, duration time.Duration) {
	c.sessionsFinished.WithLabelValues(status).Inc()
	c.sessionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordTaskExecuted records one collector call
func (c *Collector) RecordTaskExecuted(taskID string, success bool, duration time.Duration) {
	c.tasksExecuted.WithLabelValues(taskID, strconv.FormatBool(success)).Inc()
	c.taskDuration.WithLabelValues(taskID).Observe(duration.Seconds())
}

func (c *Collector) RecordProgressDropped() {
	c.progressDropped.Inc()
}

// SetActiveSessions sets the number of sessions still pending or running
func (c *Collector) SetActiveSessions(count int) {
	c.activeSessions.Set(float64(count))
}

// RecordSessionStatus replaces the per-status session gauges
func (c *Collector) RecordSessionStatus(counts map[string]int) {
	c.sessionsByStatus.Reset()
	for status, n := range counts {
		c.sessionsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// RecordPoolStatus records worker pool occupancy
func (c *Collector) RecordPoolStatus(busy, queued int) {
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolQueued.Set(float64(queued))
}
