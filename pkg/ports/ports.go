package ports

import (
	"context"
	"time"

	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/google/uuid"
)

// Collector runs one diagnostic probe and writes its output below outputDir.
// Implementations must return once ctx is done; the deadline carries the
// per-call timeout.
type Collector interface {
	Collect(ctx context.Context, outputDir string) error
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context, outputDir string) error

func (f CollectorFunc) Collect(ctx context.Context, outputDir string) error {
	return f(ctx, outputDir)
}

// Packager turns a completed output directory into the retrievable artifact
// and returns its path.
type Packager interface {
	Pack(ctx context.Context, sourceDir string) (string, error)
}

// EventBus delivers progress updates to push subscribers.
//
// Publish must never block on a slow or absent subscriber.
type EventBus interface {
	Publish(ctx context.Context, update domain.ProgressUpdate) error
	// Subscribe returns updates for sessionID, or for every session when
	// sessionID is uuid.Nil. The channel is closed when ctx is done.
	Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.ProgressUpdate, error)
	Close() error
}

// MetricsCollector records orchestration metrics.
type MetricsCollector interface {
	RecordSessionStarted(format string)
	RecordSessionFinished(status string, duration time.Duration)
	RecordTaskExecuted(taskID string, success bool, duration time.Duration)
	RecordProgressDropped()
	SetActiveSessions(count int)
	RecordSessionStatus(counts map[string]int)
	RecordPoolStatus(busy, queued int)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RecordSessionStarted(string) {}
func (NoopMetrics) RecordSessionFinished(string, time.Duration) {}
func (NoopMetrics) RecordTaskExecuted(string, bool, time.Duration) {}
func (NoopMetrics) RecordProgressDropped() {}
func (NoopMetrics) SetActiveSessions(int) {}
func (NoopMetrics) RecordSessionStatus(map[string]int) {}
func (NoopMetrics) RecordPoolStatus(int, int) {}
