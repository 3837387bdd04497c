package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// ProgressSampler publishes a snapshot of a session on every tick, changed or
// not, and one last update once the session is terminal.
type ProgressSampler struct {
	store    *SessionStore
	bus      ports.EventBus
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressSampler creates a sampler ticking every interval.
func NewProgressSampler(store *SessionStore, bus ports.EventBus, interval time.Duration, logger *zap.Logger) *ProgressSampler {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &ProgressSampler{
		store:    store,
		bus:      bus,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run samples session id until it observes a terminal status. finished is
// closed by the session's runner after its terminal write and short-cuts the
// wait for the next tick.
func (p *ProgressSampler) Run(id uuid.UUID, finished <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		sess, msg, err := p.store.Snapshot(id)
		if err != nil {
			p.logger.Error("progress sampler stopped",
				zap.String("session_id", id.String()),
				zap.Error(err))
			return
		}
		p.publish(domain.NewProgressUpdate(sess, msg, p.now()))
		if sess.Status.IsTerminal() {
			return
		}

		select {
		case <-ticker.C:
		case <-finished:
			// the next snapshot is terminal
			finished = nil
		}
	}
}

func (p *ProgressSampler) publish(update domain.ProgressUpdate) {
	// Publish does not block on subscribers; the timeout only bounds a
	// misbehaving bus.
	ctx, cancel := context.WithTimeout(context.Background(), p.interval*5)
	defer cancel()
	if err := p.bus.Publish(ctx, update); err != nil {
		p.logger.Warn("failed to publish progress update",
			zap.String("session_id", update.SessionID.String()),
			zap.Error(err))
	}
}
