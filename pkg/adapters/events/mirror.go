package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// Mirror publishes to a primary bus and copies every update to secondary
// buses. Subscriptions are served by the primary only. A failing mirror is
// logged and never fails Publish.
type Mirror struct {
	primary ports.EventBus
	mirrors []ports.EventBus
	timeout time.Duration
	logger  *zap.Logger
}

// NewMirror creates a Mirror. Each mirror publish is bounded by timeout.
func NewMirror(primary ports.EventBus, timeout time.Duration, logger *zap.Logger, mirrors ...ports.EventBus) *Mirror {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Mirror{primary: primary, mirrors: mirrors, timeout: timeout, logger: logger}
}

func (m *Mirror) Publish(ctx context.Context, update domain.ProgressUpdate) error {
	if err := m.primary.Publish(ctx, update); err != nil {
		return err
	}
	for _, b := range m.mirrors {
		mctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := b.Publish(mctx, update)
		cancel()
		if err != nil {
			m.logger.Warn("failed to mirror progress update",
				zap.String("session_id", update.SessionID.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (m *Mirror) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.ProgressUpdate, error) {
	return m.primary.Subscribe(ctx, sessionID)
}

func (m *Mirror) Close() error {
	errs := []error{m.primary.Close()}
	for _, b := range m.mirrors {
		errs = append(errs, b.Close())
	}
	return errors.Join(errs...)
}
