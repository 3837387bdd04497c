package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/aescanero/wfdiag/pkg/domain"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("event bus closed")

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// InMemoryEventBus fans progress updates out to in-process subscribers.
//
// Each subscriber owns a bounded channel. When it is full the oldest pending
// update is discarded so the newest one, and in particular the terminal one,
// still gets through. Publish never blocks.
type InMemoryEventBus struct {
	buffer int
	onDrop func()

	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	closed      bool
	done        chan struct{}
}

type subscriber struct {
	session uuid.UUID
	ch      chan domain.ProgressUpdate
}

// Option configures an InMemoryEventBus.
type Option func(*InMemoryEventBus)

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(n int) Option {
	return func(e *InMemoryEventBus) {
		if n > 0 {
			e.buffer = n
		}
	}
}

// WithDropHandler registers fn to be called for every discarded update.
func WithDropHandler(fn func()) Option {
	return func(e *InMemoryEventBus) { e.onDrop = fn }
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(opts ...Option) *InMemoryEventBus {
	e := &InMemoryEventBus{
		buffer:      DefaultBuffer,
		subscribers: make(map[uint64]*subscriber),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Publish delivers update to every subscriber of its session and to every
// subscriber of all sessions.
func (e *InMemoryEventBus) Publish(_ context.Context, update domain.ProgressUpdate) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil
	}
	for _, s := range e.subscribers {
		if s.session != uuid.Nil && s.session != update.SessionID {
			continue
		}
		e.deliver(s.ch, update)
	}
	return nil
}

func (e *InMemoryEventBus) deliver(ch chan domain.ProgressUpdate, update domain.ProgressUpdate) {
	select {
	case ch <- update:
		return
	default:
	}

	// full: make room by discarding the oldest update
	select {
	case <-ch:
		e.dropped()
	default:
	}
	select {
	case ch <- update:
	default:
		e.dropped()
	}
}

func (e *InMemoryEventBus) dropped() {
	if e.onDrop != nil {
		e.onDrop()
	}
}

// Subscribe returns a channel of updates for sessionID, or for every session
// when sessionID is uuid.Nil. The channel is closed when ctx is done or the
// bus is closed.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.ProgressUpdate, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	id := e.nextID
	e.nextID++
	s := &subscriber{session: sessionID, ch: make(chan domain.ProgressUpdate, e.buffer)}
	e.subscribers[id] = s
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			e.unsubscribe(id)
		case <-e.done:
		}
	}()

	return s.ch, nil
}

// SubscriberCount returns the number of live subscriptions.
func (e *InMemoryEventBus) SubscriberCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}

// Close closes every subscriber channel.
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	close(e.done)
	for id, s := range e.subscribers {
		close(s.ch)
		delete(e.subscribers, id)
	}
	return nil
}

func (e *InMemoryEventBus) unsubscribe(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.subscribers[id]; ok {
		close(s.ch)
		delete(e.subscribers, id)
	}
}
