package orchestrator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/aescanero/wfdiag/pkg/domain"
)

// record is one session plus the state only its runner and the cancel path
// touch. mu serializes writes to this session alone.
type record struct {
	mu              sync.RWMutex
	session         domain.Session
	message         string
	cancelRequested bool
}

// SessionStore holds every session for the lifetime of the process.
// Readers of different sessions never contend; writers lock a single record.
type SessionStore struct {
	sessions sync.Map // map[uuid.UUID]*record
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Insert adds a new pending session with its initial status message.
func (s *SessionStore) Insert(session domain.Session, message string) error {
	if session.Status != domain.SessionStatusPending {
		return fmt.Errorf("insert %s: status %s: %w", session.ID, session.Status, domain.ErrInvalidTransition)
	}
	rec := &record{session: session.Clone(), message: message}
	if _, loaded := s.sessions.LoadOrStore(session.ID, rec); loaded {
		return fmt.Errorf("insert %s: %w", session.ID, domain.ErrDuplicateSession)
	}
	return nil
}

func (s *SessionStore) load(id uuid.UUID) (*record, error) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	return v.(*record), nil
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id uuid.UUID) (domain.Session, error) {
	sess, _, err := s.Snapshot(id)
	return sess, err
}

// Snapshot returns a copy of the session together with its status message.
func (s *SessionStore) Snapshot(id uuid.UUID) (domain.Session, string, error) {
	rec, err := s.load(id)
	if err != nil {
		return domain.Session{}, "", err
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.session.Clone(), rec.message, nil
}

// WithSession applies fn to the session under its exclusive lock. A non-empty
// message replaces the status line in the same write. Terminal sessions are
// frozen, and a status change fn makes must be a legal transition; otherwise
// the record is left untouched.
func (s *SessionStore) WithSession(id uuid.UUID, message string, fn func(*domain.Session) error) error {
	rec, err := s.load(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	prev := rec.session.Status
	if prev.IsTerminal() {
		return fmt.Errorf("session %s is %s: %w", id, prev, domain.ErrInvalidTransition)
	}

	next := rec.session.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if next.ID != id {
		return fmt.Errorf("session %s: id is immutable", id)
	}
	if next.Status != prev && !prev.CanTransitionTo(next.Status) {
		return fmt.Errorf("session %s: %s -> %s: %w", id, prev, next.Status, domain.ErrInvalidTransition)
	}
	if next.CompletedTasks > next.TotalTasks {
		return fmt.Errorf("session %s: completed %d of %d tasks", id, next.CompletedTasks, next.TotalTasks)
	}

	rec.session = next
	if message != "" {
		rec.message = message
	}
	return nil
}

// RequestCancel flags a running session for cancellation. Only the first
// request against a running session succeeds.
func (s *SessionStore) RequestCancel(id uuid.UUID) error {
	rec, err := s.load(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.session.Status != domain.SessionStatusRunning || rec.cancelRequested {
		return fmt.Errorf("cancel %s (%s): %w", id, rec.session.Status, domain.ErrInvalidTransition)
	}
	rec.cancelRequested = true
	return nil
}

// CancelRequested reports whether RequestCancel succeeded for id.
func (s *SessionStore) CancelRequested(id uuid.UUID) bool {
	rec, err := s.load(id)
	if err != nil {
		return false
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.cancelRequested
}

// Counts returns the number of stored sessions per status.
func (s *SessionStore) Counts() map[string]int {
	counts := make(map[string]int)
	s.sessions.Range(func(_, v any) bool {
		rec := v.(*record)
		rec.mu.RLock()
		counts[string(rec.session.Status)]++
		rec.mu.RUnlock()
		return true
	})
	return counts
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	n := 0
	s.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
