package orchestrator_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/wfdiag/internal/application/orchestrator"
	"github.com/aescanero/wfdiag/pkg/domain"
)

func pending(total int) domain.Session {
	return domain.Session{ID: uuid.New(), Status: domain.SessionStatusPending, TotalTasks: total, Errors: []string{}}
}

func setStatus(st domain.SessionStatus) func(*domain.Session) error {
	return func(s *domain.Session) error {
		s.Status = st
		return nil
	}
}

func TestStoreInsertAndGet(t *testing.T) {
	store := orchestrator.NewSessionStore()
	s := pending(2)

	require.NoError(t, store.Insert(s, "queued"))
	assert.ErrorIs(t, store.Insert(s, "queued"), domain.ErrDuplicateSession)

	got, msg, err := store.Snapshot(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, "queued", msg)

	_, err = store.Get(uuid.New())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	store := orchestrator.NewSessionStore()
	s := pending(1)
	require.NoError(t, store.Insert(s, "queued"))

	snap, err := store.Get(s.ID)
	require.NoError(t, err)
	snap.Errors = append(snap.Errors, "mutated")

	again, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Errors)
}

func TestStoreTransitions(t *testing.T) {
	store := orchestrator.NewSessionStore()
	s := pending(1)
	require.NoError(t, store.Insert(s, "queued"))

	// Pending cannot complete directly
	assert.ErrorIs(t, store.WithSession(s.ID, "", setStatus(domain.SessionStatusCompleted)), domain.ErrInvalidTransition)

	require.NoError(t, store.WithSession(s.ID, "running", setStatus(domain.SessionStatusRunning)))
	require.NoError(t, store.WithSession(s.ID, "", setStatus(domain.SessionStatusCompleted)))

	// terminal sessions are frozen
	err := store.WithSession(s.ID, "", func(s *domain.Session) error {
		s.CurrentTask = "late"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, msg, err := store.Snapshot(s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, got.Status)
	assert.Empty(t, got.CurrentTask)
	assert.Equal(t, "running", msg)
}

func TestStoreRejectsInvariantViolations(t *testing.T) {
	store := orchestrator.NewSessionStore()
	s := pending(1)
	require.NoError(t, store.Insert(s, "queued"))

	err := store.WithSession(s.ID, "", func(s *domain.Session) error {
		s.CompletedTasks = 2
		return nil
	})
	require.Error(t, err)

	boom := errors.New("boom")
	assert.ErrorIs(t, store.WithSession(s.ID, "", func(*domain.Session) error { return boom }), boom)

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CompletedTasks)
}

func TestStoreRequestCancel(t *testing.T) {
	store := orchestrator.NewSessionStore()
	s := pending(1)
	require.NoError(t, store.Insert(s, "queued"))

	assert.ErrorIs(t, store.RequestCancel(uuid.New()), domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.RequestCancel(s.ID), domain.ErrInvalidTransition)

	require.NoError(t, store.WithSession(s.ID, "", setStatus(domain.SessionStatusRunning)))
	require.NoError(t, store.RequestCancel(s.ID))
	assert.ErrorIs(t, store.RequestCancel(s.ID), domain.ErrInvalidTransition)
	assert.True(t, store.CancelRequested(s.ID))
}

func TestStoreCounts(t *testing.T) {
	store := orchestrator.NewSessionStore()
	a, b := pending(0), pending(0)
	require.NoError(t, store.Insert(a, "queued"))
	require.NoError(t, store.Insert(b, "queued"))
	require.NoError(t, store.WithSession(b.ID, "", setStatus(domain.SessionStatusRunning)))

	assert.Equal(t, map[string]int{"pending": 1, "running": 1}, store.Counts())
	assert.Equal(t, 2, store.Len())
}
