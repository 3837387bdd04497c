package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a diagnostic session.
//
// Pending is the only initial state. Completed, Failed and Cancelled are
// terminal: once reached, the session is never mutated again.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave s.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return next == SessionStatusRunning || next == SessionStatusFailed
	case SessionStatusRunning:
		return next.IsTerminal()
	}
	return false
}

// Session is one requested run of a task subset.
type Session struct {
	ID             uuid.UUID     `json:"id"`
	Status         SessionStatus `json:"status"`
	OutputFormat   OutputFormat  `json:"output_format"`
	Progress       float64       `json:"progress"`
	CurrentTask    string        `json:"current_task,omitempty"`
	CompletedTasks int           `json:"completed_tasks"`
	TotalTasks     int           `json:"total_tasks"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	OutputPath     string        `json:"output_path,omitempty"`
	Errors         []string      `json:"errors"`
}

// Clone returns a deep copy safe to hand to readers.
func (s Session) Clone() Session {
	c := s
	c.Errors = append(make([]string, 0, len(s.Errors)), s.Errors...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
