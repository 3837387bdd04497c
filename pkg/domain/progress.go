package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProgressUpdate is an immutable sample of a session, emitted by the progress
// bus once per tick and once more on the terminal transition.
type ProgressUpdate struct {
	SessionID      uuid.UUID     `json:"session_id"`
	Progress       float64       `json:"progress"`
	Status         SessionStatus `json:"status"`
	CurrentTask    string        `json:"current_task,omitempty"`
	Message        string        `json:"message"`
	CompletedTasks int           `json:"completed_tasks"`
	TotalTasks     int           `json:"total_tasks"`
	Timestamp      time.Time     `json:"timestamp"`
}

// NewProgressUpdate samples s.
func NewProgressUpdate(s Session, message string, now time.Time) ProgressUpdate {
	return ProgressUpdate{
		SessionID:      s.ID,
		Progress:       s.Progress,
		Status:         s.Status,
		CurrentTask:    s.CurrentTask,
		Message:        message,
		CompletedTasks: s.CompletedTasks,
		TotalTasks:     s.TotalTasks,
		Timestamp:      now,
	}
}
