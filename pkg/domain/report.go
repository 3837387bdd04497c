package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskResult is the outcome of one collector call.
type TaskResult struct {
	TaskID     string `json:"task_id"`
	TaskName   string `json:"task_name"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// SystemInfo summarises the host the diagnostics ran on.
type SystemInfo struct {
	OSVersion         string  `json:"os_version"`
	ComputerName      string  `json:"computer_name"`
	Username          string  `json:"username"`
	IsAdmin           bool    `json:"is_admin"`
	CPUInfo           string  `json:"cpu_info"`
	TotalMemoryGB     float64 `json:"total_memory_gb"`
	AvailableMemoryGB float64 `json:"available_memory_gb"`
}

// ReportSummary aggregates task results.
type ReportSummary struct {
	TotalTasks           int     `json:"total_tasks"`
	SuccessfulTasks      int     `json:"successful_tasks"`
	FailedTasks          int     `json:"failed_tasks"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// DiagnosticReport is written as report.json into every session output directory.
type DiagnosticReport struct {
	SessionID   uuid.UUID     `json:"session_id"`
	SystemInfo  SystemInfo    `json:"system_info"`
	TaskResults []TaskResult  `json:"task_results"`
	Summary     ReportSummary `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Summarize builds the summary of results collected over elapsed.
func Summarize(results []TaskResult, elapsed time.Duration) ReportSummary {
	sum := ReportSummary{
		TotalTasks:           len(results),
		TotalDurationSeconds: elapsed.Seconds(),
	}
	for _, r := range results {
		if r.Success {
			sum.SuccessfulTasks++
		} else {
			sum.FailedTasks++
		}
	}
	return sum
}
