package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskID(t *testing.T) {
	assert.Equal(t, "physical_memory", TaskID("Physical Memory"))
	assert.Equal(t, "dxdiag", TaskID("DXDiag"))
	assert.Equal(t, "dism_checkhealth", TaskID("DISM CheckHealth"))
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"", OutputFormatBoth},
		{"json", OutputFormatJSON},
		{"JSON", OutputFormatJSON},
		{"zip", OutputFormatArchive},
		{"archive", OutputFormatArchive},
		{" both ", OutputFormatBoth},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseOutputFormat("pdf")
	require.ErrorIs(t, err, ErrInvalidRequest)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "output_format", reqErr.Field)

	assert.False(t, OutputFormatJSON.WantsArchive())
	assert.True(t, OutputFormatBoth.WantsArchive())
}

func TestTransitions(t *testing.T) {
	all := []SessionStatus{
		SessionStatusPending, SessionStatusRunning, SessionStatusCompleted,
		SessionStatusFailed, SessionStatusCancelled,
	}
	legal := map[[2]SessionStatus]bool{
		{SessionStatusPending, SessionStatusRunning}:   true,
		{SessionStatusPending, SessionStatusFailed}:    true,
		{SessionStatusRunning, SessionStatusCompleted}: true,
		{SessionStatusRunning, SessionStatusFailed}:    true,
		{SessionStatusRunning, SessionStatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, legal[[2]SessionStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.False(t, SessionStatusRunning.IsTerminal())
	assert.True(t, SessionStatusCancelled.IsTerminal())
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := Session{ID: uuid.New(), StartedAt: &now, Errors: []string{"a"}}

	c := s.Clone()
	c.Errors[0] = "b"
	*c.StartedAt = now.Add(time.Hour)

	assert.Equal(t, "a", s.Errors[0])
	assert.Equal(t, now, *s.StartedAt)
	assert.Nil(t, c.CompletedAt)
	assert.NotNil(t, Session{}.Clone().Errors)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &CollectorError{TaskID: "dxdiag", Task: "DXDiag", Err: cause}
	assert.Equal(t, "DXDiag: exit status 1", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.ErrorIs(t, &PackagingError{Err: cause}, cause)
	assert.Equal(t, "setup start: exit status 1", (&SetupError{Op: "start", Err: cause}).Error())
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]TaskResult{{Success: true}, {Success: false}, {Success: true}}, 1500*time.Millisecond)
	assert.Equal(t, ReportSummary{TotalTasks: 3, SuccessfulTasks: 2, FailedTasks: 1, TotalDurationSeconds: 1.5}, sum)
}
