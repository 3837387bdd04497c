package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/internal/application/orchestrator"
	"github.com/aescanero/wfdiag/internal/application/workers"
	"github.com/aescanero/wfdiag/pkg/adapters/events/memory"
	"github.com/aescanero/wfdiag/pkg/adapters/packager"
	"github.com/aescanero/wfdiag/pkg/catalog"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

func newTestManager(t *testing.T, entries ...catalog.Entry) *orchestrator.Manager {
	t.Helper()
	logger := zap.NewNop()
	pool := workers.NewPool(1, nil, logger, time.Hour)
	pool.Start()
	bus := memory.NewInMemoryEventBus()
	m := orchestrator.NewManager(catalog.MustNew(entries...), pool, bus, nil, orchestrator.NewValidator(), logger, orchestrator.Config{
		OutputRoot:       t.TempDir(),
		TaskTimeout:      time.Second,
		ProgressInterval: 5 * time.Millisecond,
		Packagers: map[domain.OutputFormat]ports.Packager{
			domain.OutputFormatJSON: packager.Report{},
		},
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
		_ = bus.Close()
	})
	return m
}

func TestRunSessionPrintsProgress(t *testing.T) {
	quick := ports.CollectorFunc(func(context.Context, string) error { return nil })
	m := newTestManager(t,
		catalog.Entry{Descriptor: domain.TaskDescriptor{ID: "processor", Name: "Processor"}, Collector: quick},
		catalog.Entry{Descriptor: domain.TaskDescriptor{ID: "disk_drives", Name: "Disk Drives"}, Collector: quick},
	)

	var out, progress bytes.Buffer
	final, err := runSession(t.Context(), m, domain.SessionRequest{
		TaskIDs:      []string{"processor", "disk_drives"},
		OutputFormat: domain.OutputFormatJSON,
	}, &out, &progress)
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStatusCompleted, final.Status)
	assert.Equal(t, 2, final.CompletedTasks)
	assert.FileExists(t, final.OutputPath)
	assert.Contains(t, progress.String(), "[100%] 2/2")

	dec := json.NewDecoder(&out)
	var first, last struct {
		Success bool           `json:"success"`
		Data    domain.Session `json:"data"`
	}
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&last))
	assert.Equal(t, domain.SessionStatusPending, first.Data.Status)
	assert.Equal(t, 2, first.Data.TotalTasks)
	assert.True(t, last.Success)
	assert.Equal(t, final.ID, last.Data.ID)
	assert.Equal(t, 1.0, last.Data.Progress)
}

func TestRunSessionCancelsOnInterrupt(t *testing.T) {
	entered := make(chan struct{})
	block := ports.CollectorFunc(func(context.Context, string) error {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	quick := ports.CollectorFunc(func(context.Context, string) error { return nil })
	m := newTestManager(t,
		catalog.Entry{Descriptor: domain.TaskDescriptor{ID: "block", Name: "Block"}, Collector: block},
		catalog.Entry{Descriptor: domain.TaskDescriptor{ID: "processor", Name: "Processor"}, Collector: quick},
	)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		<-entered
		cancel()
	}()

	var out bytes.Buffer
	final, err := runSession(ctx, m, domain.SessionRequest{
		TaskIDs:      []string{"block", "processor"},
		OutputFormat: domain.OutputFormatJSON,
	}, &out, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCancelled, final.Status)
	assert.Equal(t, 1, final.CompletedTasks)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "wfdiag dev (built unknown)\n", out.String())
}
