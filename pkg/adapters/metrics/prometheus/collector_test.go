package prometheus_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	metrics "github.com/aescanero/wfdiag/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/wfdiag/pkg/ports"
)

var _ ports.MetricsCollector = (*metrics.Collector)(nil)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordSessionStarted("both")
	c.RecordSessionStarted("both")
	c.RecordSessionFinished("completed", 3*time.Second)
	c.RecordTaskExecuted("processor", true, 10*time.Millisecond)
	c.RecordTaskExecuted("dxdiag", false, time.Second)
	c.RecordProgressDropped()
	c.SetActiveSessions(1)
	c.RecordSessionStatus(map[string]int{"running": 1, "completed": 1})
	c.RecordPoolStatus(1, 0)

	n, err := testutil.GatherAndCount(reg,
		"wfdiag_sessions_started_total",
		"wfdiag_tasks_executed_total",
		"wfdiag_sessions",
	)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	err = testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP wfdiag_active_sessions Number of sessions not yet in a terminal state
# TYPE wfdiag_active_sessions gauge
wfdiag_active_sessions 1
# HELP wfdiag_worker_pool_busy Number of busy workers
# TYPE wfdiag_worker_pool_busy gauge
wfdiag_worker_pool_busy 1
`), "wfdiag_active_sessions", "wfdiag_worker_pool_busy")
	assert.NoError(t, err)
}

func TestSessionStatusReset(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordSessionStatus(map[string]int{"running": 2})
	c.RecordSessionStatus(map[string]int{"completed": 2})

	n, err := testutil.GatherAndCount(reg, "wfdiag_sessions")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
