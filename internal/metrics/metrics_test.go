package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordOutcome("created")
	m.RecordOutcome("created")
	m.RecordOutcome("skipped_unchanged")

	expected := `
		# HELP plansync_outcomes_total Reconciliation outcomes by status
		# TYPE plansync_outcomes_total counter
		plansync_outcomes_total{status="created"} 2
		plansync_outcomes_total{status="skipped_unchanged"} 1
	`
	require.NoError(t, testutil.CollectAndCompare(m.OutcomesTotal, strings.NewReader(expected)))
}

func TestRecordProviderRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordProviderRequest("create_plan", "success", 20*time.Millisecond)
	m.RecordProviderRequest("create_plan", "provider_error", 10*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(m.ProviderRequestsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ProviderRequestDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOutcome("created")
		m.RecordProviderRequest("create_plan", "success", time.Second)
		m.RecordRunFinished(time.Now())
	})
}
