package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for plan syncing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	OutcomesTotal           *prometheus.CounterVec
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	LastRunTimestamp        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		OutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plansync_outcomes_total",
				Help: "Reconciliation outcomes by status",
			},
			[]string{"status"},
		),
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plansync_provider_requests_total",
				Help: "Requests sent to the billing provider",
			},
			[]string{"operation", "result"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plansync_provider_request_duration_seconds",
				Help:    "Billing provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plansync_last_run_timestamp_seconds",
				Help: "Unix time the last reconciliation run finished",
			},
		),
	}

	registry.MustRegister(
		m.OutcomesTotal,
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.LastRunTimestamp,
	)

	return m
}

// RecordOutcome counts one reconciliation outcome
func (m *Metrics) RecordOutcome(status string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(status).Inc()
}

// RecordProviderRequest records one provider call; result is "success",
// "provider_error", "transport_error" or "validation_error"
func (m *Metrics) RecordProviderRequest(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(operation, result).Inc()
	m.ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRunFinished stamps the end of a reconciliation run
func (m *Metrics) RecordRunFinished(at time.Time) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(at.Unix()))
}
