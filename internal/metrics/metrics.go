// Package metrics exposes prometheus collectors for the adapter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the adapter's collectors behind one registry so tests can
// build isolated instances.
type Metrics struct {
	// registry backs the /metrics handler.
	registry *prometheus.Registry

	// Requests counts completed chat requests by dispatch mode and status.
	Requests *prometheus.CounterVec
	// SubprocessDuration observes CLI run durations in seconds.
	SubprocessDuration prometheus.Histogram
	// ActiveSubprocesses gauges currently running CLI subprocesses.
	ActiveSubprocesses prometheus.Gauge
}

// New constructs and registers the adapter's collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "claudebridge_requests_total",
			Help: "Completed chat completion requests by mode and status.",
		}, []string{"mode", "status"}),
		SubprocessDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "claudebridge_subprocess_duration_seconds",
			Help:    "Claude CLI subprocess wall time.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
		}),
		ActiveSubprocesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "claudebridge_active_subprocesses",
			Help: "Currently running Claude CLI subprocesses.",
		}),
	}

	registry.MustRegister(m.Requests, m.SubprocessDuration, m.ActiveSubprocesses)
	return m
}

// Handler serves the prometheus text exposition for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
