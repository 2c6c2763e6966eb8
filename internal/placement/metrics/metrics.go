// Package metrics exposes Prometheus metrics for the placement engine.
package metrics

import (
	"time"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for engine operations and the stats cache.
type Metrics struct {
	// Operation latency by operation name
	OperationLatency *prometheus.HistogramVec

	// Operation outcomes by operation and error kind
	OperationOutcome *prometheus.CounterVec

	// Dashboard stats cache lookups by result ("hit", "miss", "error")
	CacheLookups *prometheus.CounterVec
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a Metrics instance registered with reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placement_operation_duration_seconds",
			Help:    "Duration of placement engine operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		OperationOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "placement_operation_outcomes_total",
			Help: "Total placement engine operations by outcome",
		}, []string{"operation", "outcome"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "placement_stats_cache_lookups_total",
			Help: "Dashboard stats cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveOperation records the duration and outcome of an engine operation.
func (m *Metrics) ObserveOperation(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.OperationLatency.WithLabelValues(op).Observe(d.Seconds())
	m.OperationOutcome.WithLabelValues(op, e.Kind(err)).Inc()
}

// IncrementCacheLookup records a stats cache lookup.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}
