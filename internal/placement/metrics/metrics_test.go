package metrics

import (
	"fmt"
	"testing"
	"time"

	e "github.com/gartstein/placement/internal/placement/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.ObserveOperation("application.apply", 5*time.Millisecond, nil)
	m.ObserveOperation("application.apply", time.Millisecond, fmt.Errorf("%w: twice", e.ErrDuplicateApplication))
	m.ObserveOperation("application.apply", time.Millisecond, fmt.Errorf("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationOutcome.WithLabelValues("application.apply", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationOutcome.WithLabelValues("application.apply", "duplicate_application")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationOutcome.WithLabelValues("application.apply", "internal")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationLatency))
}

func TestIncrementCacheLookup(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.IncrementCacheLookup("hit")
	m.IncrementCacheLookup("hit")
	m.IncrementCacheLookup("miss")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("drive.create", time.Millisecond, nil)
		m.IncrementCacheLookup("hit")
	})
}
