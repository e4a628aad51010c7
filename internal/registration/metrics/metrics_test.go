package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncCreated()
	m.IncCreated()
	m.IncStatusTransition(true)
	m.IncStatusTransition(false)
	m.IncStatusTransition(true)
	m.IncValidationFailure("create")
	m.ObserveSearchResults(3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RegistrationsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ValidationFailures.WithLabelValues("create")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchResults))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncCreated()
		m.IncUpdated()
		m.IncDeleted()
		m.IncStatusTransition(true)
		m.IncValidationFailure("update")
		m.ObserveSearchResults(0)
	})
}
