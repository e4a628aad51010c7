package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the registration service.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	RegistrationsUpdated prometheus.Counter
	RegistrationsDeleted prometheus.Counter
	StatusTransitions    *prometheus.CounterVec
	ValidationFailures   *prometheus.CounterVec
	SearchResults        prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_registrations_created_total",
			Help: "Registrations accepted",
		}),
		RegistrationsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_registrations_updated_total",
			Help: "Registration documents replaced by staff",
		}),
		RegistrationsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_registrations_deleted_total",
			Help: "Registrations deleted",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dsnap_registration_status_transitions_total",
			Help: "Approval decisions recorded, by outcome of the staff decision",
		}, []string{"user_approved"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dsnap_registration_validation_failures_total",
			Help: "Writes rejected by schema validation, by operation",
		}, []string{"operation"}),
		SearchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dsnap_registration_search_results",
			Help:    "Number of registrations returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.RegistrationsCreated.Inc()
	}
}

func (m *Metrics) IncUpdated() {
	if m != nil {
		m.RegistrationsUpdated.Inc()
	}
}

func (m *Metrics) IncDeleted() {
	if m != nil {
		m.RegistrationsDeleted.Inc()
	}
}

func (m *Metrics) IncStatusTransition(userApproved bool) {
	if m == nil {
		return
	}
	label := "false"
	if userApproved {
		label = "true"
	}
	m.StatusTransitions.WithLabelValues(label).Inc()
}

func (m *Metrics) IncValidationFailure(operation string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) ObserveSearchResults(n int) {
	if m != nil {
		m.SearchResults.Observe(float64(n))
	}
}
