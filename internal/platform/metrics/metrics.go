// Package metrics holds the staff authentication counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth failure reasons.
const (
	ReasonUnknownUser   = "unknown_user"
	ReasonBadPassword   = "bad_password"
	ReasonInactive      = "inactive"
	ReasonScopeRejected = "scope_rejected"
)

// Metrics counts staff logins and token issuance.
type Metrics struct {
	StaffCreated  prometheus.Counter
	TokenRequests prometheus.Counter
	TokensIssued  prometheus.Counter
	AuthFailures  *prometheus.CounterVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StaffCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_staff_created_total",
			Help: "Staff accounts created",
		}),
		TokenRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_token_requests_total",
			Help: "Bearer token requests",
		}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_tokens_issued_total",
			Help: "Bearer tokens minted",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dsnap_auth_failures_total",
			Help: "Rejected staff credentials, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncStaffCreated() {
	if m != nil {
		m.StaffCreated.Inc()
	}
}

func (m *Metrics) IncTokenRequest() {
	if m != nil {
		m.TokenRequests.Inc()
	}
}

func (m *Metrics) IncTokenIssued() {
	if m != nil {
		m.TokensIssued.Inc()
	}
}

func (m *Metrics) IncAuthFailure(reason string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(reason).Inc()
	}
}
