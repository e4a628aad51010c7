package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the HTTP surface. Route labels are chi patterns, never raw paths.
type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsnap_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "dsnap_http_requests_in_flight",
			Help: "Requests currently being served",
		}),
	}
}

func (m *Metrics) observe(method, route, status string, seconds float64) {
	m.EndpointLatency.WithLabelValues(method, route, status).Observe(seconds)
}
