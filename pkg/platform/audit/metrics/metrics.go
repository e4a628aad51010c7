package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the registration event publisher.
type Metrics struct {
	QueueDepth      prometheus.Gauge
	EventsEnqueued  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsPersisted *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dsnap_events_queue_depth",
			Help: "Events waiting in the publisher buffer",
		}),
		EventsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_events_enqueued_total",
			Help: "Events accepted into the publisher buffer",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_events_dropped_total",
			Help: "Events dropped because the buffer was full",
		}),
		EventsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dsnap_events_persisted_total",
			Help: "Events written to the sink, by event type",
		}, []string{"type"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "dsnap_events_persist_failures_total",
			Help: "Sink write failures",
		}),
		PersistDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dsnap_events_persist_duration_seconds",
			Help:    "Time taken to write one event to the sink",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}
