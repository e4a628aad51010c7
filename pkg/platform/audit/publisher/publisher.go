package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "dsnap/pkg/domain-errors"
	audit "dsnap/pkg/platform/audit"
	"dsnap/pkg/platform/audit/metrics"
)

// Publisher hands registration events to a Store, either inline or through a
// bounded buffer drained by one background goroutine.
type Publisher struct {
	store   audit.Store
	events  chan audit.Event
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics
	async   bool
	once    sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events; Emit drops events when the queue is full.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if p.metrics != nil {
			p.metrics.QueueDepth.Dec()
		}
		if err := p.persist(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist registration event",
				"error", err,
				"type", event.Type,
				"registration_id", event.RegistrationID,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, event)
	if p.metrics != nil {
		p.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			p.metrics.PersistFailures.Inc()
		} else {
			p.metrics.EventsPersisted.WithLabelValues(string(event.Type)).Inc()
		}
	}
	return err
}

// Close stops accepting events and waits for the buffer to drain. Safe to call twice.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.async {
			close(p.events)
			p.wg.Wait()
		}
	})
}

// Emit records event. In async mode it never blocks on the sink.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if !p.async {
		return p.persist(ctx, event)
	}

	select {
	case p.events <- event:
		if p.metrics != nil {
			p.metrics.EventsEnqueued.Inc()
			p.metrics.QueueDepth.Inc()
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.EventsDropped.Inc()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event buffer full, event dropped",
				"type", event.Type,
				"registration_id", event.RegistrationID,
			)
		}
		return dErrors.New(dErrors.CodeInternal, "event buffer full")
	}
}

var _ audit.Emitter = (*Publisher)(nil)
