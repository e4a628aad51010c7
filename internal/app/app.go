// Package app builds the DSNAP service from configuration: stores, caches, the
// event sink, services and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	jwttoken "dsnap/internal/jwt_token"
	"dsnap/internal/platform/config"
	"dsnap/internal/platform/database"
	"dsnap/internal/platform/health"
	"dsnap/internal/platform/kafka/producer"
	authmetrics "dsnap/internal/platform/metrics"
	redisclient "dsnap/internal/platform/redis"
	"dsnap/internal/platform/tracer"
	reghandler "dsnap/internal/registration/handler"
	regmetrics "dsnap/internal/registration/metrics"
	"dsnap/internal/registration/schema"
	regservice "dsnap/internal/registration/service"
	regstore "dsnap/internal/registration/store"
	staffhandler "dsnap/internal/staff/handler"
	"dsnap/internal/staff/labels"
	staffservice "dsnap/internal/staff/service"
	staffstore "dsnap/internal/staff/store"
	httptransport "dsnap/internal/transport/http"
	audit "dsnap/pkg/platform/audit"
	auditmetrics "dsnap/pkg/platform/audit/metrics"
	"dsnap/pkg/platform/audit/publisher"
	auditkafka "dsnap/pkg/platform/audit/store/kafka"
	auditmemory "dsnap/pkg/platform/audit/store/memory"
	"dsnap/pkg/platform/middleware/auth"
	"dsnap/pkg/platform/middleware/metadata"
	"dsnap/pkg/platform/middleware/request"
	"dsnap/pkg/secrets"
)

const poolStatsInterval = 15 * time.Second

// App owns every long-lived dependency of a running server.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	handler  http.Handler

	db             *database.Pool
	redis          *redisclient.Client
	producer       *producer.Producer
	publisher      *publisher.Publisher
	tracerProvider *sdktrace.TracerProvider

	// Staff is exposed for bootstrap and operator tooling.
	Staff *staffservice.Service
	// Events is set when events go to the in-process sink.
	Events *auditmemory.InMemoryStore
}

type Option func(*options)

type options struct {
	clock       func() time.Time
	traceWriter io.Writer
}

// WithClock fixes the request clock; tests use it for stable timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithTraceWriter redirects exported spans when tracing is enabled.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) { o.traceWriter = w }
}

// New connects to the configured backends and assembles the router. Anything
// already opened is closed again when a later step fails.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *App, err error) {
	o := options{clock: time.Now, traceWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if a.db, err = database.New(cfg.Database); err != nil {
		return nil, err
	}
	if a.redis, err = redisclient.New(cfg.Redis, a.registry); err != nil {
		return nil, err
	}

	tr, err := a.buildTracer(o.traceWriter)
	if err != nil {
		return nil, err
	}
	sink, err := a.buildEventSink()
	if err != nil {
		return nil, err
	}
	a.publisher = publisher.New(sink,
		publisher.WithAsyncBuffer(cfg.Events.BufferSize),
		publisher.WithLogger(logger),
		publisher.WithMetrics(auditmetrics.New(a.registry)),
	)

	definition, err := schema.DefaultRegistry().Get(cfg.Registration.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("select registration schema: %w", err)
	}

	var (
		registrations regservice.Store
		staffStore    interface {
			staffservice.Store
			labels.Store
		}
	)
	if a.db != nil {
		registrations = regstore.NewPostgres(a.db.DB())
		staffStore = staffstore.NewPostgres(a.db.DB())
	} else {
		logger.Warn("no database configured, using in-memory stores")
		registrations = regstore.NewInMemory()
		staffStore = staffstore.NewInMemory()
	}

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	a.Staff = staffservice.New(staffStore, secrets.NewHasher(cfg.Auth.PasswordCost), logger,
		staffservice.WithTokenIssuer(jwt),
		staffservice.WithMetrics(authmetrics.New(a.registry)),
	)
	if created, err := a.Staff.EnsureBootstrap(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword); err != nil {
		return nil, fmt.Errorf("bootstrap staff: %w", err)
	} else if created {
		logger.Info("bootstrap staff account created", "username", cfg.Auth.BootstrapUsername)
	}

	registrationService := regservice.New(registrations, definition, logger,
		regservice.WithMetrics(regmetrics.New(a.registry)),
		regservice.WithAuditor(a.publisher),
		regservice.WithTracer(tr),
	)
	resolver := labels.NewResolver(a.labelCache(), staffStore, logger)

	proxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	authn := auth.New(a.Staff, jwttoken.NewMiddlewareAdapter(jwt), a.Staff, logger)

	a.handler = httptransport.NewRouter(httptransport.Options{
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		BodyLimit:      cfg.Server.BodyLimitBytes,
		TrustedProxies: proxies,
		AdminToken:     cfg.Auth.AdminToken,
		Gatherer:       a.registry,
		Metrics:        request.NewMetrics(a.registry),
		Clock:          o.clock,
	}, httptransport.Handlers{
		Public: []httptransport.Routes{a.healthHandler()},
		Staff: []httptransport.Routes{
			staffhandler.New(a.Staff, logger),
			reghandler.New(registrationService, resolver, logger),
		},
		Admin:        []httptransport.Routes{staffhandler.NewAdmin(a.Staff, logger)},
		Authenticate: authn.Handler,
	})

	logger.Info("dsnap initialized",
		"environment", cfg.Server.Environment,
		"schema_version", registrationService.SchemaVersion(),
		"database", a.db != nil,
		"redis", a.redis != nil,
		"kafka", a.producer != nil,
		"tracing", a.tracerProvider != nil,
	)
	return a, nil
}

// Handler is the assembled HTTP router.
func (a *App) Handler() http.Handler {
	return a.handler
}

// RunBackground runs periodic work until ctx is done.
func (a *App) RunBackground(ctx context.Context) error {
	if a.redis == nil {
		<-ctx.Done()
		return nil
	}
	return a.redis.RunPoolStats(ctx, poolStatsInterval)
}

// Close drains pending events and releases connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.tracerProvider != nil {
		errs = append(errs, a.tracerProvider.Shutdown(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *App) buildTracer(w io.Writer) (tracer.Tracer, error) {
	if !a.cfg.Tracing.Enabled {
		return tracer.NewNoop(), nil
	}
	provider, err := tracer.NewStdoutProvider(w)
	if err != nil {
		return nil, err
	}
	a.tracerProvider = provider
	return tracer.NewOTel(), nil
}

func (a *App) buildEventSink() (audit.Store, error) {
	if a.cfg.Kafka.Brokers == "" {
		a.Events = auditmemory.NewInMemoryStore()
		return a.Events, nil
	}
	p, err := producer.New(a.cfg.Kafka, a.logger)
	if err != nil {
		return nil, err
	}
	a.producer = p
	return auditkafka.New(p, a.cfg.Kafka.Topic), nil
}

func (a *App) labelCache() labels.Cache {
	if a.redis != nil {
		return labels.NewRedisCache(a.redis.Client, a.cfg.Redis.LabelTTL)
	}
	return labels.NewMemoryCache(a.cfg.Redis.LabelTTL)
}

func (a *App) healthHandler() *health.Handler {
	h := health.New(a.cfg.Server.Environment, a.logger)
	if a.db != nil {
		h.RegisterCheck("database", a.db.Health)
	}
	if a.redis != nil {
		h.RegisterCheck("redis", a.redis.Health)
	}
	if a.producer != nil {
		h.RegisterCheck("kafka", a.producer.Health)
	}
	return h
}
