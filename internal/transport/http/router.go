// Package httptransport assembles the HTTP surface: middleware chain, routes and
// the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dsnap/pkg/platform/middleware/admin"
	"dsnap/pkg/platform/middleware/device"
	"dsnap/pkg/platform/middleware/metadata"
	"dsnap/pkg/platform/middleware/request"
	"dsnap/pkg/platform/middleware/requesttime"
)

// Routes is implemented by every handler that mounts endpoints.
type Routes interface {
	Register(r chi.Router)
}

// Options configures the router.
type Options struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	BodyLimit      int64
	TrustedProxies []netip.Prefix
	// AdminToken enables the Admin routes; empty leaves them unmounted.
	AdminToken string
	Gatherer   prometheus.Gatherer
	Metrics    *request.Metrics
	// Clock overrides the request clock; nil uses time.Now.
	Clock func() time.Time
}

// Handlers groups the mounted route sets. Public routes skip authentication,
// Staff routes run behind Authenticate.
type Handlers struct {
	Public       []Routes
	Staff        []Routes
	Admin        []Routes
	Authenticate func(http.Handler) http.Handler
}

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(opts Options, h Handlers) http.Handler {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(opts.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.WithClock(clock))
	r.Use(metadata.NewMiddleware(&metadata.Config{TrustedProxies: opts.TrustedProxies}).Handler)
	r.Use(device.Middleware)
	r.Use(request.Logger(opts.Logger))
	r.Use(chimiddleware.StripSlashes)
	if opts.RequestTimeout > 0 {
		r.Use(request.Timeout(opts.RequestTimeout))
	}
	if opts.Metrics != nil {
		r.Use(request.LatencyMiddleware(opts.Metrics))
	}
	r.Use(request.ContentTypeJSON)
	if opts.BodyLimit > 0 {
		r.Use(request.BodyLimit(opts.BodyLimit))
	}

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, routes := range h.Public {
		routes.Register(r)
	}

	r.Group(func(r chi.Router) {
		if h.Authenticate != nil {
			r.Use(h.Authenticate)
		}
		for _, routes := range h.Staff {
			routes.Register(r)
		}
	})

	if opts.AdminToken != "" && len(h.Admin) > 0 {
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(opts.AdminToken, opts.Logger))
			for _, routes := range h.Admin {
				routes.Register(r)
			}
		})
	}

	return r
}
