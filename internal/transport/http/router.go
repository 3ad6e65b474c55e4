package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nightout/internal/platform/health"
	"nightout/internal/platform/metrics"
	"nightout/internal/platform/middleware"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the cross-cutting pieces of the HTTP stack.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         *health.Handler
	RequestTimeout time.Duration
}

// NewRouter wires the public endpoints behind the shared middleware stack.
func NewRouter(cfg RouterConfig, registrars ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.ContentTypeJSON)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		for _, reg := range registrars {
			reg.Register(r)
		}
	})

	return r
}
