package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/metrics"
)

// Mount pairs a resource with the gateway serving it.
type Mount struct {
	Resource *core.Resource
	Gateway  core.Gateway
}

// ReadinessCheck reports whether the service can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Mounts []Mount

	// Ready backs /readyz. A nil check always reports ready.
	Ready        ReadinessCheck
	ReadyTimeout time.Duration

	// RequestsPerSecond enables a global rate limit on /api when positive.
	RequestsPerSecond float64
	Burst             int

	MaxBodyBytes int64

	// Metrics enables request instrumentation and /metrics when set.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the HTTP handler: every mounted resource under
// /api/{plural} plus the operational endpoints.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger(logger))
	if opts.Metrics != nil {
		r.Use(instrument(opts.Metrics))
	}
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(opts.Ready, opts.ReadyTimeout, logger))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if opts.RequestsPerSecond > 0 {
			burst := opts.Burst
			if burst <= 0 {
				burst = 1
			}
			api.Use(rateLimit(rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst), opts.Metrics))
		}
		for _, mount := range opts.Mounts {
			handler := NewResourceHandler(mount.Gateway, mount.Resource, opts.MaxBodyBytes, logger)
			api.Mount("/"+mount.Resource.Plural, handler.Routes())
		}
	})

	return r
}

func readyHandler(check ReadinessCheck, timeout time.Duration, logger *slog.Logger) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", "component", "http", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
