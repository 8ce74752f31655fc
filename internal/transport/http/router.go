// Package httptransport is the admin HTTP surface: health, metrics and the
// bearer-token protected /admin routes. Handlers delegate to domain services
// without embedding business logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corpauth/internal/platform/metrics"
	"corpauth/internal/platform/middleware"
	"corpauth/pkg/platform/httputil"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Admin     *AdminHandler
	Validator middleware.JWTValidator
	Denied    middleware.DeniedRecorder
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Metrics
	Health    map[string]HealthCheck
	Logger    *slog.Logger
}

// NewRouter wires all endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger, cfg.Metrics))

	r.Get("/healthz", handleHealth(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(middleware.RequireAdmin(cfg.Validator, cfg.Denied, cfg.Logger))
		cfg.Admin.Register(r)
	})
	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
