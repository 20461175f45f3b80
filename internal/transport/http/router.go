package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"botica/internal/platform/metrics"
	"botica/internal/platform/middleware"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter assembles the full route tree. Liveness and metrics stay outside
// the terminal auth group so probes and scrapers need no token.
func NewRouter(h *Handler, validator middleware.TokenValidator, httpMetrics *metrics.Metrics, checks ...HealthChecker) http.Handler {
	r := chi.NewRouter()
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		for _, c := range checks {
			if err := c.Health(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))
		h.Register(r)
	})

	return r
}

// Register mounts the POS endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/start", h.HandleStartVerification)
	r.Post("/verification/retry", h.HandleRetryVerification)
	r.Post("/verification/cancel", h.HandleCancelVerification)
	r.Post("/discount/quote", h.HandleQuoteDiscount)
	r.Post("/checkout", h.HandleCheckout)
}
