// Package httptransport assembles the public router: the shared middleware
// chain, per-class rate limits, and the check and chat endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chathandler "dbtcheck/internal/chat/handler"
	checkhandler "dbtcheck/internal/check/handler"
	"dbtcheck/internal/platform/i18n"
	"dbtcheck/internal/platform/metrics"
	"dbtcheck/internal/platform/middleware"
	"dbtcheck/internal/ratelimit/models"
	"dbtcheck/pkg/platform/httputil"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency /healthz checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RateLimiter returns the middleware for an endpoint class.
type RateLimiter interface {
	RateLimit(class models.EndpointClass) func(http.Handler) http.Handler
}

// Dependencies are the pieces the router mounts. Metrics and RateLimit may be
// nil. Forwarding headers are believed only from TrustedProxies.
type Dependencies struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Catalog        *i18n.Catalog
	RequestTimeout time.Duration
	RateLimit      RateLimiter
	TrustedProxies middleware.TrustedProxies
	Checks         *checkhandler.Handler
	Chat           *chathandler.Handler
	Health         map[string]Pinger
}

// NewRouter wires every public endpoint.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata(deps.TrustedProxies))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))

	r.Get("/healthz", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	limit := limiterFor(deps.RateLimit)
	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.Language(deps.Catalog))

		if c := deps.Checks; c != nil {
			api.With(limit(models.ClassStart)).Post("/checks", c.HandleStart)
			api.With(limit(models.ClassOTP)).Post("/checks/{id}/otp", c.HandleVerifyOTP)
			api.With(limit(models.ClassRead)).Get("/checks/{id}", c.HandleGet)
			api.With(limit(models.ClassRead)).Delete("/checks/{id}", c.HandleDiscard)
			api.With(limit(models.ClassRead)).Get("/checks/{id}/receipt", c.HandleReceipt)
			api.With(limit(models.ClassRead)).Get("/checks/{id}/receipt/print", c.HandlePrintReceipt)
			api.With(limit(models.ClassRead)).Get("/references", c.HandleReferences)
		}
		if c := deps.Chat; c != nil {
			api.With(limit(models.ClassChat)).Post("/chat", c.HandleSend)
		}
	})
	return r
}

func limiterFor(rl RateLimiter) func(models.EndpointClass) func(http.Handler) http.Handler {
	if rl == nil {
		return func(models.EndpointClass) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}
	return rl.RateLimit
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				if resp.Checks == nil {
					resp.Checks = map[string]string{}
				}
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
