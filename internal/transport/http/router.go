// Package httptransport assembles the HTTP surface: the shared middleware
// chain, operational endpoints and the feature handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"regdesk/internal/platform/middleware"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/platform/middleware/metadata"
	"regdesk/pkg/platform/middleware/requesttime"
)

// DefaultRequestTimeout bounds every request, spreadsheet calls included.
const DefaultRequestTimeout = 30 * time.Second

// RouteRegistrar is implemented by feature handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Deps are the collaborators of the router. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Handlers       []RouteRegistrar
	Metrics        http.Handler
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration
}

// NewRouter wires the middleware chain and every route.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", healthHandler(d.Health, d.Logger))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	for _, h := range d.Handlers {
		if h != nil {
			h.Register(r)
		}
	}
	return r
}

func healthHandler(check func(ctx context.Context) error, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unavailable"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
