// Package requesttime pins one "now" per request, so a bulk confirmation
// stamps every record with the same confirmation time.
package requesttime

import (
	"net/http"
	"time"

	"regdesk/pkg/requestcontext"
)

// Middleware records time.Now at the start of each request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock records now() instead of the wall clock. Tests use it to pin
// confirmation times.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
