package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/platform/middleware/auth"
	"regdesk/pkg/requestcontext"
)

// TokenSubject is the admin identity recorded for X-Admin-Token requests.
const TokenSubject = "admin-token"

// RequireAdmin accepts either the static X-Admin-Token or a valid session
// token. Browsers asking for HTML are redirected to loginPath instead of
// receiving a 401.
func RequireAdmin(expectedToken string, sessions auth.SessionValidator, loginPath string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if token := r.Header.Get("X-Admin-Token"); token != "" && expectedToken != "" {
				// Use constant-time comparison to prevent timing attacks
				if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) == 1 {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminSubject(ctx, TokenSubject)))
					return
				}
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestID,
					"client_ip", requestcontext.ClientIP(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			if session := auth.SessionToken(r); session != "" && sessions != nil {
				claims, err := sessions.ValidateToken(session)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminSubject(ctx, claims.Subject)))
					return
				}
				logger.WarnContext(ctx, "admin session rejected",
					"request_id", requestID,
					"error", err,
				)
			}

			if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") && loginPath != "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
		})
	}
}
