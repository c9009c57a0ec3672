// Package auth defines the session token contract shared by the admin
// middleware and the session issuer.
package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookie carries the signed admin session.
const SessionCookie = "regdesk_admin"

// SessionValidator validates signed session tokens.
type SessionValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the session validator.
type SessionClaims struct {
	Subject   string
	SessionID string
	ExpiresAt time.Time
}

// SessionToken extracts the session token from the session cookie, falling
// back to an Authorization bearer header for API clients.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
