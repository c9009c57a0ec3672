package models

import (
	"strings"
	"time"
)

// EndpointClass groups routes that share a limit.
type EndpointClass string

const (
	// ClassRegistration covers public form and API submissions.
	ClassRegistration EndpointClass = "registration"
	// ClassLogin covers admin sign-in attempts.
	ClassLogin EndpointClass = "login"
)

// Limit is a sliding window allowance.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// DefaultLimits apply per client IP.
var DefaultLimits = map[EndpointClass]Limit{
	ClassRegistration: {RequestsPerWindow: 30, Window: time.Minute},
	ClassLogin:        {RequestsPerWindow: 5, Window: time.Minute},
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// NewIPRateLimitKey builds the bucket key of one client IP for a class.
func NewIPRateLimitKey(class EndpointClass, ip string) string {
	return "ratelimit:ip:" + string(class) + ":" + SanitizeKeySegment(ip)
}

// SanitizeKeySegment escapes delimiter characters so a crafted identifier
// cannot address another bucket. IPv6 addresses are affected too, which is
// harmless since the mapping is one-to-one.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
