package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"regdesk/internal/ratelimit/models"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/circuit"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/requestcontext"
)

// StatusHeader is set to "degraded" while the fallback store serves checks.
const StatusHeader = "X-RateLimit-Status"

// BucketStore counts requests in a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Metrics is the subset of the metrics registry the limiter reports to.
type Metrics interface {
	IncrementRateLimited(class string)
	IncrementRateLimitDegraded()
}

type Middleware struct {
	store    BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for tests and local runs).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithFallback sets the store used while the primary store is failing.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

// WithBreaker replaces the default circuit breaker guarding the primary store.
func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

// WithLimit overrides the limit of one class. Non-positive values are ignored.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(m *Middleware) {
		if limit.RequestsPerWindow > 0 && limit.Window > 0 {
			m.limits[class] = limit
		}
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:   store,
		logger:  logger,
		breaker: circuit.New("ratelimit"),
		limits:  make(map[models.EndpointClass]models.Limit, len(models.DefaultLimits)),
	}
	for class, limit := range models.DefaultLimits {
		m.limits[class] = limit
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP for the given class.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			limit, ok := m.limits[class]
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ip := requestcontext.ClientIP(ctx)
			key := models.NewIPRateLimitKey(class, ip)

			result, degraded, err := m.check(ctx, key, limit)
			if err != nil {
				// Fail open: a broken limiter must not block registration.
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err,
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			if degraded {
				w.Header().Set(StatusHeader, "degraded")
			}
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncrementRateLimited(string(class))
				}
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"retry_after", result.RetryAfter,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many requests. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary store unless the circuit is open. Primary errors
// count against the breaker; once it opens the fallback answers.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error) {
	if m.fallback != nil && m.breaker.IsOpen() {
		// Probe the primary so the circuit can close again.
		result, err := m.store.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		if err == nil {
			if usePrimary, change := m.breaker.RecordSuccess(); usePrimary {
				m.logTransition(ctx, change)
				return result, false, nil
			}
		} else {
			m.breaker.RecordFailure()
		}
		return m.fromFallback(ctx, key, limit)
	}

	result, err := m.store.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err == nil {
		m.breaker.RecordSuccess()
		return result, false, nil
	}
	if m.fallback == nil {
		return nil, false, err
	}
	useFallback, change := m.breaker.RecordFailure()
	m.logTransition(ctx, change)
	if !useFallback {
		return nil, false, err
	}
	return m.fromFallback(ctx, key, limit)
}

func (m *Middleware) fromFallback(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error) {
	if m.metrics != nil {
		m.metrics.IncrementRateLimitDegraded()
	}
	result, err := m.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func (m *Middleware) logTransition(ctx context.Context, change circuit.StateChange) {
	switch {
	case change.Opened:
		m.logger.WarnContext(ctx, "rate limit store failing, using in-memory fallback", "breaker", m.breaker.Name())
	case change.Closed:
		m.logger.InfoContext(ctx, "rate limit store recovered", "breaker", m.breaker.Name())
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
