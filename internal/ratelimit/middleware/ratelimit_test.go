package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdesk/internal/ratelimit/models"
	"regdesk/internal/ratelimit/store/bucket"
	"regdesk/pkg/platform/circuit"
	"regdesk/pkg/platform/sentinel"
	"regdesk/pkg/requestcontext"
)

type failingStore struct {
	calls int
	err   error
}

func (f *failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	f.calls++
	return nil, f.err
}

type countingMetrics struct {
	limited  map[string]int
	degraded int
}

func (c *countingMetrics) IncrementRateLimited(class string) {
	if c.limited == nil {
		c.limited = map[string]int{}
	}
	c.limited[class]++
}

func (c *countingMetrics) IncrementRateLimitDegraded() { c.degraded++ }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	metrics := &countingMetrics{}
	m := New(bucket.New(), discardLogger(),
		WithLimit(models.ClassLogin, models.Limit{RequestsPerWindow: 2, Window: time.Minute}),
		WithMetrics(metrics),
	)
	h := m.RateLimit(models.ClassLogin)(okHandler())

	for i := range 2 {
		rr := serve(h, "10.0.0.1")
		require.Equal(t, http.StatusNoContent, rr.Code, "request %d", i)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	}

	rr := serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, 1, metrics.limited["login"])

	// Another client is unaffected.
	assert.Equal(t, http.StatusNoContent, serve(h, "10.0.0.2").Code)
}

func TestRateLimitClassesAreIndependent(t *testing.T) {
	m := New(bucket.New(), discardLogger(),
		WithLimit(models.ClassLogin, models.Limit{RequestsPerWindow: 1, Window: time.Minute}),
	)
	login := m.RateLimit(models.ClassLogin)(okHandler())
	register := m.RateLimit(models.ClassRegistration)(okHandler())

	assert.Equal(t, http.StatusNoContent, serve(login, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(login, "10.0.0.1").Code)
	assert.Equal(t, http.StatusNoContent, serve(register, "10.0.0.1").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	store := &failingStore{err: errors.New("unused")}
	m := New(store, discardLogger(), WithDisabled(true))
	h := m.RateLimit(models.ClassRegistration)(okHandler())

	rr := serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, store.calls)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitFailsOpenWithoutFallback(t *testing.T) {
	m := New(&failingStore{err: sentinel.ErrUnavailable}, discardLogger())
	h := m.RateLimit(models.ClassRegistration)(okHandler())

	rr := serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get(StatusHeader))
}

func TestRateLimitSwitchesToFallbackWhenBreakerOpens(t *testing.T) {
	primary := &failingStore{err: sentinel.ErrUnavailable}
	metrics := &countingMetrics{}
	m := New(primary, discardLogger(),
		WithFallback(bucket.New()),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		WithLimit(models.ClassLogin, models.Limit{RequestsPerWindow: 1, Window: time.Minute}),
		WithMetrics(metrics),
	)
	h := m.RateLimit(models.ClassLogin)(okHandler())

	// Below the threshold the request fails open.
	rr := serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get(StatusHeader))

	// The second failure opens the circuit and the fallback counts it.
	rr = serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "degraded", rr.Header().Get(StatusHeader))

	rr = serve(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "degraded", rr.Header().Get(StatusHeader))
	assert.Equal(t, 2, metrics.degraded)
}

func TestRateLimitRecoversAfterPrimaryHeals(t *testing.T) {
	primary := &flakyStore{store: bucket.New(), failing: true}
	breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(1))
	m := New(primary, discardLogger(), WithFallback(bucket.New()), WithBreaker(breaker))
	h := m.RateLimit(models.ClassRegistration)(okHandler())

	rr := serve(h, "10.0.0.1")
	assert.Equal(t, "degraded", rr.Header().Get(StatusHeader))
	assert.True(t, breaker.IsOpen())

	primary.failing = false
	rr = serve(h, "10.0.0.1")
	assert.Empty(t, rr.Header().Get(StatusHeader))
	assert.False(t, breaker.IsOpen())
}

type flakyStore struct {
	store   *bucket.InMemoryBucketStore
	failing bool
}

func (f *flakyStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	if f.failing {
		return nil, sentinel.ErrUnavailable
	}
	return f.store.Allow(ctx, key, limit, window)
}
