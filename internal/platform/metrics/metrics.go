package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration outcomes.
const (
	OutcomeStored  = "stored"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Registrations     *prometheus.CounterVec
	Confirmations     prometheus.Counter
	ConfirmFailures   prometheus.Counter
	RosterLoad        prometheus.Histogram
	RosterCacheHits   prometheus.Counter
	RosterCacheMisses prometheus.Counter
	SheetRetries      *prometheus.CounterVec
	RateLimited       *prometheus.CounterVec
	RateLimitDegraded prometheus.Counter
}

// New creates and registers all metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_registrations_total",
			Help: "Registration form submissions by outcome",
		}, []string{"outcome"}),
		Confirmations: factory.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_confirmations_total",
			Help: "Participants marked confirmed",
		}),
		ConfirmFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_confirmation_write_failures_total",
			Help: "Confirmation batches whose write-back failed",
		}),
		RosterLoad: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "regdesk_roster_load_duration_seconds",
			Help:    "Duration of full roster reads from the spreadsheet",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RosterCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_roster_cache_hits_total",
			Help: "Roster reads served from cache",
		}),
		RosterCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_roster_cache_misses_total",
			Help: "Roster reads that went to the spreadsheet",
		}),
		SheetRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_sheet_retries_total",
			Help: "Spreadsheet operations retried after rate limiting",
		}, []string{"op"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"class"}),
		RateLimitDegraded: factory.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_rate_limit_degraded_total",
			Help: "Rate limit checks answered by the in-memory fallback",
		}),
	}
}

// IncrementRegistration records a form submission outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

// AddConfirmations records participants confirmed by one batch.
func (m *Metrics) AddConfirmations(n int) {
	m.Confirmations.Add(float64(n))
}

func (m *Metrics) IncrementConfirmFailure() {
	m.ConfirmFailures.Inc()
}

// ObserveRosterLoad records the duration of a roster load.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRosterLoad(start time.Time) {
	m.RosterLoad.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheHit() {
	m.RosterCacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.RosterCacheMisses.Inc()
}

// IncrementSheetRetry records one retried spreadsheet operation.
func (m *Metrics) IncrementSheetRetry(op string) {
	m.SheetRetries.WithLabelValues(op).Inc()
}

// IncrementRateLimited records a rejected request of an endpoint class.
func (m *Metrics) IncrementRateLimited(class string) {
	m.RateLimited.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementRateLimitDegraded() {
	m.RateLimitDegraded.Inc()
}
