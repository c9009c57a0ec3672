package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/sentinel"
)

const (
	DefaultCacheTTL = 60 * time.Second
	cacheKey        = "roster"
)

// Cache stores the normalized table between loads.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Table, bool, error)
	Set(ctx context.Context, key string, table *models.Table, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Metrics is the subset of application metrics the loader reports.
type Metrics interface {
	ObserveRosterLoad(start time.Time)
	IncrementCacheHit()
	IncrementCacheMiss()
}

// Loader reads every source worksheet and normalizes them into one table.
type Loader struct {
	sheets  []spreadsheet.Worksheet
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics Metrics
	now     func() time.Time
	tracer  trace.Tracer
	group   singleflight.Group

	// generation counts invalidations; a read that started before one must
	// not repopulate the cache.
	mu         sync.Mutex
	generation uint64
}

type Option func(*Loader)

// WithCache enables caching of the normalized table for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(l *Loader) {
		l.cache = c
		l.ttl = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// WithClock overrides the time source used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// NewLoader builds a loader over the source worksheets, in load order.
func NewLoader(sheets []spreadsheet.Worksheet, opts ...Option) *Loader {
	l := &Loader{
		sheets: sheets,
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
		now:    time.Now,
		tracer: otel.Tracer("regdesk/roster"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Worksheets returns the source worksheets in load order.
func (l *Loader) Worksheets() []spreadsheet.Worksheet {
	return l.sheets
}

// Load returns the cached table, reading the spreadsheet on a miss.
// Concurrent misses share one read. The returned table is owned by the caller.
func (l *Loader) Load(ctx context.Context) (*models.Table, error) {
	if l.cache != nil {
		table, ok, err := l.cache.Get(ctx, cacheKey)
		if err != nil {
			l.logger.WarnContext(ctx, "roster cache read failed", "error", err)
		}
		if ok {
			l.incrementCacheHit()
			return table, nil
		}
		l.incrementCacheMiss()
	}

	v, err, _ := l.group.Do(cacheKey, func() (any, error) {
		gen := l.currentGeneration()
		// The read is shared by every coalesced caller; none of them may cancel it.
		shared := context.WithoutCancel(ctx)
		table, err := l.Fresh(shared)
		if err != nil {
			return nil, err
		}
		if l.cache != nil {
			l.store(shared, gen, table)
		}
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a singleflight result must not share the records.
	return v.(*models.Table).Clone(), nil
}

// Fresh reads and normalizes every worksheet, bypassing the cache.
func (l *Loader) Fresh(ctx context.Context) (*models.Table, error) {
	ctx, span := l.tracer.Start(ctx, "roster.load",
		trace.WithAttributes(attribute.Int("roster.sheets", len(l.sheets))))
	defer span.End()

	start := time.Now()
	defer l.observeLoad(start)

	raw := make([]RawSheet, len(l.sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, ws := range l.sheets {
		g.Go(func() error {
			rows, err := ws.Rows(gctx)
			if err != nil {
				return readError(ws.Title(), err)
			}
			raw[i] = RawSheet{Name: ws.Title(), Rows: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorContext(ctx, "roster load failed", "error", err)
		return nil, err
	}

	table, err := Normalize(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	table.LoadedAt = l.now()
	span.SetAttributes(attribute.Int("roster.records", len(table.Records)))
	return table, nil
}

// store caches table unless the cache was invalidated after its read began.
func (l *Loader) store(ctx context.Context, gen uint64, table *models.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		l.logger.DebugContext(ctx, "roster cache write skipped after invalidation")
		return
	}
	if err := l.cache.Set(ctx, cacheKey, table, l.ttl); err != nil {
		l.logger.WarnContext(ctx, "roster cache write failed", "error", err)
	}
}

func (l *Loader) currentGeneration() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// Invalidate drops the cached table so the next Load reads the spreadsheet.
// Reads already in flight still return but no longer populate the cache.
func (l *Loader) Invalidate(ctx context.Context) error {
	l.mu.Lock()
	l.generation++
	l.mu.Unlock()
	l.group.Forget(cacheKey)
	if l.cache == nil {
		return nil
	}
	if err := l.cache.Delete(ctx, cacheKey); err != nil {
		l.logger.WarnContext(ctx, "roster cache invalidation failed", "error", err)
		return err
	}
	return nil
}

// readError translates backend failures into domain errors.
func readError(sheet string, err error) error {
	msg := fmt.Sprintf("failed to read worksheet %s", sheet)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, fmt.Sprintf("worksheet %s not found", sheet))
	case errors.Is(err, sentinel.ErrRateLimited):
		return dErrors.Wrap(err, dErrors.CodeRateLimited, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
}

func (l *Loader) observeLoad(start time.Time) {
	if l.metrics != nil {
		l.metrics.ObserveRosterLoad(start)
	}
}

func (l *Loader) incrementCacheHit() {
	if l.metrics != nil {
		l.metrics.IncrementCacheHit()
	}
}

func (l *Loader) incrementCacheMiss() {
	if l.metrics != nil {
		l.metrics.IncrementCacheMiss()
	}
}
