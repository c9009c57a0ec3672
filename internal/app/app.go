// Package app assembles the services from configuration. The server and
// rosterctl share it so both see the same roster.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regdesk/internal/admin"
	"regdesk/internal/confirmation"
	"regdesk/internal/dashboard"
	jwttoken "regdesk/internal/jwt_token"
	"regdesk/internal/platform/config"
	"regdesk/internal/platform/metrics"
	redisclient "regdesk/internal/platform/redis"
	"regdesk/internal/platform/tracing"
	ratelimit "regdesk/internal/ratelimit/middleware"
	rlmodels "regdesk/internal/ratelimit/models"
	"regdesk/internal/ratelimit/store/bucket"
	reghandler "regdesk/internal/registration/handler"
	regmodels "regdesk/internal/registration/models"
	regservice "regdesk/internal/registration/service"
	"regdesk/internal/roster"
	"regdesk/internal/roster/cache"
	"regdesk/internal/spreadsheet"
	httptransport "regdesk/internal/transport/http"
	"regdesk/pkg/platform/audit/publisher"
	auditmemory "regdesk/pkg/platform/audit/store/memory"
)

// redisKeyPrefix namespaces the shared roster cache.
const redisKeyPrefix = "regdesk:"

// App holds the wired services.
type App struct {
	Config       config.Server
	Logger       *slog.Logger
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Catalog      *regmodels.Catalog
	Worksheets   *Worksheets
	Loader       *roster.Loader
	Registration *regservice.Service
	Dashboard    *dashboard.Service
	Confirmation *confirmation.Service
	Sessions     *jwttoken.SessionService
	RateLimiter  *ratelimit.Middleware
	Audit        *publisher.Publisher

	redis   *redisclient.Client
	tracing *tracing.Provider
}

// Option customizes New, mostly for tests.
type Option func(*options)

type options struct {
	client spreadsheet.Client
}

// WithClient replaces the configured spreadsheet backend.
func WithClient(c spreadsheet.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// New connects to the spreadsheet (and Redis when configured) and builds every
// service. Connection and authentication failures are returned so the caller
// can exit.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	catalog, err := regmodels.LoadCatalog(cfg.Regions)
	if err != nil {
		return nil, err
	}

	tp, err := tracing.Init(cfg.TraceOut, os.Stdout)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	client := o.client
	if client == nil {
		client, err = OpenClient(ctx, cfg.Sheets)
		if err != nil {
			return nil, fmt.Errorf("connect to spreadsheet backend: %w", err)
		}
	}
	sheets, err := OpenWorksheets(ctx, client, cfg.Sheets, m, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   registry,
		Metrics:    m,
		Catalog:    catalog,
		Worksheets: sheets,
		Sessions:   jwttoken.NewSessionService(cfg.Admin.SessionSigningKey),
		Audit:      publisher.New(auditmemory.NewInMemoryStore(auditmemory.DefaultCapacity), publisher.WithLogger(logger)),
		tracing:    tp,
	}

	var tableCache roster.Cache = cache.NewInMemoryTableStore(cfg.Roster.CacheTTL)
	if cfg.Redis.URL != "" {
		a.redis, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		tableCache = cache.NewRedisTableStore(a.redis, redisKeyPrefix)
		logger.Info("using redis roster cache")
	}
	a.RateLimiter = newRateLimiter(cfg.RateLimit, a.redis, m, logger)

	a.Loader = roster.NewLoader(sheets.Sources,
		roster.WithCache(tableCache, cfg.Roster.CacheTTL),
		roster.WithLogger(logger),
		roster.WithMetrics(m),
	)
	// Appends and full rewrites of the worksheets must not interleave.
	writeLock := &sync.Mutex{}
	a.Registration = regservice.New(sheets.Registration, catalog,
		regservice.WithLogger(logger),
		regservice.WithWriteLock(writeLock),
		regservice.WithMetrics(m),
		regservice.WithInvalidator(a.Loader),
	)
	a.Dashboard = dashboard.New(a.Loader, dashboard.WithLogger(logger))
	a.Confirmation = confirmation.New(a.Loader,
		confirmation.WithLogger(logger),
		confirmation.WithMetrics(m),
		confirmation.WithAuditor(a.Audit),
		confirmation.WithWriteLock(writeLock),
	)
	return a, nil
}

// newRateLimiter keeps buckets in Redis when it is configured and falls back
// to process memory while Redis is failing.
func newRateLimiter(cfg config.RateLimit, rc *redisclient.Client, m *metrics.Metrics, logger *slog.Logger) *ratelimit.Middleware {
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(cfg.Disabled),
		ratelimit.WithMetrics(m),
		ratelimit.WithLimit(rlmodels.ClassRegistration, rlmodels.Limit{RequestsPerWindow: cfg.RegistrationsPerMinute, Window: time.Minute}),
		ratelimit.WithLimit(rlmodels.ClassLogin, rlmodels.Limit{RequestsPerWindow: cfg.LoginAttemptsPerMinute, Window: time.Minute}),
	}
	var store ratelimit.BucketStore = bucket.New()
	if rc != nil {
		store = bucket.NewRedisBucketStore(rc.Client)
		opts = append(opts, ratelimit.WithFallback(bucket.New()))
	}
	return ratelimit.New(store, logger, opts...)
}

// Router mounts the public form, the admin dashboard, health and metrics.
func (a *App) Router() http.Handler {
	cfg := a.Config
	return httptransport.NewRouter(httptransport.Deps{
		Logger: a.Logger,
		Handlers: []httptransport.RouteRegistrar{
			reghandler.New(a.Registration, a.Logger,
				reghandler.WithSubmitMiddleware(a.RateLimiter.RateLimit(rlmodels.ClassRegistration)),
			),
			admin.New(a.Dashboard, a.Confirmation, a.Sessions, admin.Config{
				Token:        cfg.Admin.Token,
				PasswordHash: cfg.Admin.PasswordHash,
				SessionTTL:   cfg.Admin.SessionTTL,
			}, a.Logger,
				admin.WithLoginMiddleware(a.RateLimiter.RateLimit(rlmodels.ClassLogin)),
				admin.WithAuditLog(a.Audit),
			),
		},
		Metrics: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Health:  a.Health,
	})
}

// Health reports whether optional infrastructure is reachable.
func (a *App) Health(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Health(ctx)
}

// Close releases connections and flushes traces.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
