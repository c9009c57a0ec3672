package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"regdesk/internal/platform/metrics"
	"regdesk/internal/registration/models"
	rostermodels "regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/sentinel"
	"regdesk/pkg/requestcontext"
)

// Appender appends one row to the registration worksheet.
type Appender interface {
	AppendRow(ctx context.Context, row []string) error
}

// Invalidator drops cached roster copies so new registrations show up on the
// dashboard without waiting for the cache to expire.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Metrics interface {
	IncrementRegistration(outcome string)
}

// Service validates form submissions and stores them.
type Service struct {
	sheet       Appender
	catalog     *models.Catalog
	invalidator Invalidator
	logger      *slog.Logger
	metrics     Metrics
	writeLock   sync.Locker
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		s.invalidator = inv
	}
}

// WithWriteLock shares a lock with the confirmation writer so an append never
// lands between its read and its rewrite of the worksheets.
func WithWriteLock(l sync.Locker) Option {
	return func(s *Service) {
		s.writeLock = l
	}
}

func New(sheet Appender, catalog *models.Catalog, opts ...Option) *Service {
	s := &Service{sheet: sheet, catalog: catalog, logger: slog.Default(), writeLock: &sync.Mutex{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the region to division mapping offered by the form.
func (s *Service) Catalog() *models.Catalog {
	return s.catalog
}

// Submit validates the submission and appends it to the registration
// worksheet. Validation failures carry models.FieldErrors.
func (s *Service) Submit(ctx context.Context, sub models.Submission) (*rostermodels.Registrant, error) {
	sub.Normalize()
	if fieldErrs := sub.Validate(s.catalog); fieldErrs != nil {
		s.increment(metrics.OutcomeInvalid)
		return nil, dErrors.Wrap(fieldErrs, dErrors.CodeValidation, "Please correct the highlighted fields")
	}

	rec := sub.Registrant(requestcontext.Now(ctx))
	if err := s.appendRow(ctx, rec.Values(rostermodels.Schema)); err != nil {
		s.increment(metrics.OutcomeFailed)
		s.logger.ErrorContext(ctx, "registration append failed",
			"error", err,
			"region", rec.Region,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, appendError(err)
	}

	s.increment(metrics.OutcomeStored)
	s.logger.InfoContext(ctx, "registration stored",
		"region", rec.Region,
		"division", rec.Division,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "roster cache invalidation failed", "error", err)
		}
	}
	return &rec, nil
}

func (s *Service) appendRow(ctx context.Context, row []string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.sheet.AppendRow(ctx, row)
}

func appendError(err error) error {
	const msg = "Data not submitted"
	switch {
	case errors.Is(err, sentinel.ErrUnauthorized), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeWriteFailed, msg)
	}
}

func (s *Service) increment(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementRegistration(outcome)
	}
}
