// Package confirmation marks registrants confirmed and writes the whole roster
// back to its source worksheets.
//
// Confirmations in one process are serialized, and registrations sharing the
// write lock wait for a rewrite to finish. Across processes the last full
// rewrite wins; a registration appended by another process between the read
// and the rewrite can be lost.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet"
	dErrors "regdesk/pkg/domain-errors"
	audit "regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/sentinel"
	pstrings "regdesk/pkg/platform/strings"
	"regdesk/pkg/requestcontext"
)

// User-facing warnings for confirmations that write nothing.
const (
	WarnNoSelection      = "Please select at least one participant"
	WarnAlreadyConfirmed = "Selected participants are already confirmed"
)

// Roster reads the table fresh and drops cached copies after a write.
type Roster interface {
	Fresh(ctx context.Context) (*models.Table, error)
	Invalidate(ctx context.Context) error
	Worksheets() []spreadsheet.Worksheet
}

type Metrics interface {
	AddConfirmations(n int)
	IncrementConfirmFailure()
}

// Auditor records one event per confirmed participant.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Result reports what a confirmation request changed. Warning is set when
// nothing was written.
type Result struct {
	Confirmed []models.Registrant `json:"confirmed"`
	Skipped   []string            `json:"skipped,omitempty"`
	Warning   string              `json:"warning,omitempty"`
}

// Service confirms registrants.
type Service struct {
	roster  Roster
	logger  *slog.Logger
	metrics Metrics
	auditor Auditor
	mu      sync.Locker
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

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithWriteLock replaces the confirmation mutex with one shared by every
// writer of the source worksheets.
func WithWriteLock(l sync.Locker) Option {
	return func(s *Service) {
		s.mu = l
	}
}

func New(roster Roster, opts ...Option) *Service {
	s := &Service{roster: roster, logger: slog.Default(), mu: &sync.Mutex{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Confirm marks the given participants confirmed at the request time and
// rewrites every source worksheet. Already confirmed participants are skipped.
func (s *Service) Confirm(ctx context.Context, ids []string) (*Result, error) {
	ids = pstrings.DedupeAndTrim(ids)
	if len(ids) == 0 {
		return &Result{Warning: WarnNoSelection}, nil
	}
	for _, id := range ids {
		if _, _, err := models.ParseRecordID(id); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.roster.Fresh(ctx)
	if err != nil {
		return nil, err
	}

	var unknown []string
	for _, id := range ids {
		if table.Find(id) < 0 {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("unknown participant id(s): %s", strings.Join(unknown, ", ")))
	}

	at := requestcontext.Now(ctx)
	result := &Result{}
	for _, id := range ids {
		rec := &table.Records[table.Find(id)]
		if err := rec.CanConfirm(); err != nil {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		rec.ApplyConfirmation(at)
		result.Confirmed = append(result.Confirmed, *rec)
	}
	if len(result.Confirmed) == 0 {
		result.Warning = WarnAlreadyConfirmed
		return result, nil
	}

	if err := s.write(ctx, table); err != nil {
		s.incrementFailure()
		s.logger.ErrorContext(ctx, "confirmation write failed",
			"error", err,
			"participants", len(result.Confirmed),
			"admin", requestcontext.AdminSubject(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
		for _, rec := range result.Confirmed {
			s.emit(ctx, audit.Event{Action: audit.EventConfirmationFailed, Subject: rec.ID, Reason: err.Error()})
		}
		return nil, err
	}

	s.addConfirmations(len(result.Confirmed))
	for _, rec := range result.Confirmed {
		s.emit(ctx, audit.Event{Action: audit.EventParticipantConfirmed, Subject: rec.ID})
	}
	s.logger.InfoContext(ctx, "participants confirmed",
		"confirmed", len(result.Confirmed),
		"skipped", len(result.Skipped),
		"admin", requestcontext.AdminSubject(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

// write replaces each source worksheet with the header and its share of the
// table. The cache is dropped whether or not the write succeeds.
func (s *Service) write(ctx context.Context, table *models.Table) error {
	defer func() {
		if err := s.roster.Invalidate(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "roster cache invalidation failed", "error", err)
		}
	}()

	sheets := make(map[string]spreadsheet.Worksheet)
	for _, ws := range s.roster.Worksheets() {
		sheets[ws.Title()] = ws
	}
	parts := table.Split()
	for _, src := range table.Sources {
		ws, ok := sheets[src.Sheet]
		if !ok {
			return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no worksheet configured for %s", src.Sheet))
		}
		rows := make([][]string, 0, len(parts[src.Sheet])+1)
		rows = append(rows, append([]string(nil), table.Columns...))
		for i := range parts[src.Sheet] {
			rows = append(rows, parts[src.Sheet][i].Values(table.Columns))
		}
		if err := ws.Clear(ctx); err != nil {
			return writeError(src.Sheet, err)
		}
		if err := ws.Update(ctx, rows); err != nil {
			return writeError(src.Sheet, err)
		}
	}
	return nil
}

func writeError(sheet string, err error) error {
	msg := fmt.Sprintf("Confirmation failed: could not update worksheet %s", sheet)
	if errors.Is(err, sentinel.ErrUnauthorized) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeWriteFailed, msg)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}

func (s *Service) addConfirmations(n int) {
	if s.metrics != nil {
		s.metrics.AddConfirmations(n)
	}
}

func (s *Service) incrementFailure() {
	if s.metrics != nil {
		s.metrics.IncrementConfirmFailure()
	}
}
