package dashboard

import (
	"context"
	"log/slog"
	"time"

	"regdesk/internal/roster/models"
)

// TableLoader returns the current normalized roster.
type TableLoader interface {
	Load(ctx context.Context) (*models.Table, error)
}

// Service answers dashboard queries against the cached roster.
type Service struct {
	loader TableLoader
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(loader TableLoader, opts ...Option) *Service {
	s := &Service{loader: loader, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Group is the bulk confirmation view for one grouping value.
type Group struct {
	Grouping Grouping            `json:"grouping"`
	Value    string              `json:"value"`
	Options  []string            `json:"options"`
	Records  []models.Registrant `json:"records"`
}

// Overview is everything the dashboard page renders.
type Overview struct {
	Summary       Summary             `json:"summary"`
	RegionOptions []string            `json:"region_options"`
	Query         Query               `json:"-"`
	Results       []models.Registrant `json:"results"`
	Pending       []models.Registrant `json:"pending"`
	Bulk          Group               `json:"bulk"`
	LoadedAt      time.Time           `json:"loaded_at"`
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	table, err := s.loader.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(table.Records), nil
}

// Participants returns the records matching q, best match first.
func (s *Service) Participants(ctx context.Context, q Query) ([]models.Registrant, error) {
	table, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(table.Records, q)
}

// PendingGroup returns the unconfirmed records of one region or division.
func (s *Service) PendingGroup(ctx context.Context, g Grouping, value string) (*Group, error) {
	table, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return pendingGroup(table.Records, g, value), nil
}

// Overview loads the roster once and derives every dashboard section from it.
// Pending lists the unconfirmed records of the current filter.
func (s *Service) Overview(ctx context.Context, q Query, g Grouping, groupValue string) (*Overview, error) {
	table, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	results, err := Filter(table.Records, q)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "dashboard overview",
		"region", q.Region,
		"field", q.Field,
		"results", len(results),
	)
	return &Overview{
		Summary:       Summarize(table.Records),
		RegionOptions: RegionOptions(table.Records),
		Query:         q,
		Results:       results,
		Pending:       Unconfirmed(results),
		Bulk:          *pendingGroup(table.Records, g, groupValue),
		LoadedAt:      table.LoadedAt,
	}, nil
}

func pendingGroup(records []models.Registrant, g Grouping, value string) *Group {
	options := GroupOptions(records, g)
	if value == "" {
		value = options[0]
	}
	return &Group{
		Grouping: g,
		Value:    value,
		Options:  options,
		Records:  InGroup(records, g, value),
	}
}
