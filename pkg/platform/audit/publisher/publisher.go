// Package publisher records audit events. Emission never fails the caller:
// a store error is logged and the business operation continues.
package publisher

import (
	"context"
	"log/slog"

	audit "regdesk/pkg/platform/audit"
	"regdesk/pkg/requestcontext"
)

// Publisher fills request-scoped fields, logs each event, and appends it to
// the store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records an event. Category, timestamp, request ID, client IP and actor
// are taken from the context when the event leaves them empty.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.AdminSubject(ctx)
	}

	p.logger.InfoContext(ctx, "audit",
		"category", event.Category,
		"action", event.Action,
		"subject", event.Subject,
		"actor_id", event.ActorID,
		"request_id", event.RequestID,
	)
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit event not persisted",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

// Recent returns up to limit events, newest first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}
