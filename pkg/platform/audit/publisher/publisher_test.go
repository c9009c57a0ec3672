package publisher

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/audit/store/memory"
	"regdesk/pkg/requestcontext"
)

func TestPublisher_FillsRequestScopedFields(t *testing.T) {
	store := memory.NewInMemoryStore(10)
	pub := New(store, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	at := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientIP(ctx, "10.0.0.9")
	ctx = requestcontext.WithAdminSubject(ctx, "admin")

	pub.Emit(ctx, audit.Event{Action: audit.EventParticipantConfirmed, Subject: "national_wk:2"})

	events, err := pub.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: at,
		Action:    audit.EventParticipantConfirmed,
		Subject:   "national_wk:2",
		ActorID:   "admin",
		IP:        "10.0.0.9",
		RequestID: "req-1",
	}, events[0])
}

func TestPublisher_KeepsExplicitFields(t *testing.T) {
	pub := New(memory.NewInMemoryStore(10))
	ctx := requestcontext.WithAdminSubject(context.Background(), "admin")

	pub.Emit(ctx, audit.Event{Action: "custom", ActorID: "rosterctl"})

	events, err := pub.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "rosterctl", events[0].ActorID)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, nil
}

func TestPublisher_StoreFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	pub := New(failingStore{}, WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))

	pub.Emit(context.Background(), audit.Event{Action: audit.EventAdminSignInFailed})

	assert.Contains(t, logs.String(), "audit event not persisted")
	assert.Contains(t, logs.String(), "disk full")
}
