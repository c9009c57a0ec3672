package spreadsheet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"regdesk/pkg/platform/sentinel"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 2 * time.Second
)

// RetryObserver is notified of every rate-limit retry. Metrics implement it.
type RetryObserver interface {
	IncrementSheetRetry(op string)
}

// RetryPolicy retries rate-limited calls a fixed number of times with a fixed
// pause. Any other error is returned immediately.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	Logger   *slog.Logger
	Observer RetryObserver
}

type retryWorksheet struct {
	inner  Worksheet
	policy RetryPolicy
	tracer trace.Tracer
}

// WithRetry decorates a worksheet with the rate-limit retry policy and tracing.
func WithRetry(ws Worksheet, policy RetryPolicy) Worksheet {
	if policy.Attempts < 0 {
		policy.Attempts = 0
	}
	return &retryWorksheet{
		inner:  ws,
		policy: policy,
		tracer: otel.Tracer("regdesk/spreadsheet"),
	}
}

func (w *retryWorksheet) Title() string {
	return w.inner.Title()
}

func (w *retryWorksheet) Rows(ctx context.Context) ([][]string, error) {
	var rows [][]string
	err := w.do(ctx, "rows", func(ctx context.Context) error {
		var err error
		rows, err = w.inner.Rows(ctx)
		return err
	})
	return rows, err
}

func (w *retryWorksheet) AppendRow(ctx context.Context, row []string) error {
	return w.do(ctx, "append_row", func(ctx context.Context) error {
		return w.inner.AppendRow(ctx, row)
	})
}

func (w *retryWorksheet) Update(ctx context.Context, rows [][]string) error {
	return w.do(ctx, "update", func(ctx context.Context) error {
		return w.inner.Update(ctx, rows)
	})
}

func (w *retryWorksheet) Clear(ctx context.Context) error {
	return w.do(ctx, "clear", func(ctx context.Context) error {
		return w.inner.Clear(ctx)
	})
}

func (w *retryWorksheet) do(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := w.tracer.Start(ctx, "worksheet."+op, trace.WithAttributes(
		attribute.String("worksheet", w.inner.Title()),
	))
	defer span.End()

	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrRateLimited) {
			return backoff.Permanent(err)
		}
		if attempt <= w.policy.Attempts {
			if w.policy.Observer != nil {
				w.policy.Observer.IncrementSheetRetry(op)
			}
			if w.policy.Logger != nil {
				w.policy.Logger.WarnContext(ctx, "worksheet rate limited, retrying",
					"worksheet", w.inner.Title(),
					"op", op,
					"attempt", attempt,
					"backoff", w.policy.Backoff,
				)
			}
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.policy.Backoff), uint64(w.policy.Attempts)),
		ctx,
	)
	err := backoff.Retry(operation, b)
	span.SetAttributes(attribute.Int("attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
