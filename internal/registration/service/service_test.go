package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"regdesk/internal/registration/models"
	rostermodels "regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet/memory"
	"regdesk/internal/spreadsheet/mocks"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/platform/sentinel"
	"regdesk/pkg/requestcontext"
	"regdesk/pkg/testutil"
)

type outcomes map[string]int

func (o outcomes) IncrementRegistration(outcome string) { o[outcome]++ }

type invalidations int

func (i *invalidations) Invalidate(context.Context) error { *i++; return nil }

func validSubmission() models.Submission {
	return models.Submission{
		Name:             "kofi agbo",
		Gender:           "Male",
		DesignationLevel: "District",
		Position:         "usher",
		Region:           "Volta",
		Division:         "Ho",
		Contact:          "020 123 4567",
	}
}

func TestSubmit(t *testing.T) {
	submittedAt := time.Date(2025, 2, 1, 8, 15, 30, 0, time.Local)

	testutil.Given(t, "a registration worksheet with only a header", func(t *testing.T) {
		wb := memory.NewWorkbook()
		sheet := wb.AddSheet("national_wk", [][]string{rostermodels.Schema})
		counts := outcomes{}
		var inv invalidations
		svc := New(sheet, models.DefaultCatalog(), WithMetrics(counts), WithInvalidator(&inv))
		ctx := requestcontext.WithTime(context.Background(), submittedAt)

		testutil.When(t, "a valid participant submits", func(t *testing.T) {
			rec, err := svc.Submit(ctx, validSubmission())
			require.NoError(t, err)

			testutil.Then(t, "one normalized row is appended", func(t *testing.T) {
				rows := sheet.Snapshot()
				require.Len(t, rows, 2)
				assert.Equal(t, []string{
					"2025-02-01 08:15:30.000000", "Volta", "Ho", "District", "Kofi Agbo",
					"Male", "Usher", "0201234567", "", "",
				}, rows[1])
				assert.Equal(t, "Kofi Agbo", rec.Name)
				assert.Equal(t, 1, counts["stored"])
				assert.Equal(t, invalidations(1), inv)
			})
		})

		testutil.When(t, "the submission is invalid", func(t *testing.T) {
			sub := validSubmission()
			sub.Contact = "12345"
			sub.Division = "Tamale"
			_, err := svc.Submit(ctx, sub)

			testutil.Then(t, "every field error is reported", func(t *testing.T) {
				require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				var fe httputil.FieldErrorer
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, map[string]string{
					models.FieldDivision: "Select a Division",
					models.FieldContact:  "Enter a valid 10-digit Telephone Number",
				}, fe.FieldErrors())
			})

			testutil.And(t, "nothing is written", func(t *testing.T) {
				assert.Len(t, sheet.Snapshot(), 2)
				assert.Equal(t, 1, counts["invalid"])
			})
		})
	})
}

func TestSubmit_AppendFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"quota exhausted after retries", sentinel.ErrRateLimited, dErrors.CodeWriteFailed},
		{"credentials revoked", sentinel.ErrUnauthorized, dErrors.CodeUnavailable},
		{"backend error", errors.New("internal error from sheets"), dErrors.CodeWriteFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ws := mocks.NewMockWorksheet(ctrl)
			ws.EXPECT().AppendRow(gomock.Any(), gomock.Len(len(rostermodels.Schema))).Return(tt.err)

			counts := outcomes{}
			svc := New(ws, models.DefaultCatalog(), WithMetrics(counts))
			_, err := svc.Submit(context.Background(), validSubmission())

			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code))
			assert.Contains(t, err.Error(), "Data not submitted")
			assert.Equal(t, 1, counts["failed"])
		})
	}
}

func TestSubmit_WaitsForWriteLock(t *testing.T) {
	wb := memory.NewWorkbook()
	sheet := wb.AddSheet("national_wk", [][]string{rostermodels.Schema})
	writeLock := &sync.Mutex{}
	svc := New(sheet, models.DefaultCatalog(), WithWriteLock(writeLock))

	writeLock.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), validSubmission())
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("submit finished while a rewrite held the lock: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, sheet.Snapshot(), 1)

	writeLock.Unlock()
	require.NoError(t, <-done)
	assert.Len(t, sheet.Snapshot(), 2)
}

func TestSubmit_WithoutMetrics(t *testing.T) {
	wb := memory.NewWorkbook()
	sheet := wb.AddSheet("national_wk", [][]string{rostermodels.Schema})
	svc := New(sheet, models.DefaultCatalog())

	_, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	sub := validSubmission()
	sub.Name = ""
	_, err = svc.Submit(context.Background(), sub)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
