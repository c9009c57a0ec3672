package roster_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"regdesk/internal/roster"
	"regdesk/internal/roster/cache"
	"regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet"
	"regdesk/internal/spreadsheet/memory"
	dErrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/sentinel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

type countingSheet struct {
	spreadsheet.Worksheet
	reads atomic.Int32
	gate  chan struct{}
}

func (c *countingSheet) Rows(ctx context.Context) ([][]string, error) {
	c.reads.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.Worksheet.Rows(ctx)
}

// pausedSheet reads its rows, reports the read and waits for release before
// returning them.
type pausedSheet struct {
	spreadsheet.Worksheet
	read    chan struct{}
	release chan struct{}
}

func (p *pausedSheet) Rows(ctx context.Context) ([][]string, error) {
	rows, err := p.Worksheet.Rows(ctx)
	select {
	case p.read <- struct{}{}:
	default:
	}
	<-p.release
	return rows, err
}

type fakeMetrics struct {
	mu                  sync.Mutex
	loads, hits, misses int
}

func (f *fakeMetrics) ObserveRosterLoad(time.Time) { f.mu.Lock(); f.loads++; f.mu.Unlock() }
func (f *fakeMetrics) IncrementCacheHit()          { f.mu.Lock(); f.hits++; f.mu.Unlock() }
func (f *fakeMetrics) IncrementCacheMiss()         { f.mu.Lock(); f.misses++; f.mu.Unlock() }

func seedWorkbook() *memory.Workbook {
	wb := memory.NewWorkbook()
	wb.AddSheet("national_wk", [][]string{
		models.Schema,
		{"2025-01-01 10:00:00.000000", "Ashanti", "Kumasi Central", "Regional", "Ama Mensah", "Female", "Coordinator", "0241234567", "", ""},
	})
	wb.AddSheet("manual_wk", [][]string{
		{"Name", "Sex", "Phone", "Region"},
		{"Kofi Agbo", "Male", "020 123 4567", "Volta"},
	})
	return wb
}

func TestLoader_LoadCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	wb := seedWorkbook()
	national := &countingSheet{Worksheet: wb.Sheet("national_wk")}
	loadedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := &fakeMetrics{}
	store := cache.NewInMemoryTableStore(time.Minute)

	loader := roster.NewLoader(
		[]spreadsheet.Worksheet{national, wb.Sheet("manual_wk")},
		roster.WithCache(store, time.Minute),
		roster.WithMetrics(m),
		roster.WithClock(func() time.Time { return loadedAt }),
	)

	table, err := loader.Load(ctx)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, loadedAt, table.LoadedAt)
	assert.Equal(t, "0201234567", table.Records[1].Contact)

	require.NoError(t, wb.Sheet("manual_wk").AppendRow(ctx, []string{"Esi Owusu", "Female", "0551234567", "Central"}))

	cached, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cached.Records, 2, "second load should be served from cache")
	assert.Equal(t, int32(1), national.reads.Load())

	require.NoError(t, loader.Invalidate(ctx))
	reloaded, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded.Records, 3)
	assert.Equal(t, "manual_wk:3", reloaded.Records[2].ID)

	assert.Equal(t, 1, m.hits)
	assert.Equal(t, 2, m.misses)
	assert.Equal(t, 2, m.loads)
}

func TestLoader_FreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	wb := seedWorkbook()
	national := &countingSheet{Worksheet: wb.Sheet("national_wk")}
	loader := roster.NewLoader(
		[]spreadsheet.Worksheet{national, wb.Sheet("manual_wk")},
		roster.WithCache(cache.NewInMemoryTableStore(time.Minute), time.Minute),
	)

	_, err := loader.Load(ctx)
	require.NoError(t, err)
	_, err = loader.Fresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), national.reads.Load())
}

func TestLoader_CallerOwnsReturnedTable(t *testing.T) {
	ctx := context.Background()
	wb := seedWorkbook()
	loader := roster.NewLoader(
		[]spreadsheet.Worksheet{wb.Sheet("national_wk"), wb.Sheet("manual_wk")},
		roster.WithCache(cache.NewInMemoryTableStore(time.Minute), time.Minute),
	)

	first, err := loader.Load(ctx)
	require.NoError(t, err)
	first.Records[0].RegistrationStatus = models.StatusConfirmed

	second, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Records[0].RegistrationStatus)
}

func TestLoader_CoalescesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	wb := seedWorkbook()
	national := &countingSheet{Worksheet: wb.Sheet("national_wk"), gate: make(chan struct{})}
	loader := roster.NewLoader([]spreadsheet.Worksheet{national, wb.Sheet("manual_wk")})

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loader.Load(ctx)
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return national.reads.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(national.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), national.reads.Load())
}

func TestLoader_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"rate limited", sentinel.ErrRateLimited, dErrors.CodeRateLimited},
		{"not found", sentinel.ErrNotFound, dErrors.CodeNotFound},
		{"unauthorized", sentinel.ErrUnauthorized, dErrors.CodeUnavailable},
		{"timeout", context.DeadlineExceeded, dErrors.CodeTimeout},
		{"other", errors.New("connection reset"), dErrors.CodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := seedWorkbook()
			wb.Sheet("manual_wk").FailNext("rows", tt.err)
			loader := roster.NewLoader([]spreadsheet.Worksheet{wb.Sheet("national_wk"), wb.Sheet("manual_wk")})

			_, err := loader.Load(context.Background())
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestLoader_NoData(t *testing.T) {
	wb := memory.NewWorkbook()
	wb.AddSheet("national_wk", [][]string{models.Schema})
	loader := roster.NewLoader([]spreadsheet.Worksheet{wb.Sheet("national_wk")})

	_, err := loader.Load(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoData))
}

func TestLoader_InvalidateDuringReadKeepsStaleTableOutOfCache(t *testing.T) {
	ctx := context.Background()
	wb := seedWorkbook()
	national := &pausedSheet{
		Worksheet: wb.Sheet("national_wk"),
		read:      make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	loader := roster.NewLoader(
		[]spreadsheet.Worksheet{national, wb.Sheet("manual_wk")},
		roster.WithCache(cache.NewInMemoryTableStore(time.Minute), time.Minute),
	)

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx)
		done <- err
	}()
	<-national.read

	// A confirmation rewrites the sheet and invalidates while the read is paused.
	rows := wb.Sheet("national_wk").Snapshot()
	rows[1][8] = models.StatusConfirmed
	require.NoError(t, wb.Sheet("national_wk").Update(ctx, rows))
	require.NoError(t, loader.Invalidate(ctx))

	close(national.release)
	require.NoError(t, <-done)

	table, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, table.Records[0].RegistrationStatus)
}

func TestLoader_CancelledCallerDoesNotFailCoalescedLoad(t *testing.T) {
	wb := seedWorkbook()
	national := &countingSheet{Worksheet: wb.Sheet("national_wk"), gate: make(chan struct{})}
	loader := roster.NewLoader([]spreadsheet.Worksheet{national, wb.Sheet("manual_wk")})

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := loader.Load(firstCtx)
		first <- err
	}()
	require.Eventually(t, func() bool { return national.reads.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background())
		second <- err
	}()
	// Give the second caller time to join the in-flight load.
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(national.gate)

	require.NoError(t, <-second)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), national.reads.Load())
}
