package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdesk/pkg/platform/sentinel"
)

func TestClient_OpenAndWorksheet(t *testing.T) {
	ctx := context.Background()
	client := NewClient()
	client.Add("mini_congress").AddSheet("national_wk", [][]string{{"Name"}})

	book, err := client.Open(ctx, "mini_congress")
	require.NoError(t, err)

	ws, err := book.Worksheet(ctx, "national_wk")
	require.NoError(t, err)
	assert.Equal(t, "national_wk", ws.Title())

	_, err = book.Worksheet(ctx, "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = client.Open(ctx, "other")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSheet_RowOperations(t *testing.T) {
	ctx := context.Background()
	sheet := NewWorkbook().AddSheet("manual_wk", [][]string{{"Name", "Contact"}, {"Ama", "0241234567"}})

	require.NoError(t, sheet.AppendRow(ctx, []string{"Kofi", "0201234567"}))
	rows, err := sheet.Rows(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows[0][0] = "mutated"
	assert.Equal(t, "Name", sheet.Snapshot()[0][0], "Rows must return a copy")

	require.NoError(t, sheet.Clear(ctx))
	assert.Empty(t, sheet.Snapshot())

	require.NoError(t, sheet.Update(ctx, [][]string{{"Name"}, {"Esi"}}))
	assert.Equal(t, [][]string{{"Name"}, {"Esi"}}, sheet.Snapshot())
}

func TestSheet_FailNext(t *testing.T) {
	ctx := context.Background()
	sheet := NewWorkbook().AddSheet("national_wk", nil)
	sheet.FailNext("clear", sentinel.ErrRateLimited)

	assert.ErrorIs(t, sheet.Clear(ctx), sentinel.ErrRateLimited)
	assert.NoError(t, sheet.Clear(ctx))
}
