// Package spreadsheet defines the row-oriented spreadsheet collaborator the
// roster lives in. Backends (google, xlsx, memory) implement Client; services
// only see Worksheet.
package spreadsheet

import (
	"context"
	"strings"
)

//go:generate mockgen -source=spreadsheet.go -destination=mocks/mocks.go -package=mocks Worksheet

// Client opens spreadsheets by name. Constructing a Client is where backends
// authenticate; failures there are fatal for the process.
type Client interface {
	Open(ctx context.Context, name string) (Spreadsheet, error)
}

// Spreadsheet resolves worksheets by title.
type Spreadsheet interface {
	Worksheet(ctx context.Context, title string) (Worksheet, error)
}

// Worksheet exposes row-level operations. Rows include the header row.
type Worksheet interface {
	Title() string
	Rows(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
	// Update writes rows starting at A1, leaving cells beyond them untouched.
	Update(ctx context.Context, rows [][]string) error
	Clear(ctx context.Context) error
}

// Record is one data row keyed by its raw header, together with its 1-based
// spreadsheet row number.
type Record struct {
	Row    int
	Values map[string]string
}

// Records converts raw rows (header first) into header-keyed records. Blank
// rows are skipped; short rows are padded with empty values. When a header
// repeats, the first occurrence wins. Headers are returned in sheet order.
func Records(rows [][]string) (headers []string, records []Record) {
	if len(rows) == 0 {
		return nil, nil
	}
	headerIndex := make(map[string]int)
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := headerIndex[h]; dup {
			continue
		}
		headerIndex[h] = i
		headers = append(headers, h)
	}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		values := make(map[string]string, len(headers))
		for _, h := range headers {
			idx := headerIndex[h]
			if idx < len(row) {
				values[h] = row[idx]
			} else {
				values[h] = ""
			}
		}
		records = append(records, Record{Row: i + 2, Values: values})
	}
	return headers, records
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
