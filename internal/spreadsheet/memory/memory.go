// Package memory is an in-process spreadsheet backend used by tests and the
// demo mode of the server.
package memory

import (
	"context"
	"fmt"
	"sync"

	"regdesk/internal/spreadsheet"
	"regdesk/pkg/platform/sentinel"
)

// Client holds named workbooks in memory.
type Client struct {
	mu        sync.Mutex
	workbooks map[string]*Workbook
}

// NewClient creates an empty client.
func NewClient() *Client {
	return &Client{workbooks: make(map[string]*Workbook)}
}

// Add registers a workbook under name and returns it.
func (c *Client) Add(name string) *Workbook {
	c.mu.Lock()
	defer c.mu.Unlock()
	wb := NewWorkbook()
	c.workbooks[name] = wb
	return wb
}

func (c *Client) Open(_ context.Context, name string) (spreadsheet.Spreadsheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wb, ok := c.workbooks[name]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %q: %w", name, sentinel.ErrNotFound)
	}
	return wb, nil
}

// Workbook is a set of worksheets sharing one lock.
type Workbook struct {
	mu     sync.Mutex
	sheets map[string]*Sheet
}

// NewWorkbook creates an empty workbook.
func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[string]*Sheet)}
}

// AddSheet creates or replaces a worksheet with a copy of rows.
func (w *Workbook) AddSheet(title string, rows [][]string) *Sheet {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := &Sheet{title: title, book: w, rows: copyRows(rows)}
	w.sheets[title] = s
	return s
}

// Sheet returns the worksheet with the given title, or nil.
func (w *Workbook) Sheet(title string) *Sheet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sheets[title]
}

func (w *Workbook) Worksheet(_ context.Context, title string) (spreadsheet.Worksheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sheets[title]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", title, sentinel.ErrNotFound)
	}
	return s, nil
}

// Sheet is an in-memory worksheet. Failures can be injected per operation.
type Sheet struct {
	title string
	book  *Workbook
	rows  [][]string
	fail  map[string][]error
}

func (s *Sheet) Title() string {
	return s.title
}

// FailNext makes the next len(errs) calls of op return errs in order. Op is one
// of "rows", "append_row", "update", "clear".
func (s *Sheet) FailNext(op string, errs ...error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if s.fail == nil {
		s.fail = make(map[string][]error)
	}
	s.fail[op] = append(s.fail[op], errs...)
}

// Snapshot returns a copy of the current rows.
func (s *Sheet) Snapshot() [][]string {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return copyRows(s.rows)
}

func (s *Sheet) Rows(ctx context.Context) ([][]string, error) {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if err := s.injected(ctx, "rows"); err != nil {
		return nil, err
	}
	return copyRows(s.rows), nil
}

func (s *Sheet) AppendRow(ctx context.Context, row []string) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if err := s.injected(ctx, "append_row"); err != nil {
		return err
	}
	s.rows = append(s.rows, append([]string(nil), row...))
	return nil
}

func (s *Sheet) Update(ctx context.Context, rows [][]string) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if err := s.injected(ctx, "update"); err != nil {
		return err
	}
	for i, row := range rows {
		for len(s.rows) <= i {
			s.rows = append(s.rows, nil)
		}
		target := s.rows[i]
		for len(target) < len(row) {
			target = append(target, "")
		}
		copy(target, row)
		s.rows[i] = target
	}
	return nil
}

func (s *Sheet) Clear(ctx context.Context) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	if err := s.injected(ctx, "clear"); err != nil {
		return err
	}
	s.rows = nil
	return nil
}

func (s *Sheet) injected(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	queue := s.fail[op]
	if len(queue) == 0 {
		return nil
	}
	s.fail[op] = queue[1:]
	return queue[0]
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
