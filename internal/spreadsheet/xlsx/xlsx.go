// Package xlsx stores the roster in a local workbook file, one file per
// spreadsheet name. Every operation reopens the file so edits made in a desktop
// spreadsheet application between requests are picked up.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"regdesk/internal/spreadsheet"
	"regdesk/pkg/platform/sentinel"
)

// Client opens workbooks from a directory.
type Client struct {
	dir    string
	create bool
	header []string
	mu     sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithCreate makes Open and Worksheet create missing workbooks and worksheets,
// seeding new worksheets with header.
func WithCreate(header []string) Option {
	return func(c *Client) {
		c.create = true
		c.header = append([]string(nil), header...)
	}
}

// NewClient returns a client rooted at dir.
func NewClient(dir string, opts ...Option) *Client {
	c := &Client{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the workbook path for a spreadsheet name.
func (c *Client) Path(name string) string {
	return filepath.Join(c.dir, name+".xlsx")
}

func (c *Client) Open(_ context.Context, name string) (spreadsheet.Spreadsheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.Path(name)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat workbook %s: %w", path, err)
		}
		if !c.create {
			return nil, fmt.Errorf("workbook %s: %w", path, sentinel.ErrNotFound)
		}
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workbook dir: %w", err)
		}
		f := excelize.NewFile()
		defer func() { _ = f.Close() }()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
	}
	return &Workbook{client: c, path: path}, nil
}

// Workbook is one .xlsx file.
type Workbook struct {
	client *Client
	path   string
}

func (w *Workbook) Worksheet(_ context.Context, title string) (spreadsheet.Worksheet, error) {
	err := w.withFile(func(f *excelize.File) (bool, error) {
		idx, err := f.GetSheetIndex(title)
		if err != nil {
			return false, err
		}
		if idx >= 0 {
			return false, nil
		}
		if !w.client.create {
			return false, fmt.Errorf("worksheet %q: %w", title, sentinel.ErrNotFound)
		}
		if _, err := f.NewSheet(title); err != nil {
			return false, err
		}
		if len(w.client.header) > 0 {
			if err := f.SetSheetRow(title, "A1", toCells(w.client.header)); err != nil {
				return false, err
			}
		}
		// A fresh workbook carries an unused default sheet.
		if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 && title != "Sheet1" && len(f.GetSheetList()) > 1 {
			if rows, _ := f.GetRows("Sheet1"); len(rows) == 0 {
				if err := f.DeleteSheet("Sheet1"); err != nil {
					return false, err
				}
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &Sheet{book: w, title: title}, nil
}

// withFile opens the workbook, runs fn and saves when fn reports a change.
func (w *Workbook) withFile(fn func(f *excelize.File) (bool, error)) error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	defer func() { _ = f.Close() }()
	changed, err := fn(f)
	if err != nil {
		return err
	}
	if changed {
		if err := f.Save(); err != nil {
			return fmt.Errorf("save workbook %s: %w", w.path, err)
		}
	}
	return nil
}

// Sheet is a worksheet inside a workbook file.
type Sheet struct {
	book  *Workbook
	title string
}

func (s *Sheet) Title() string {
	return s.title
}

func (s *Sheet) Rows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows [][]string
	err := s.book.withFile(func(f *excelize.File) (bool, error) {
		var err error
		rows, err = f.GetRows(s.title)
		return false, err
	})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", s.title, err)
	}
	return rows, nil
}

func (s *Sheet) AppendRow(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.book.withFile(func(f *excelize.File) (bool, error) {
		rows, err := f.GetRows(s.title)
		if err != nil {
			return false, err
		}
		cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
		if err != nil {
			return false, err
		}
		if err := f.SetSheetRow(s.title, cell, toCells(row)); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Sheet) Update(ctx context.Context, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.book.withFile(func(f *excelize.File) (bool, error) {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return false, err
			}
			if err := f.SetSheetRow(s.title, cell, toCells(row)); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func (s *Sheet) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.book.withFile(func(f *excelize.File) (bool, error) {
		rows, err := f.GetRows(s.title)
		if err != nil {
			return false, err
		}
		// Removing from the bottom avoids shifting the remaining rows.
		for r := len(rows); r >= 1; r-- {
			if err := f.RemoveRow(s.title, r); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// toCells stores every value as a string cell so contacts keep leading zeros.
func toCells(row []string) *[]any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return &cells
}
