// Package google implements the spreadsheet collaborator on Google Sheets. A
// spreadsheet is opened by name through a Drive search (or directly by ID), and
// worksheets are addressed by tab title.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"regdesk/internal/spreadsheet"
	"regdesk/pkg/platform/sentinel"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Client talks to the Sheets and Drive APIs with service-account credentials.
type Client struct {
	sheets        *sheets.Service
	drive         *drive.Service
	spreadsheetID string
}

// Option configures a Client.
type Option func(*Client)

// WithSpreadsheetID skips the Drive name lookup and always opens this ID.
func WithSpreadsheetID(id string) Option {
	return func(c *Client) {
		c.spreadsheetID = id
	}
}

// NewClient authenticates with the credentials file. This is the credential
// provider: any error here means the process cannot reach its system of record.
func NewClient(ctx context.Context, credentialsFile string, opts ...Option) (*Client, error) {
	clientOpts := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveReadonlyScope),
	}
	sheetsSvc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	c := &Client{sheets: sheetsSvc, drive: driveSvc}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Open(ctx context.Context, name string) (spreadsheet.Spreadsheet, error) {
	id := c.spreadsheetID
	if id == "" {
		q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
		list, err := c.drive.Files.List().
			Q(q).
			Fields("files(id, name)").
			PageSize(1).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("find spreadsheet %q: %w", name, translate(err))
		}
		if len(list.Files) == 0 {
			return nil, fmt.Errorf("spreadsheet %q: %w", name, sentinel.ErrNotFound)
		}
		id = list.Files[0].Id
	}
	return &Spreadsheet{svc: c.sheets, id: id}, nil
}

// Spreadsheet is one Google Sheets document.
type Spreadsheet struct {
	svc *sheets.Service
	id  string
}

func (s *Spreadsheet) Worksheet(ctx context.Context, title string) (spreadsheet.Worksheet, error) {
	doc, err := s.svc.Spreadsheets.Get(s.id).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", s.id, translate(err))
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return &Worksheet{svc: s.svc, spreadsheetID: s.id, title: title}, nil
		}
	}
	return nil, fmt.Errorf("worksheet %q: %w", title, sentinel.ErrNotFound)
}

// Worksheet is one tab of a Google Sheets document.
type Worksheet struct {
	svc           *sheets.Service
	spreadsheetID string
	title         string
}

func (w *Worksheet) Title() string {
	return w.title
}

func (w *Worksheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, a1(w.title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", w.title, translate(err))
	}
	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = fmt.Sprint(cell)
		}
	}
	return rows, nil
}

func (w *Worksheet) AppendRow(ctx context.Context, row []string) error {
	_, err := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, a1(w.title), &sheets.ValueRange{
		Values: [][]any{toCells(row)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to worksheet %q: %w", w.title, translate(err))
	}
	return nil
}

func (w *Worksheet) Update(ctx context.Context, rows [][]string) error {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = toCells(row)
	}
	_, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, a1(w.title)+"!A1", &sheets.ValueRange{
		Values: values,
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update worksheet %q: %w", w.title, translate(err))
	}
	return nil
}

func (w *Worksheet) Clear(ctx context.Context) error {
	_, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, a1(w.title), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("clear worksheet %q: %w", w.title, translate(err))
	}
	return nil
}

// translate maps Google API status codes onto infrastructure sentinels while
// keeping the original error in the chain.
func translate(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusTooManyRequests:
		return errors.Join(sentinel.ErrRateLimited, err)
	case http.StatusNotFound:
		return errors.Join(sentinel.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Join(sentinel.ErrUnauthorized, err)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return errors.Join(sentinel.ErrUnavailable, err)
	default:
		return err
	}
}

// a1 quotes a worksheet title for A1 notation.
func a1(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
