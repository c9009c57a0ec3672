package app

import (
	"context"
	"fmt"
	"log/slog"

	"regdesk/internal/platform/config"
	"regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet"
	"regdesk/internal/spreadsheet/google"
	"regdesk/internal/spreadsheet/memory"
	"regdesk/internal/spreadsheet/xlsx"
)

// Worksheets are the opened, retry-decorated worksheets of the roster.
type Worksheets struct {
	Registration spreadsheet.Worksheet
	Sources      []spreadsheet.Worksheet
}

// OpenClient authenticates against the configured backend. The memory backend
// starts with every source worksheet holding only the header row.
func OpenClient(ctx context.Context, cfg config.Sheets) (spreadsheet.Client, error) {
	switch cfg.Backend {
	case config.BackendGoogle:
		var opts []google.Option
		if cfg.SpreadsheetID != "" {
			opts = append(opts, google.WithSpreadsheetID(cfg.SpreadsheetID))
		}
		return google.NewClient(ctx, cfg.CredentialsFile, opts...)
	case config.BackendMemory:
		client := memory.NewClient()
		book := client.Add(cfg.Name)
		for _, title := range cfg.SourceWorksheets {
			book.AddSheet(title, [][]string{models.Schema})
		}
		return client, nil
	case config.BackendXLSX:
		var opts []xlsx.Option
		if cfg.XLSXCreate {
			opts = append(opts, xlsx.WithCreate(models.Schema))
		}
		return xlsx.NewClient(cfg.XLSXDir, opts...), nil
	default:
		return nil, fmt.Errorf("unknown spreadsheet backend %q", cfg.Backend)
	}
}

// OpenWorksheets opens the spreadsheet and every source worksheet, wrapping
// each in the rate-limit retry policy.
func OpenWorksheets(ctx context.Context, client spreadsheet.Client, cfg config.Sheets, observer spreadsheet.RetryObserver, logger *slog.Logger) (*Worksheets, error) {
	book, err := client.Open(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %q: %w", cfg.Name, err)
	}
	policy := spreadsheet.RetryPolicy{
		Attempts: cfg.RetryAttempts,
		Backoff:  cfg.RetryBackoff,
		Logger:   logger,
		Observer: observer,
	}

	out := &Worksheets{}
	for _, title := range cfg.SourceWorksheets {
		ws, err := book.Worksheet(ctx, title)
		if err != nil {
			return nil, fmt.Errorf("open worksheet %q: %w", title, err)
		}
		ws = spreadsheet.WithRetry(ws, policy)
		out.Sources = append(out.Sources, ws)
		if title == cfg.RegistrationWorksheet {
			out.Registration = ws
		}
	}
	if out.Registration == nil {
		return nil, fmt.Errorf("registration worksheet %q is not a source worksheet", cfg.RegistrationWorksheet)
	}
	return out, nil
}
