package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"regdesk/internal/app"
	"regdesk/internal/platform/config"
	"regdesk/internal/platform/logger"
)

// openFunc builds the wired services; tests swap in an in-memory roster.
type openFunc func(ctx context.Context) (*app.App, error)

func openFromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "rosterctl",
		Short: "Inspect and confirm the registration roster from the command line",
		Long: `rosterctl reads the same spreadsheet as the registration server.

Configuration comes from the server's environment variables
(SPREADSHEET_BACKEND, SPREADSHEET_NAME, SOURCE_WORKSHEETS, ...).

Examples:
  rosterctl summary
  rosterctl search --region Volta --field Name "kofi"
  rosterctl confirm national_wk:2 manual_wk:5
  rosterctl export --out roster.xlsx`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newSummaryCmd(open),
		newSearchCmd(open),
		newConfirmCmd(open),
		newExportCmd(open),
	)
	return root
}

// withApp opens the services for one command and releases them afterwards.
func withApp(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("failed to release resources", "error", err)
		}
	}()
	return fn(ctx, a)
}
