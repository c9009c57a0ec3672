package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"regdesk/internal/app"
	"regdesk/internal/platform/config"
	"regdesk/internal/platform/httpserver"
	"regdesk/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err, "backend", cfg.Sheets.Backend)
		os.Exit(1)
	}
	log.Info("connected to spreadsheet",
		"backend", cfg.Sheets.Backend,
		"spreadsheet", cfg.Sheets.Name,
		"sources", cfg.Sheets.SourceWorksheets,
	)
	if cfg.Admin.Token == "" && cfg.Admin.PasswordHash == "" {
		log.Warn("no admin credentials configured; the dashboard is unreachable")
	}

	srv := httpserver.New(cfg.Addr, a.Router())
	runErr := httpserver.Run(ctx, srv, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("failed to release resources", "error", err)
	}
	if runErr != nil {
		log.Error("server error", "error", runErr)
		os.Exit(1)
	}
}
