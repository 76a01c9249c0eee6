package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	client, uploads, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("create data API client: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	rec, closeAudit, err := newRecorder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer closeAudit()

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"api", cfg.API.URL,
		"per_page", cfg.Grid.PerPage,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"audit_enabled", cfg.Audit.Enabled,
	)

	opts := controllerOptions(cfg, rec)
	server := web.NewServer(cfg, func() *core.Controller {
		return core.NewController(client, opts)
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for uploads to the data API to finish (with timeout)
		if active := uploads.ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active, "free_slots", uploads.Available())
			if err := uploads.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
