// Command dataadmin serves the data admin grid and offers a few maintenance
// commands against the same data API.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataadmin/internal/audit"
	"github.com/JonMunkholm/dataadmin/internal/config"
	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/dataapi"
	"github.com/JonMunkholm/dataadmin/internal/logging"
)

var version = "dev"

var flagEnvFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dataadmin",
	Short: "Data admin grid for the catalog tables",
	Long: `dataadmin serves a paginated, editable grid over the /api/data endpoints
of the catalog backend, and exposes maintenance commands that talk to the
same API.

Configuration comes from environment variables (see internal/config). A .env
file in the working directory is loaded first when present.

Examples:
  dataadmin serve                       # Start the web UI
  dataadmin tables                      # List tables with row counts
  dataadmin export cojines -f xlsx      # Write cojines.xlsx`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "load environment from this file instead of .env")
	rootCmd.AddCommand(serveCmd, tablesCmd, exportCmd)
}

// loadConfig loads the .env file, the configuration and the logger. The
// returned closer flushes the log file.
func loadConfig() (*config.Config, io.Closer, error) {
	// Overload: values in the file win over the inherited environment.
	var err error
	if flagEnvFile != "" {
		err = godotenv.Overload(flagEnvFile)
	} else {
		err = godotenv.Overload()
	}
	if err != nil && flagEnvFile != "" {
		return nil, nil, fmt.Errorf("load %s: %w", flagEnvFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	closer := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	slog.Debug("configuration loaded", "config", cfg.String())
	return cfg, closer, nil
}

// newClient builds the data API client shared by every session.
func newClient(cfg *config.Config) (*dataapi.Client, *dataapi.UploadLimiter, error) {
	uploads := dataapi.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	client, err := dataapi.NewClient(dataapi.Options{
		BaseURL:           cfg.API.URL,
		Token:             cfg.API.Token,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Uploads:           uploads,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, uploads, nil
}

// newRecorder picks the audit sink: PostgreSQL when a database is
// configured, the log otherwise, nothing when auditing is off.
func newRecorder(ctx context.Context, cfg *config.Config) (audit.Recorder, func(), error) {
	if !cfg.Audit.Enabled {
		return nil, func() {}, nil
	}
	if cfg.Audit.DatabaseURL == "" {
		return audit.LogRecorder{}, func() {}, nil
	}

	rec, err := audit.NewPostgresRecorder(ctx, audit.PostgresConfig{
		URL:             cfg.Audit.DatabaseURL,
		MaxConns:        cfg.Audit.MaxConns,
		MaxConnLifetime: cfg.Audit.MaxConnLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("audit entries stored in postgres")
	return rec, rec.Close, nil
}

// controllerOptions maps the grid configuration onto a controller.
func controllerOptions(cfg *config.Config, rec audit.Recorder) core.Options {
	return core.Options{
		PerPage:           cfg.Grid.PerPage,
		PerPageOptions:    cfg.Grid.PerPageOptions,
		LongTextThreshold: cfg.Grid.LongTextThreshold,
		Audit:             rec,
	}
}
