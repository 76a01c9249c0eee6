package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataadmin/internal/core"
)

var (
	flagExportFormat string
	flagExportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Export a table to CSV or Excel",
	Long: `Export a table through the same path as the grid's export buttons.

The file is named after the table unless -o is given; "-o -" writes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logCloser, err := loadConfig()
		if err != nil {
			return err
		}
		defer logCloser.Close()

		client, _, err := newClient(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctrl := core.NewController(client, controllerOptions(cfg, nil))
		return runExport(ctx, ctrl, args[0], flagExportFormat, flagExportOutput, cmd.OutOrStdout())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "output file (default <table>.<format>)")
}

// runExport selects table on ctrl and writes its export to output.
func runExport(ctx context.Context, ctrl *core.Controller, table, format, output string, stdout io.Writer) error {
	format = strings.ToLower(format)
	write := ctrl.ExportCSV
	switch format {
	case "csv":
	case "xlsx":
		write = ctrl.ExportXLSX
	default:
		return fmt.Errorf("unknown format %q (want csv or xlsx)", format)
	}

	if err := ctrl.LoadTables(ctx); err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	if err := ctrl.SelectTable(ctx, table); err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}

	if output == "-" {
		return write(ctx, stdout)
	}
	if output == "" {
		output = core.ExportFilename(table, format)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := write(ctx, f); err != nil {
		f.Close()
		os.Remove(output)
		return fmt.Errorf("export %s: %w", table, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("export written", "table", table, "file", output)
	return nil
}
