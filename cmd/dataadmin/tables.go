package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataadmin/internal/dataapi"
)

// tableCountConcurrency bounds the parallel row-count requests.
const tableCountConcurrency = 4

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the configured tables with their row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
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
		tables, counts, err := countTables(ctx, client)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLABEL\tROWS")
		for i, t := range tables {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Label, counts[i])
		}
		return tw.Flush()
	},
}

type tableLister interface {
	ListTables(ctx context.Context) ([]dataapi.TableDescriptor, error)
	FetchRows(ctx context.Context, table string, page, perPage int) (*dataapi.RowsPage, error)
}

// countTables lists the tables and fetches each one's total from a
// one-row page, a few at a time.
func countTables(ctx context.Context, api tableLister) ([]dataapi.TableDescriptor, []int, error) {
	tables, err := api.ListTables(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}

	counts := make([]int, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tableCountConcurrency)
	for i, t := range tables {
		g.Go(func() error {
			page, err := api.FetchRows(gctx, t.ID, 1, 1)
			if err != nil {
				return fmt.Errorf("count %s: %w", t.ID, err)
			}
			counts[i] = page.Total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tables, counts, nil
}
