package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect order sync records",
	}

	get := &cobra.Command{
		Use:   "get <order-id>",
		Short: "Show the sync record for an order",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, args []string) error {
			rec, err := b.sync.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sync records, newest first",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			records, total, err := b.sync.List(ctx, syncstatus.ListFilter{
				Status: domain.SyncStatus(status),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.OrderID, r.Status, r.SyncedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintf(out, "%d of %d records\n", len(records), total)
			return nil
		}),
	}
	list.Flags().String("status", "", "Filter by status (unsynced, partial, synced)")
	list.Flags().Int("limit", 50, "Maximum records to show")
	list.Flags().Int("offset", 0, "Records to skip")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count sync records by status",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			st, err := b.sync.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		}),
	}

	cmd.AddCommand(get, list, stats)
	return cmd
}
