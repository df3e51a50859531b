package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRenewalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renewals",
		Short: "Membership renewal reminders",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count members by who manages their renewal",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			st, err := b.renewals.Statistics(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		}),
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a reminder pass now",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			report, err := b.renewals.RunPass(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		}),
	}

	cmd.AddCommand(stats, run)
	return cmd
}
