package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignite/lgl-sync/internal/service/emailgate"
)

func newBlockingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocking",
		Short: "Inspect and control outgoing email blocking",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether email is being blocked",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			st, err := b.blocking.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		}),
	}

	pause := &cobra.Command{
		Use:   "pause",
		Short: "Let email through for a number of minutes",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			minutes, err := cmd.Flags().GetInt("minutes")
			if err != nil {
				return err
			}
			d, err := emailgate.PauseMinutes(minutes)
			if err != nil {
				return err
			}
			until, err := b.blocking.Pause(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocking paused until %s\n", until.Format(time.RFC3339))
			return nil
		}),
	}
	pause.Flags().Int("minutes", 15, "Pause length in minutes")

	resume := &cobra.Command{
		Use:   "resume",
		Short: "End a pause early",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			if err := b.blocking.Resume(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Blocking resumed")
			return nil
		}),
	}

	force := &cobra.Command{
		Use:       "force on|off",
		Short:     "Turn the force-blocking override on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, args []string) error {
			on := args[0] == "on"
			if err := b.blocking.SetForceBlocking(ctx, on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Force blocking %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(status, pause, resume, force)
	return cmd
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect the blocked email log",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "List blocked emails, newest first",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			entries, err := b.blocking.Log(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No blocked emails")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTO\tSUBJECT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.To, e.Subject)
			}
			return tw.Flush()
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the blocked email log",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			if err := b.blocking.ClearLog(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Blocked email log cleared")
			return nil
		}),
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func newWhitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Export or import addresses that are never blocked",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Print the whitelist, one address per line",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, _ []string) error {
			text, err := b.blocking.ExportWhitelist(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		}),
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the whitelist with the addresses in a file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, cmd *cobra.Command, b *backend, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			n, err := b.blocking.ImportWhitelist(ctx, string(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d addresses\n", n)
			return nil
		}),
	}

	cmd.AddCommand(export, imp)
	return cmd
}
