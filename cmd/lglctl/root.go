package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ignite/lgl-sync/internal/api"
	"github.com/ignite/lgl-sync/internal/app"
	"github.com/ignite/lgl-sync/internal/config"
)

// backend is what the commands operate on.
type backend struct {
	blocking api.BlockingControl
	renewals api.RenewalService
	sync     api.SyncReader
}

// loadBackend builds the backend from the --config flag. Tests replace it.
var loadBackend = func(cmd *cobra.Command) (*backend, func(), error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return &backend{blocking: a.Gate, renewals: a.Renewals, sync: a.Sync}, a.Close, nil
}

// withBackend runs fn against a freshly loaded backend.
func withBackend(fn func(ctx context.Context, cmd *cobra.Command, b *backend, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		b, closeFn, err := loadBackend(cmd)
		if err != nil {
			return err
		}
		if closeFn != nil {
			defer closeFn()
		}
		return fn(cmd.Context(), cmd, b, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lglctl",
		Short:         "Operate the LGL order sync and renewal reminder service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().String("config", "config/config.yaml", "Path to configuration file")

	root.AddCommand(newBlockingCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newWhitelistCmd())
	root.AddCommand(newRenewalsCmd())
	root.AddCommand(newSyncCmd())
	return root
}
