package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/gosuda/gofer/internal/config"
	"github.com/gosuda/gofer/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Store != config.StorePostgres {
			return fmt.Errorf("migrate: GOFER_STORE=%s has no schema", cfg.Store)
		}
		if cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("migrate: database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		store, err := postgres.New(cmd.Context(), cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if err != nil {
			return err
		}
		defer store.Close()

		applied, err := store.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	},
}
