package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Peer-Ride/peer-ride-functions/internal/config"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/audit"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply audit log migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DB.DSN == "" {
				return errors.New("PEERRIDE_DB_DSN is not set")
			}
			if err := audit.Migrate(cmd.Context(), cfg.DB.DSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
