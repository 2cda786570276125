package main

import (
	"fmt"

	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/migration"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			conn, err := db.New(nil, cfg, log)
			if err != nil {
				return err
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if status {
				if cfg.DBType != "postgres" {
					return fmt.Errorf("migration status is tracked for postgres only, got %s", cfg.DBType)
				}
				version, dirty, err := migration.Version(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}

			return migration.Run(conn, cfg.DBType, log)
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print the applied migration version and exit")
	return cmd
}
