package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/nurture/internal/clock"
	"github.com/smallbiznis/nurture/internal/config"
	"github.com/smallbiznis/nurture/internal/migration"
	"github.com/smallbiznis/nurture/internal/observability"
	"github.com/smallbiznis/nurture/internal/server"
	"github.com/smallbiznis/nurture/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				config.Module,
				observability.Module,
				fx.Provide(RegisterSnowflake),
				fx.Provide(clock.System),
				db.Module,
				migration.Module,
				server.Module,
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
