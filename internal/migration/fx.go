package migration

import (
	"github.com/smallbiznis/nurture/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply brings the schema up to date when DATABASE_AUTO_MIGRATE is set.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		return nil
	}
	return Run(conn, cfg.DBType, log)
}

// Run applies the SQL migrations on postgres and gorm auto migration elsewhere.
func Run(conn *gorm.DB, dialect string, log *zap.Logger) error {
	log = log.Named("migration")

	if dialect != "postgres" {
		log.Info("applying gorm auto migration", zap.String("dialect", dialect))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("database migrations applied")
	return nil
}
