package migration

import (
	"strings"

	pkgdb "github.com/smallbiznis/quoteflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg pkgdb.Config, log *zap.Logger) error {
		dbType := strings.ToLower(strings.TrimSpace(cfg.Type))
		if dbType != pkgdb.TypePostgres && dbType != "" {
			log.Info("applying schema with gorm automigrate", zap.String("type", dbType))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
