package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fatflowers/coiffeur/internal/models"
	cfgpkg "github.com/fatflowers/coiffeur/pkg/config"
	gormzap "github.com/fatflowers/coiffeur/pkg/gormlog"
)

// pendingRequestIndex keeps at most one pending subscription request per user.
const pendingRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_subscription_request_pending_user ` +
	`ON subscription_request (user_id) WHERE status = 'pending'`

func dialector(cfg cfgpkg.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case cfgpkg.DBDriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case cfgpkg.DBDriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case cfgpkg.DBDriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	d, err := dialector(cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormzap.New(l, cfg.Database.SlowThreshold),
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	if cfg.Database.Driver == cfgpkg.DBDriverSQLite {
		// one writer, and an in-memory database lives on a single connection
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	l.Infow("connected to database", "driver", cfg.Database.Driver)
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// Migrate creates or updates every table plus the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Salon{},
		&models.SubscriptionRequest{},
		&models.Notification{},
		&models.SubscriptionLog{},
		&models.SubscriptionDailySnapshot{},
	); err != nil {
		return err
	}
	switch db.Dialector.Name() {
	case "postgres", "sqlite":
		return db.Exec(pendingRequestIndex).Error
	}
	return nil
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	if name := db.Dialector.Name(); name != "postgres" && name != "sqlite" {
		l.Warnw("partial unique index unsupported, pending requests are guarded by the service only", "dialect", name)
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing database connection pool")
			return sqlDB.Close()
		},
	})
}
