package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// OpenSQLite opens a file-backed database for local runs. SQLite serializes
// writers, so the pool is pinned to a single connection.
func OpenSQLite(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		return nil, fmt.Errorf("missing SQLITE_PATH")
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(logg, cfg.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	logg.With("service", "SQLite").Info("opened", "path", path)
	return db, nil
}

// Open connects with the configured driver.
func Open(logg *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		pg, err := NewPostgresService(logg, cfg)
		if err != nil {
			return nil, err
		}
		return pg.DB(), nil
	case DriverSQLite:
		return OpenSQLite(logg, cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}
