package db

import (
	"strings"
	"time"

	"github.com/yungbote/coursecommerce-backend/internal/platform/envutil"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string

	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	SQLitePath string

	MaxOpenConns  int
	MaxIdleConns  int
	SlowThreshold time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Driver:        strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres, log)),
		Host:          envutil.String("POSTGRES_HOST", "localhost", log),
		Port:          envutil.String("POSTGRES_PORT", "5432", log),
		User:          envutil.String("POSTGRES_USER", "postgres", log),
		Password:      envutil.String("POSTGRES_PASSWORD", "", log),
		Name:          envutil.String("POSTGRES_NAME", "coursecommerce", log),
		SSLMode:       envutil.String("POSTGRES_SSLMODE", "disable", log),
		SQLitePath:    envutil.String("SQLITE_PATH", "coursecommerce.db", log),
		MaxOpenConns:  envutil.Int("DB_MAX_OPEN_CONNS", 20, log),
		MaxIdleConns:  envutil.Int("DB_MAX_IDLE_CONNS", 5, log),
		SlowThreshold: envutil.Duration("DB_SLOW_QUERY_THRESHOLD", time.Second, log),
	}
}
