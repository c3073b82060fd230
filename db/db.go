package db

import (
	"fmt"
	"strings"
	"time"

	"rfid_tool_kiosk/config"
	"rfid_tool_kiosk/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to postgres or sqlite depending on cfg.Driver. Query logs go
// to log.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: NewGormLogger(log)}

	switch cfg.Driver {
	case DriverPostgres:
		conn, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		return conn, nil
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// OpenSQLite opens a sqlite database with foreign keys on. sqlite has a
// single writer, so the pool is pinned to one connection; a unit of work
// holds it until commit.
func OpenSQLite(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(withSQLiteParams(dsn)), &gorm.Config{
		Logger: NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return conn, nil
}

func withSQLiteParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Student{}, &models.Tool{}, &models.Transaction{}); err != nil {
		return err
	}

	// at most one open transaction per tool
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS ux_%s_one_open_per_tool
	  ON %s (tool_id)
	  WHERE status = '%s';
	`, models.TransactionTable, models.TransactionTable, models.TxBorrowed)).Error; err != nil {
		return err
	}

	return nil
}

// Dialect reports which driver a *gorm.DB was opened with.
func Dialect(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return DriverPostgres
	}
	return DriverSQLite
}
