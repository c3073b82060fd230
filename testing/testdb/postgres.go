package testdb

import (
	"context"
	"sync"
	"testing"
	"time"

	"rfid_tool_kiosk/config"
	"rfid_tool_kiosk/db"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var (
	sharedDSN  string
	sharedErr  error
	sharedOnce sync.Once
	sharedMu   sync.Mutex
)

// PostgresDSN starts (once per test binary) a postgres container, migrates it
// and empties the kiosk tables. Skipped in -short mode or without Docker.
//
// IMPORTANT: tests sharing the container must not run in parallel.
//
// Usage:
//
//	dsn := testdb.PostgresDSN(t)
//	a := testdb.OpenPostgres(t, dsn)
//	b := testdb.OpenPostgres(t, dsn) // a second "instance"
func PostgresDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	sharedOnce.Do(func() {
		ctx := context.Background()
		pg, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("kiosk"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			sharedErr = err
			return
		}
		sharedDSN, sharedErr = pg.ConnectionString(ctx, "sslmode=disable")
		if sharedErr != nil {
			return
		}

		conn, err := db.Open(config.DatabaseConfig{Driver: db.DriverPostgres, URL: sharedDSN}, zerolog.Nop())
		if err != nil {
			sharedErr = err
			return
		}
		sharedErr = db.Migrate(conn)
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, sharedErr)

	sharedMu.Lock()
	defer sharedMu.Unlock()
	conn := OpenPostgres(t, sharedDSN)
	require.NoError(t, conn.Exec("TRUNCATE transactions, tools, students RESTART IDENTITY CASCADE").Error)
	return sharedDSN
}

// OpenPostgres opens a separate connection pool on dsn, closed on cleanup.
func OpenPostgres(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{Driver: db.DriverPostgres, URL: dsn}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}
