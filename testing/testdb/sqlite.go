// Package testdb opens throwaway databases for tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"rfid_tool_kiosk/db"
	"rfid_tool_kiosk/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenSQLite returns a migrated in-memory database private to the test.
//
// Usage:
//
//	conn := testdb.OpenSQLite(t)
//	repo := db.NewRepo(conn, time.Second)
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Student inserts a student with derived nim/email/phone.
func Student(t *testing.T, repo *db.Repo, name, nim, uid string) *models.Student {
	t.Helper()
	s := &models.Student{
		Name:    name,
		NIM:     nim,
		Email:   strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Phone:   "081234567890",
		RFIDUID: uid,
	}
	require.NoError(t, repo.CreateStudent(context.Background(), s))
	return s
}

func Tool(t *testing.T, repo *db.Repo, name, uid string) *models.Tool {
	t.Helper()
	tool := &models.Tool{Name: name, RFIDUID: uid, Category: "Hand Tools"}
	require.NoError(t, repo.CreateTool(context.Background(), tool))
	return tool
}
