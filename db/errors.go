package db

import (
	"errors"
	"strings"

	"rfid_tool_kiosk/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// translate maps driver errors onto the apperr taxonomy. Errors that are
// already classified pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return apperr.Duplicate(fieldFromConstraint(pgErr.ConstraintName), err)
		case "23503":
			return apperr.Wrap(apperr.NotFound, "referenced record not found", err)
		case "55P03", "40001", "40P01":
			return apperr.Wrap(apperr.Busy, "record is locked, retry", err)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrConstraint:
			msg := liteErr.Error()
			if strings.Contains(msg, "FOREIGN KEY") {
				return apperr.Wrap(apperr.NotFound, "referenced record not found", err)
			}
			if strings.Contains(msg, "UNIQUE") {
				return apperr.Duplicate(fieldFromSQLite(msg), err)
			}
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return apperr.Wrap(apperr.Busy, "database is busy, retry", err)
		}
	}
	return err
}

// ux_students_nim -> nim, ux_transactions_one_open_per_tool -> tool_id
func fieldFromConstraint(name string) string {
	switch {
	case strings.HasSuffix(name, "_one_open_per_tool"):
		return "tool_id"
	case strings.HasSuffix(name, "_rfid_uid"):
		return "rfid_uid"
	case strings.HasSuffix(name, "_nim"):
		return "nim"
	}
	return name
}

// "UNIQUE constraint failed: students.nim" -> nim
func fieldFromSQLite(msg string) string {
	i := strings.LastIndex(msg, ":")
	if i < 0 {
		return ""
	}
	cols := strings.TrimSpace(msg[i+1:])
	if j := strings.Index(cols, ","); j >= 0 {
		cols = cols[:j]
	}
	if k := strings.LastIndex(cols, "."); k >= 0 {
		return cols[k+1:]
	}
	return cols
}
