package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// UniqueViolation reports whether err is a unique constraint failure from any
// supported driver. The returned detail names the violated constraint (Postgres)
// or carries the driver message (SQLite), e.g. "UNIQUE constraint failed: users.email".
func UniqueViolation(err error) (detail string, ok bool) {
	if err == nil {
		return "", false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")) {
			return liteErr.Error(), true
		}
	}
	return "", false
}
