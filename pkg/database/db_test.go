package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := Open(Config{Driver: DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertUser(ctx context.Context, db sqlx.ExtContext, username, role string) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO users (username, name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, 'x', ?, ?, ?)`), username, username, username+"@example.com", role, now, now)
	return err
}

func TestConnect_RejectsUnknownDriver(t *testing.T) {
	_, err := Connect(Config{Driver: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, EnsureSchema(ctx, db))
	require.NoError(t, EnsureSchema(ctx, db))

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestEnsureSchema_SingleSuperAdmin(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))

	require.NoError(t, insertUser(ctx, db, "root", "super_admin"))
	require.NoError(t, insertUser(ctx, db, "a1", "admin"))
	require.NoError(t, insertUser(ctx, db, "a2", "admin"))

	assert.Error(t, insertUser(ctx, db, "root2", "super_admin"))
}

func TestUniqueViolation(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	require.NoError(t, insertUser(ctx, db, "jane", "admin"))

	err := insertUser(ctx, db, "jane", "admin")
	detail, ok := UniqueViolation(err)
	require.True(t, ok, "%v", err)
	assert.Contains(t, detail, "UNIQUE")

	_, ok = UniqueViolation(errors.New("unique but not a driver error"))
	assert.False(t, ok)
	_, ok = UniqueViolation(nil)
	assert.False(t, ok)
}

func TestWithTx(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		require.NoError(t, insertUser(ctx, tx, "rolled", "admin"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
		return insertUser(ctx, tx, "kept", "admin")
	})
	require.NoError(t, err)

	var names []string
	require.NoError(t, db.SelectContext(ctx, &names, `SELECT username FROM users ORDER BY username`))
	assert.Equal(t, []string{"kept"}, names)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, `'UTC'`, quoteLiteral("UTC"))
	assert.Equal(t, `'it''s'`, quoteLiteral("it's"))
}
