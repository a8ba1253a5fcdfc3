// Package testutil holds fixtures shared by package tests: an embedded SQLite
// database with the production schema, a fake clock and user rows.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
)

// Epoch is the fixed start time of every fake clock.
var Epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB opens a fresh SQLite file under t.TempDir with the schema applied.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: dsn, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.EnsureSchema(context.Background(), db))
	return db
}

// NewClock returns a fake clock frozen at Epoch.
func NewClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(Epoch)
}

// UserFixture describes a user row to insert. Zero Role means admin.
type UserFixture struct {
	Username string
	Name     string
	Email    string
	Password string
	Role     entity.Role
	Inactive bool
}

// InsertUser writes a user row directly, hashing Password at bcrypt.MinCost.
func InsertUser(t *testing.T, db *sqlx.DB, f UserFixture) entity.User {
	t.Helper()
	if f.Role == "" {
		f.Role = entity.RoleAdmin
	}
	if f.Name == "" {
		f.Name = f.Username
	}
	if f.Email == "" {
		f.Email = f.Username + "@example.com"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := entity.User{
		Username:     f.Username,
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: string(hash),
		Role:         f.Role,
		IsActive:     !f.Inactive,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
	q := db.Rebind(`INSERT INTO users (username, name, email, password_hash, role, is_active, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	require.NoError(t, db.QueryRowxContext(context.Background(), q,
		u.Username, u.Name, u.Email, u.PasswordHash, string(u.Role), u.IsActive, false, u.CreatedAt, u.UpdatedAt).Scan(&u.ID))
	return u
}

// CountSessions returns how many session rows userID holds, expired or not.
func CountSessions(t *testing.T, db *sqlx.DB, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, db.Rebind(`SELECT COUNT(*) FROM sessions WHERE user_id = ?`), userID))
	return n
}

// StoredHash reads the password hash currently stored for userID.
func StoredHash(t *testing.T, db *sqlx.DB, userID int64) string {
	t.Helper()
	var hash string
	require.NoError(t, db.GetContext(context.Background(), &hash, db.Rebind(`SELECT password_hash FROM users WHERE id = ?`), userID))
	return hash
}
