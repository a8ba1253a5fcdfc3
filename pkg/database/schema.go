package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// EnsureSchema creates the auth tables if they do not exist (idempotent).
// This is a convenience for early development; prefer migrations in production.
// Statements run one at a time because the pgx driver prepares each Exec.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := sqliteSchema
	if IsPostgres(db.DriverName()) {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'admin',
  is_active BOOLEAN NOT NULL DEFAULT true,
  email_verified BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  last_login TIMESTAMPTZ
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_super_admin ON users (role) WHERE role = 'super_admin'`,
	`CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  token_hash TEXT NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  expires_at TIMESTAMPTZ NOT NULL,
  last_accessed TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	`CREATE TABLE IF NOT EXISTS login_attempts (
  id VARCHAR(32) PRIMARY KEY,
  identifier TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  attempted_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_login_attempts_ip ON login_attempts (ip_address, attempted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_login_attempts_identifier ON login_attempts (identifier, attempted_at)`,
	`CREATE TABLE IF NOT EXISTS user_activity_log (
  id VARCHAR(32) PRIMARY KEY,
  user_id BIGINT NOT NULL,
  action TEXT NOT NULL,
  resource_type TEXT NOT NULL DEFAULT '',
  resource_id BIGINT,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_user_activity_log_created_at ON user_activity_log (created_at)`,
}

// sqlite only decodes DATETIME-declared columns back into time.Time.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'admin',
  is_active BOOLEAN NOT NULL DEFAULT 1,
  email_verified BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  last_login DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_super_admin ON users (role) WHERE role = 'super_admin'`,
	`CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  token_hash TEXT NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  expires_at DATETIME NOT NULL,
  last_accessed DATETIME NOT NULL,
  created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,
	`CREATE TABLE IF NOT EXISTS login_attempts (
  id TEXT PRIMARY KEY,
  identifier TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  attempted_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_login_attempts_ip ON login_attempts (ip_address, attempted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_login_attempts_identifier ON login_attempts (identifier, attempted_at)`,
	`CREATE TABLE IF NOT EXISTS user_activity_log (
  id TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  action TEXT NOT NULL,
  resource_type TEXT NOT NULL DEFAULT '',
  resource_id INTEGER,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_user_activity_log_created_at ON user_activity_log (created_at)`,
}
