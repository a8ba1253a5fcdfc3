package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	userentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
)

// SessionRepo persists server-side sessions in the `sessions` table.
type SessionRepo struct {
	db sqlx.ExtContext
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// WithTx returns a repo bound to tx.
func (r *SessionRepo) WithTx(tx *sqlx.Tx) *SessionRepo {
	return &SessionRepo{db: tx}
}

func (r *SessionRepo) Insert(ctx context.Context, s *entity.Session) error {
	q := r.db.Rebind(`INSERT INTO sessions (id, user_id, token_hash, ip_address, user_agent, expires_at, last_accessed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, s.ID, s.UserID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt, s.LastAccessed, s.CreatedAt)
	return err
}

// SessionUser is a live session joined with its owner. Password hashes are
// never selected.
type SessionUser struct {
	SessionID    string    `db:"session_id"`
	TokenHash    string    `db:"token_hash"`
	ExpiresAt    time.Time `db:"expires_at"`
	LastAccessed time.Time `db:"last_accessed"`
	userentity.User
}

// GetLive returns the session with id whose expires_at is after now, or sql.ErrNoRows.
func (r *SessionRepo) GetLive(ctx context.Context, id string, now time.Time) (*SessionUser, error) {
	q := r.db.Rebind(`SELECT s.id AS session_id, s.token_hash, s.expires_at, s.last_accessed,
			u.id, u.username, u.name, u.email, u.role, u.is_active, u.email_verified,
			u.created_at, u.updated_at, u.last_login
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ? AND s.expires_at > ?`)
	var row SessionUser
	if err := sqlx.GetContext(ctx, r.db, &row, q, id, now); err != nil {
		return nil, err
	}
	return &row, nil
}

// Touch slides the expiry. Returns rows affected.
func (r *SessionRepo) Touch(ctx context.Context, id string, expiresAt, now time.Time) (int64, error) {
	q := r.db.Rebind(`UPDATE sessions SET expires_at = ?, last_accessed = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, expiresAt, now, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByUser removes every session of userID.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions whose expires_at is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
