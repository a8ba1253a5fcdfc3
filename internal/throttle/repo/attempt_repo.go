package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle/entity"
)

type AttemptRepo struct {
	db *sqlx.DB
}

func NewAttemptRepo(db *sqlx.DB) *AttemptRepo { return &AttemptRepo{db: db} }

func (r *AttemptRepo) Insert(ctx context.Context, a *entity.LoginAttempt) error {
	q := r.db.Rebind(`INSERT INTO login_attempts (id, identifier, success, ip_address, user_agent, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Identifier, a.Success, a.IPAddress, a.UserAgent, a.AttemptedAt)
	return err
}

// CountFailuresSince counts failed attempts after since that share the ip OR the identifier.
func (r *AttemptRepo) CountFailuresSince(ctx context.Context, ip, identifier string, since time.Time) (int, error) {
	q := r.db.Rebind(`SELECT COUNT(*) FROM login_attempts
		WHERE (ip_address = ? OR identifier = ?) AND success = ? AND attempted_at > ?`)
	var n int
	if err := r.db.GetContext(ctx, &n, q, ip, identifier, false, since); err != nil {
		return 0, err
	}
	return n, nil
}

// ListRecent returns the newest attempts first.
func (r *AttemptRepo) ListRecent(ctx context.Context, limit int) ([]entity.LoginAttempt, error) {
	q := r.db.Rebind(`SELECT id, identifier, success, ip_address, user_agent, attempted_at
		FROM login_attempts ORDER BY attempted_at DESC, id DESC LIMIT ?`)
	out := []entity.LoginAttempt{}
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}
