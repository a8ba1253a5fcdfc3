package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity/entity"
)

type ActivityRepo struct {
	db *sqlx.DB
}

func NewActivityRepo(db *sqlx.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Insert(ctx context.Context, e *entity.Entry) error {
	q := r.db.Rebind(`INSERT INTO user_activity_log (id, user_id, action, resource_type, resource_id, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.UserID, string(e.Action), e.ResourceType, e.ResourceID, e.IPAddress, e.UserAgent, e.CreatedAt)
	return err
}

// ListRecent returns the newest entries first, with the actor's username and name.
func (r *ActivityRepo) ListRecent(ctx context.Context, limit int) ([]entity.EntryView, error) {
	q := r.db.Rebind(`SELECT l.id, l.user_id, l.action, l.resource_type, l.resource_id,
			l.ip_address, l.user_agent, l.created_at, u.username, u.name
		FROM user_activity_log l
		LEFT JOIN users u ON u.id = l.user_id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ?`)
	out := []entity.EntryView{}
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}
