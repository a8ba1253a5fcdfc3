package entity

import (
	"time"

	userentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
)

// Session is a row of the `sessions` table. ID doubles as the cookie value.
type Session struct {
	ID           string    `db:"id" json:"-"`
	UserID       int64     `db:"user_id" json:"user_id"`
	TokenHash    string    `db:"token_hash" json:"-"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	LastAccessed time.Time `db:"last_accessed" json:"last_accessed"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Principal is the validated identity behind a request: the live session and
// its user, without any hashes.
type Principal struct {
	SessionID string          `json:"-"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      userentity.User `json:"user"`
}

// UserID is shorthand for p.User.ID.
func (p *Principal) UserID() int64 { return p.User.ID }

// Role is shorthand for p.User.Role.
func (p *Principal) Role() userentity.Role { return p.User.Role }
