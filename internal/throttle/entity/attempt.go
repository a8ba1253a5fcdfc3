package entity

import "time"

// LoginAttempt is one row of `login_attempts`. Every sign-in try is recorded,
// including the ones refused by the throttle.
type LoginAttempt struct {
	ID          string    `db:"id" json:"id"`
	Identifier  string    `db:"identifier" json:"identifier"`
	Success     bool      `db:"success" json:"success"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	UserAgent   string    `db:"user_agent" json:"user_agent"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
}
