package entity

import "time"

// Action names an audited operation.
type Action string

const (
	ActionLogin                         Action = "LOGIN"
	ActionLogout                        Action = "LOGOUT"
	ActionChangeUsername                Action = "CHANGE_USERNAME"
	ActionChangeCredentialsWithPassword Action = "CHANGE_CREDENTIALS_WITH_PASSWORD"
	ActionCreateAdmin                   Action = "CREATE_ADMIN"
	ActionUpdateAdmin                   Action = "UPDATE_ADMIN"
)

// Resource types referenced by entries.
const (
	ResourceAuth = "auth"
	ResourceUser = "user"
)

// Entry is one append-only row of `user_activity_log`.
type Entry struct {
	ID           string    `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	Action       Action    `db:"action" json:"action"`
	ResourceType string    `db:"resource_type" json:"resource_type"`
	ResourceID   *int64    `db:"resource_id" json:"resource_id"`
	IPAddress    string    `db:"ip_address" json:"ip_address"`
	UserAgent    string    `db:"user_agent" json:"user_agent"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EntryView is an entry joined with its actor's display fields. The actor may
// have been removed since, so both are nullable.
type EntryView struct {
	Entry
	Username *string `db:"username" json:"username"`
	Name     *string `db:"name" json:"name"`
}
