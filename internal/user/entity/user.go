package entity

import "time"

// Role is the panel role of an account. Only these two may sign in.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known panel role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents an account row in the `users` table.
// PasswordHash never leaves the process: it is excluded from JSON.
type User struct {
	ID            int64      `db:"id" json:"id"`
	Username      string     `db:"username" json:"username"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Role          Role       `db:"role" json:"role"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	EmailVerified bool       `db:"email_verified" json:"email_verified"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin     *time.Time `db:"last_login" json:"last_login"`
}

// IsSuperAdmin reports whether u holds the super_admin role.
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// Sanitized returns a copy with the password hash cleared.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// Changes is the set of columns an update touches; nil means unchanged.
type Changes struct {
	Username     *string
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
}

// Empty reports whether no column would change.
func (c Changes) Empty() bool {
	return c.Username == nil && c.Name == nil && c.Email == nil &&
		c.PasswordHash == nil && c.Role == nil && c.IsActive == nil
}
