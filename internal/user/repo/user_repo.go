package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
)

var (
	// ErrDuplicateUsername is returned when a write collides with another user's username.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrDuplicateEmail is returned when a write collides with another user's email.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrDuplicate covers any other unique index on users (the single super_admin).
	ErrDuplicate = errors.New("user row violates a unique constraint")
)

// duplicate translates a driver unique violation into one of the sentinels above.
func duplicate(err error) error {
	detail, ok := database.UniqueViolation(err)
	if !ok {
		return err
	}
	switch {
	case strings.Contains(detail, "email"):
		return ErrDuplicateEmail
	case strings.Contains(detail, "username"):
		return ErrDuplicateUsername
	default:
		return ErrDuplicate
	}
}

const userColumns = `id, username, name, email, password_hash, role, is_active,
		email_verified, created_at, updated_at, last_login`

// UserRepo provides data access for users table using sqlx.
// Queries are written with ? placeholders and rebound for the active driver.
type UserRepo struct {
	db sqlx.ExtContext
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// WithTx returns a repo bound to tx.
func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{db: tx} }

// Create inserts a new user row. Returns new ID, or ErrDuplicateUsername /
// ErrDuplicateEmail when a concurrent writer won the unique index.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	q := r.db.Rebind(`INSERT INTO users (username, name, email, password_hash, role, is_active, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	row := r.db.QueryRowxContext(ctx, q,
		u.Username, u.Name, u.Email, u.PasswordHash, string(u.Role), u.IsActive, u.EmailVerified, u.CreatedAt, u.UpdatedAt)
	if err := row.Scan(&u.ID); err != nil {
		return 0, duplicate(err)
	}
	return u.ID, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	var u entity.User
	if err := sqlx.GetContext(ctx, r.db, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetPanelUserByIdentifier matches email or the exact (case-sensitive) username,
// restricted to panel roles. Returns sql.ErrNoRows when nothing matches.
func (r *UserRepo) GetPanelUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE (email = ? OR username = ?) AND role IN (?, ?)
		ORDER BY id LIMIT 1`)
	var u entity.User
	err := sqlx.GetContext(ctx, r.db, &u, q,
		strings.ToLower(identifier), identifier, string(entity.RoleAdmin), string(entity.RoleSuperAdmin))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UsernameTaken reports whether another user (id != excludeID) holds username.
// The comparison is case-sensitive.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ? AND id <> ? LIMIT 1`, username, excludeID)
}

// EmailTaken reports whether another user (id != excludeID) holds email.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE email = ? AND id <> ? LIMIT 1`, email, excludeID)
}

// SuperAdminExists reports whether any super_admin row exists.
func (r *UserRepo) SuperAdminExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE role = ? LIMIT 1`, string(entity.RoleSuperAdmin))
}

// CountActiveSuperAdmins counts active super_admins.
func (r *UserRepo) CountActiveSuperAdmins(ctx context.Context) (int, error) {
	q := r.db.Rebind(`SELECT COUNT(*) FROM users WHERE role = ? AND is_active = ?`)
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, q, string(entity.RoleSuperAdmin), true); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepo) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := sqlx.GetContext(ctx, r.db, &one, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Update applies the non-nil fields of c. Returns rows affected. Unique
// collisions come back as the duplicate sentinels.
func (r *UserRepo) Update(ctx context.Context, id int64, c entity.Changes, now time.Time) (int64, error) {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if c.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *c.Username)
	}
	if c.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *c.Name)
	}
	if c.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *c.Email)
	}
	if c.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *c.PasswordHash)
	}
	if c.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*c.Role))
	}
	if c.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *c.IsActive)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)
	q := r.db.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, duplicate(err)
	}
	return res.RowsAffected()
}

// TouchLastLogin records a successful sign-in.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	q := r.db.Rebind(`UPDATE users SET last_login = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, q, at, id)
	return err
}

// ListPanelUsers returns admins and super_admins, newest first.
func (r *UserRepo) ListPanelUsers(ctx context.Context) ([]entity.User, error) {
	q := r.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE role IN (?, ?) ORDER BY created_at DESC, id DESC`)
	users := []entity.User{}
	if err := sqlx.SelectContext(ctx, r.db, &users, q, string(entity.RoleAdmin), string(entity.RoleSuperAdmin)); err != nil {
		return nil, err
	}
	return users, nil
}
