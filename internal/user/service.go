package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity"
	activityentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	sessionentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	sessionrepo "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

var ErrNotFound = errors.New("user not found")

// UserService owns panel accounts: lookup for sign-in, admin management and
// self-service credential changes.
type UserService struct {
	db       *sqlx.DB
	repo     *userrepo.UserRepo
	sessions *sessionrepo.SessionRepo
	audit    *activity.Service
	hasher   PasswordHasher
	clock    clockwork.Clock
	logger   *zap.SugaredLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sqlx.DB, hasher PasswordHasher, audit *activity.Service, clock clockwork.Clock, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultBcryptCost}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &UserService{
		db:       db,
		repo:     userrepo.NewUserRepo(db),
		sessions: sessionrepo.NewSessionRepo(db),
		audit:    audit,
		hasher:   hasher,
		clock:    clock,
		logger:   logger,
	}
}

func (s *UserService) now() time.Time { return s.clock.Now().UTC() }

// FindPanelUser looks up an admin or super_admin by email or exact username.
func (s *UserService) FindPanelUser(ctx context.Context, identifier string) (*entity.User, error) {
	u, err := s.repo.GetPanelUserByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// RehashIfNeeded re-hashes pw at the configured cost when u's stored hash was
// made with another one. Call it only after pw was verified. Failures are
// logged and never surface; sessions are left alone.
func (s *UserService) RehashIfNeeded(ctx context.Context, u *entity.User, pw string) bool {
	if u == nil || !s.hasher.NeedsRehash(u.PasswordHash) {
		return false
	}
	hash, _, err := s.hasher.Hash(pw)
	if err != nil {
		s.logger.Warnw("password rehash failed", "user_id", u.ID, "err", err)
		return false
	}
	if _, err := s.repo.Update(ctx, u.ID, entity.Changes{PasswordHash: &hash}, s.now()); err != nil {
		s.logger.Warnw("password rehash not stored", "user_id", u.ID, "err", err)
		return false
	}
	u.PasswordHash = hash
	s.logger.Debugw("password rehashed", "user_id", u.ID)
	return true
}

// VerifyPassword checks pw against u. A nil u still spends one hash
// comparison so unknown identifiers take as long as wrong passwords.
func (s *UserService) VerifyPassword(u *entity.User, pw string) bool {
	if u == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _, _ = s.hasher.Hash("dummy-password-for-timing")
		})
		_ = s.hasher.Verify(s.dummyHash, pw)
		return false
	}
	return s.hasher.Verify(u.PasswordHash, pw)
}

// TouchLastLogin stamps last_login with the current time and returns it.
func (s *UserService) TouchLastLogin(ctx context.Context, id int64) (time.Time, error) {
	now := s.now()
	return now, s.repo.TouchLastLogin(ctx, id, now)
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListAdmins returns every panel account, newest first, without hashes.
func (s *UserService) ListAdmins(ctx context.Context) ([]entity.User, error) {
	users, err := s.repo.ListPanelUsers(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// CreateAdminInput is the create-admin payload.
type CreateAdminInput struct {
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     entity.Role `json:"role"`
}

// CreateAdmin adds an admin account. super_admin can never be created here.
func (s *UserService) CreateAdmin(ctx context.Context, actor *sessionentity.Principal, in CreateAdminInput, client utilities.ClientInfo) (*entity.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("All fields are required")
	}
	role := in.Role
	if role == "" {
		role = entity.RoleAdmin
	}
	if role == entity.RoleSuperAdmin {
		return nil, apperr.Authorization("Cannot create super admin users")
	}
	if !role.Valid() {
		return nil, apperr.Validation(errInvalidRole)
	}
	u, err := s.buildNewUser(in, role)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, u.Username, u.Email, 0); err != nil {
		return nil, err
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, writeError(err)
	}
	s.record(ctx, actor.User.ID, activityentity.ActionCreateAdmin, &u.ID, client)
	out := u.Sanitized()
	return &out, nil
}

// BootstrapSuperAdmin creates the single super_admin when none exists yet.
// It reports false without error if one is already present.
func (s *UserService) BootstrapSuperAdmin(ctx context.Context, in CreateAdminInput) (*entity.User, bool, error) {
	exists, err := s.repo.SuperAdminExists(ctx)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	if exists {
		return nil, false, nil
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, false, apperr.Validation("Username, email and password are required")
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = in.Username
	}
	u, err := s.buildNewUser(in, entity.RoleSuperAdmin)
	if err != nil {
		return nil, false, err
	}
	if err := s.ensureUnique(ctx, u.Username, u.Email, 0); err != nil {
		return nil, false, err
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		return nil, false, writeError(err)
	}
	out := u.Sanitized()
	return &out, true, nil
}

func (s *UserService) buildNewUser(in CreateAdminInput, role entity.Role) (*entity.User, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	name, err := sanitizeName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, _, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	now := s.now()
	return &entity.User{
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ensureUnique checks username and email against every user except excludeID.
// Empty values are skipped.
func (s *UserService) ensureUnique(ctx context.Context, username, email string, excludeID int64) error {
	if username != "" {
		taken, err := s.repo.UsernameTaken(ctx, username, excludeID)
		if err != nil {
			return apperr.Internal(err)
		}
		if taken {
			return apperr.Conflict(errUsernameTaken)
		}
	}
	if email != "" {
		taken, err := s.repo.EmailTaken(ctx, email, excludeID)
		if err != nil {
			return apperr.Internal(err)
		}
		if taken {
			return apperr.Conflict(errEmailTaken)
		}
	}
	return nil
}

// AdminPatch is the change-admin payload. Absent or empty fields are left unchanged.
type AdminPatch struct {
	Username *string      `json:"username"`
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *entity.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// UpdateResult is an updated account and whether its sessions were revoked.
type UpdateResult struct {
	User            entity.User
	SessionsRevoked bool
}

func present(p *string) bool { return p != nil && strings.TrimSpace(*p) != "" }

// UpdateAdmin applies patch to targetID on behalf of a super admin.
func (s *UserService) UpdateAdmin(ctx context.Context, actor *sessionentity.Principal, targetID int64, patch AdminPatch, client utilities.ClientInfo) (*UpdateResult, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(errUserNotFound)
		}
		return nil, apperr.Internal(err)
	}

	var c entity.Changes
	if patch.Role != nil && *patch.Role != "" {
		role := *patch.Role
		if !role.Valid() {
			return nil, apperr.Validation(errInvalidRole)
		}
		if target.IsSuperAdmin() && role != entity.RoleSuperAdmin {
			return nil, apperr.Authorization("Cannot change super admin role")
		}
		if !target.IsSuperAdmin() && role == entity.RoleSuperAdmin {
			return nil, apperr.Authorization("Cannot promote users to super admin")
		}
		c.Role = &role
	}
	if patch.IsActive != nil {
		if !*patch.IsActive && target.IsSuperAdmin() && target.IsActive {
			n, err := s.repo.CountActiveSuperAdmins(ctx)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			if n <= 1 {
				return nil, apperr.Authorization("Cannot deactivate the only active super admin")
			}
		}
		active := *patch.IsActive
		c.IsActive = &active
	}
	if present(patch.Username) {
		username, err := normalizeUsername(*patch.Username)
		if err != nil {
			return nil, err
		}
		c.Username = &username
	}
	if present(patch.Email) {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		c.Email = &email
	}
	if present(patch.Name) {
		name, err := sanitizeName(*patch.Name)
		if err != nil {
			return nil, err
		}
		c.Name = &name
	}
	if patch.Password != nil && *patch.Password != "" {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		hash, _, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		c.PasswordHash = &hash
	}
	if c.Empty() {
		return nil, apperr.Validation(errNoValidChanges)
	}
	var username, email string
	if c.Username != nil {
		username = *c.Username
	}
	if c.Email != nil {
		email = *c.Email
	}
	if err := s.ensureUnique(ctx, username, email, target.ID); err != nil {
		return nil, err
	}

	revoke := c.PasswordHash != nil || (c.IsActive != nil && !*c.IsActive)
	if err := s.apply(ctx, target.ID, c, revoke); err != nil {
		return nil, err
	}
	updated, err := s.Get(ctx, target.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.record(ctx, actor.User.ID, activityentity.ActionUpdateAdmin, &target.ID, client)
	return &UpdateResult{User: updated.Sanitized(), SessionsRevoked: revoke}, nil
}

// ChangeCredentialsInput is the self-service payload.
type ChangeCredentialsInput struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangeCredentials lets the signed-in user rename themselves and optionally
// set a new password. A password change revokes all of their sessions.
func (s *UserService) ChangeCredentials(ctx context.Context, actor *sessionentity.Principal, in ChangeCredentialsInput, client utilities.ClientInfo) (*UpdateResult, error) {
	if strings.TrimSpace(in.Username) == "" || in.CurrentPassword == "" {
		return nil, apperr.Validation("Username and current password are required")
	}
	u, err := s.repo.GetByID(ctx, actor.User.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(errUserNotFound)
		}
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.CurrentPassword) {
		return nil, apperr.Authentication("Current password is incorrect")
	}
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, username, "", u.ID); err != nil {
		return nil, err
	}
	c := entity.Changes{Username: &username}
	action := activityentity.ActionChangeUsername
	if in.NewPassword != "" {
		if err := validatePassword(in.NewPassword); err != nil {
			return nil, err
		}
		hash, _, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		c.PasswordHash = &hash
		action = activityentity.ActionChangeCredentialsWithPassword
	}

	revoke := c.PasswordHash != nil
	if err := s.apply(ctx, u.ID, c, revoke); err != nil {
		return nil, err
	}
	updated, err := s.Get(ctx, u.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.record(ctx, u.ID, action, &u.ID, client)
	return &UpdateResult{User: updated.Sanitized(), SessionsRevoked: revoke}, nil
}

// apply writes c and, when revoke is set, deletes the user's sessions in the
// same transaction.
func (s *UserService) apply(ctx context.Context, id int64, c entity.Changes, revoke bool) error {
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		n, err := s.repo.WithTx(tx).Update(ctx, id, c, s.now())
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if revoke {
			if _, err := s.sessions.WithTx(tx).DeleteByUser(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(errUserNotFound)
	}
	if err != nil {
		return writeError(err)
	}
	return nil
}

// record writes an audit entry after the change has committed; a failure is
// logged by the activity service and does not undo the change.
func (s *UserService) record(ctx context.Context, actorID int64, action activityentity.Action, resourceID *int64, client utilities.ClientInfo) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, actorID, action, activityentity.ResourceUser, resourceID, client)
}

// writeError maps a repo write failure to the client-facing error. Unique
// collisions that slipped past ensureUnique still answer 409.
func writeError(err error) error {
	switch {
	case errors.Is(err, userrepo.ErrDuplicateUsername):
		return apperr.Conflict(errUsernameTaken)
	case errors.Is(err, userrepo.ErrDuplicateEmail):
		return apperr.Conflict(errEmailTaken)
	case errors.Is(err, userrepo.ErrDuplicate):
		return apperr.Conflict(errDuplicateUser)
	default:
		return apperr.Internal(err)
	}
}
