package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/testutil"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
)

func newUser(username, email string, role entity.Role) *entity.User {
	return &entity.User{
		Username:     username,
		Name:         username,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
		CreatedAt:    testutil.Epoch,
		UpdatedAt:    testutil.Epoch,
	}
}

// Writes that lose a race against the uniqueness pre-check still surface as
// typed duplicates rather than raw driver errors.
func TestCreate_UniqueCollisions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := NewUserRepo(db)
	ctx := context.Background()
	testutil.InsertUser(t, db, testutil.UserFixture{Username: "jane", Email: "jane@example.com", Password: "password-1"})
	testutil.InsertUser(t, db, testutil.UserFixture{Username: "root", Password: "password-2", Role: entity.RoleSuperAdmin})

	tests := []struct {
		name string
		u    *entity.User
		want error
	}{
		{"username", newUser("jane", "other@example.com", entity.RoleAdmin), ErrDuplicateUsername},
		{"email", newUser("janet", "jane@example.com", entity.RoleAdmin), ErrDuplicateEmail},
		{"second super admin", newUser("root2", "root2@example.com", entity.RoleSuperAdmin), ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Create(ctx, tt.u)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	id, err := r.Create(ctx, newUser("sam", "sam@example.com", entity.RoleAdmin))
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestUpdate_UniqueCollision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := NewUserRepo(db)
	ctx := context.Background()
	testutil.InsertUser(t, db, testutil.UserFixture{Username: "jane", Password: "password-1"})
	sam := testutil.InsertUser(t, db, testutil.UserFixture{Username: "sam", Password: "password-2"})

	taken := "jane"
	_, err := r.Update(ctx, sam.ID, entity.Changes{Username: &taken}, testutil.Epoch)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	email := "jane@example.com"
	_, err = r.Update(ctx, sam.ID, entity.Changes{Email: &email}, testutil.Epoch)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
