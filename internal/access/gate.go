// Package access decides who may reach which admin route. The same decisions
// back the JSON API middleware and the page redirect guard.
package access

import (
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	userentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
)

const (
	msgAuthRequired       = "Authentication required"
	msgSuperAdminRequired = "Super admin access required"
	msgAccessDenied       = "Access denied"
)

// Check is a gate decision over the (possibly nil) request principal.
type Check func(p *entity.Principal) (*entity.Principal, error)

// RequireAuth passes an active admin or super_admin.
func RequireAuth(p *entity.Principal) (*entity.Principal, error) {
	if p == nil || !p.User.IsActive || !p.User.Role.Valid() {
		return nil, apperr.Authentication(msgAuthRequired)
	}
	return p, nil
}

// RequireSuperAdmin passes an active super_admin.
func RequireSuperAdmin(p *entity.Principal) (*entity.Principal, error) {
	p, err := RequireAuth(p)
	if err != nil {
		return nil, err
	}
	if p.User.Role != userentity.RoleSuperAdmin {
		return nil, apperr.Authorization(msgSuperAdminRequired)
	}
	return p, nil
}

// CanAccessResource lets a super_admin reach anything and an admin only what
// belongs to them.
func CanAccessResource(p *entity.Principal, ownerID int64) (*entity.Principal, error) {
	p, err := RequireAuth(p)
	if err != nil {
		return nil, err
	}
	if p.User.Role == userentity.RoleSuperAdmin || p.User.ID == ownerID {
		return p, nil
	}
	return nil, apperr.Authorization(msgAccessDenied)
}
