// Package auth runs the sign-in and sign-out flows on top of the user,
// throttle, session and activity services.
package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity"
	activityentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	sessionentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

const (
	msgMissingCredentials = "Email/username and password are required"
	msgThrottled          = "Too many failed login attempts. Please try again later."
	msgInvalidCredentials = "Invalid credentials"
	msgInactive           = "Account is inactive"
)

type Service struct {
	users    *user.UserService
	throttle *throttle.Service
	sessions *session.Service
	audit    *activity.Service
	logger   *zap.SugaredLogger
}

func NewService(users *user.UserService, th *throttle.Service, sessions *session.Service, audit *activity.Service, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{users: users, throttle: th, sessions: sessions, audit: audit, logger: logger}
}

// LoginResult is a signed-in user (without hash) and the session issued for them.
type LoginResult struct {
	User    userentity.User
	Session *sessionentity.Session
}

// Login checks the throttle, then the credentials, then issues a session.
// Every attempt is recorded, including throttled ones.
func (s *Service) Login(ctx context.Context, identifier, password string, client utilities.ClientInfo) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.Validation(msgMissingCredentials)
	}

	allowed, err := s.throttle.Allowed(ctx, client.IP, identifier)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !allowed {
		s.logger.Warnw("login throttled", "identifier", identifier, "ip", client.IP)
		if err := s.fail(ctx, identifier, client); err != nil {
			return nil, err
		}
		return nil, apperr.RateLimit(msgThrottled)
	}

	u, err := s.users.FindPanelUser(ctx, identifier)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if !s.users.VerifyPassword(u, password) {
		if err := s.fail(ctx, identifier, client); err != nil {
			return nil, err
		}
		return nil, apperr.Authentication(msgInvalidCredentials)
	}
	if !u.IsActive {
		if err := s.fail(ctx, identifier, client); err != nil {
			return nil, err
		}
		return nil, apperr.Authentication(msgInactive)
	}
	s.users.RehashIfNeeded(ctx, u, password)

	if err := s.throttle.Record(ctx, identifier, true, client); err != nil {
		return nil, apperr.Internal(err)
	}
	sess, err := s.sessions.Create(ctx, u.ID, client)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	at, err := s.users.TouchLastLogin(ctx, u.ID)
	if err != nil {
		s.logger.Warnw("last login update failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLogin = &at
	}
	_ = s.audit.Record(ctx, u.ID, activityentity.ActionLogin, activityentity.ResourceAuth, &u.ID, client)

	return &LoginResult{User: u.Sanitized(), Session: sess}, nil
}

func (s *Service) fail(ctx context.Context, identifier string, client utilities.ClientInfo) error {
	if err := s.throttle.Record(ctx, identifier, false, client); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Logout ends the principal's session. It reports false when there was none.
func (s *Service) Logout(ctx context.Context, p *sessionentity.Principal, client utilities.ClientInfo) (bool, error) {
	if p == nil {
		return false, nil
	}
	_ = s.audit.Record(ctx, p.User.ID, activityentity.ActionLogout, activityentity.ResourceAuth, &p.User.ID, client)
	if err := s.sessions.Destroy(ctx, p.SessionID); err != nil {
		return true, apperr.Internal(err)
	}
	return true, nil
}
