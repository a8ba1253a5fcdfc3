package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

// Service issues, validates and destroys server-side sessions.
type Service struct {
	db     *sqlx.DB
	repo   *repo.SessionRepo
	cfg    Config
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, cfg Config, clock clockwork.Clock, logger *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{db: db, repo: repo.NewSessionRepo(db), cfg: cfg.withDefaults(), clock: clock, logger: logger}
}

// Config returns the effective settings.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// Create issues a fresh session for userID. Any earlier sessions of the user
// are deleted in the same transaction, so a user holds at most one.
func (s *Service) Create(ctx context.Context, userID int64, client utilities.ClientInfo) (*entity.Session, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &entity.Session{
		ID:           token,
		UserID:       userID,
		TokenHash:    hash,
		IPAddress:    client.IP,
		UserAgent:    client.UserAgent,
		ExpiresAt:    now.Add(s.cfg.IdleTimeout),
		LastAccessed: now,
		CreatedAt:    now,
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := s.repo.WithTx(tx)
		if _, err := r.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		return r.Insert(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate resolves token to a principal and slides its expiry. It fails
// closed: a missing, expired or mismatched session and any storage error all
// yield (nil, false).
func (s *Service) Validate(ctx context.Context, token string) (*entity.Principal, bool) {
	if token == "" {
		return nil, false
	}
	now := s.now()
	row, err := s.repo.GetLive(ctx, token, now)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warnw("session lookup failed", "err", err)
		}
		return nil, false
	}
	if !VerifyToken(token, row.TokenHash) {
		s.logger.Warnw("session token hash mismatch", "user_id", row.User.ID)
		return nil, false
	}
	expiresAt := now.Add(s.cfg.IdleTimeout)
	n, err := s.repo.Touch(ctx, row.SessionID, expiresAt, now)
	if err != nil {
		s.logger.Warnw("session refresh failed", "err", err, "user_id", row.User.ID)
		return nil, false
	}
	if n == 0 {
		// deleted between lookup and refresh
		return nil, false
	}
	return &entity.Principal{
		SessionID: row.SessionID,
		ExpiresAt: expiresAt,
		User:      row.User.Sanitized(),
	}, true
}

// Destroy deletes one session. Deleting a missing session is not an error.
func (s *Service) Destroy(ctx context.Context, sessionID string) error {
	_, err := s.repo.Delete(ctx, sessionID)
	return err
}

// DestroyAllForUser deletes every session of userID.
func (s *Service) DestroyAllForUser(ctx context.Context, userID int64) (int64, error) {
	return s.repo.DeleteByUser(ctx, userID)
}

// ReapExpired deletes sessions past their expiry.
func (s *Service) ReapExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

// RunReaper calls ReapExpired every interval until ctx is done.
func (s *Service) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := s.ReapExpired(ctx)
			if err != nil {
				s.logger.Warnw("session reaper failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Debugw("expired sessions reaped", "count", n)
			}
		}
	}
}
