package activity

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/activity/repo"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

const MaxListed = 100

// Service writes the audit trail: a persisted row plus a structured log line.
type Service struct {
	repo   *repo.ActivityRepo
	clock  clockwork.Clock
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, clock clockwork.Clock, logger *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: repo.NewActivityRepo(db), clock: clock, logger: logger}
}

// Record appends an entry for userID. resourceID may be nil.
func (s *Service) Record(ctx context.Context, userID int64, action entity.Action, resourceType string, resourceID *int64, client utilities.ClientInfo) error {
	e := &entity.Entry{
		ID:           utilities.NewSnowflakeID(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    client.IP,
		UserAgent:    client.UserAgent,
		CreatedAt:    s.clock.Now().UTC(),
	}
	s.logger.Infow("audit",
		"audit", true,
		"action", string(action),
		"user_id", userID,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", client.IP,
	)
	if err := s.repo.Insert(ctx, e); err != nil {
		s.logger.Errorw("audit write failed", "action", string(action), "user_id", userID, "err", err)
		return err
	}
	return nil
}

// Recent lists the newest entries, at most MaxListed.
func (s *Service) Recent(ctx context.Context, limit int) ([]entity.EntryView, error) {
	if limit <= 0 || limit > MaxListed {
		limit = MaxListed
	}
	return s.repo.ListRecent(ctx, limit)
}
