// Package throttle limits password guessing by counting recent failed sign-ins
// per client IP or identifier. It reads and writes the persisted attempt log,
// so it holds no process-local state and is best-effort under concurrency.
package throttle

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/throttle/repo"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxFailures = 5
	MaxListed          = 100
)

type Config struct {
	Window      time.Duration
	MaxFailures int
}

// ConfigFromEnv reads LOGIN_THROTTLE_WINDOW and LOGIN_THROTTLE_MAX_FAILURES.
func ConfigFromEnv() Config {
	return Config{
		Window:      utilities.EnvDuration("LOGIN_THROTTLE_WINDOW", DefaultWindow),
		MaxFailures: utilities.EnvInt("LOGIN_THROTTLE_MAX_FAILURES", DefaultMaxFailures),
	}
}

type Service struct {
	repo  *repo.AttemptRepo
	cfg   Config
	clock clockwork.Clock
}

func NewService(db *sqlx.DB, cfg Config, clock clockwork.Clock) *Service {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{repo: repo.NewAttemptRepo(db), cfg: cfg, clock: clock}
}

// Allowed reports whether another attempt may proceed: fewer than MaxFailures
// failures within Window that match ip OR identifier.
func (s *Service) Allowed(ctx context.Context, ip, identifier string) (bool, error) {
	since := s.clock.Now().UTC().Add(-s.cfg.Window)
	n, err := s.repo.CountFailuresSince(ctx, ip, identifier, since)
	if err != nil {
		return false, err
	}
	return n < s.cfg.MaxFailures, nil
}

// Record appends an attempt stamped with the current time.
func (s *Service) Record(ctx context.Context, identifier string, success bool, client utilities.ClientInfo) error {
	return s.repo.Insert(ctx, &entity.LoginAttempt{
		ID:          utilities.NewSnowflakeID(),
		Identifier:  identifier,
		Success:     success,
		IPAddress:   client.IP,
		UserAgent:   client.UserAgent,
		AttemptedAt: s.clock.Now().UTC(),
	})
}

// Recent lists the newest attempts, at most MaxListed.
func (s *Service) Recent(ctx context.Context, limit int) ([]entity.LoginAttempt, error) {
	if limit <= 0 || limit > MaxListed {
		limit = MaxListed
	}
	return s.repo.ListRecent(ctx, limit)
}
