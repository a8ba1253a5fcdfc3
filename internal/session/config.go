package session

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

const (
	DefaultCookieName  = "session"
	DefaultIdleTimeout = 60 * time.Minute
)

type Config struct {
	CookieName   string
	IdleTimeout  time.Duration
	Secure       bool
	ReapInterval time.Duration
}

// ConfigFromEnv reads session settings. Secure cookies follow APP_ENV=production.
func ConfigFromEnv() Config {
	return Config{
		CookieName:   DefaultCookieName,
		IdleTimeout:  utilities.EnvDuration("SESSION_IDLE_TIMEOUT", DefaultIdleTimeout),
		Secure:       utilities.IsProduction(),
		ReapInterval: utilities.EnvDuration("SESSION_REAP_INTERVAL", 10*time.Minute),
	}
}

func (c Config) withDefaults() Config {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}
