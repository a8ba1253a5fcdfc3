package utilities

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key or def when unset.
func EnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvInt parses key as an int; malformed values fall back to def.
func EnvInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

// EnvBool accepts 1/true/yes/on (case-insensitive).
func EnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// EnvDuration parses key with time.ParseDuration ("15m", "1h").
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// IsProduction reports whether APP_ENV is production.
func IsProduction() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "production")
}
