package user

import (
	"net/mail"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
)

const (
	maxUsernameLen    = 64
	maxNameLen        = 100
	minPasswordLen    = 8
	maxPasswordBytes  = 72 // bcrypt ignores or rejects anything longer
	maxEmailLen       = 254
	errInvalidRole    = "Invalid role. Must be admin or super_admin"
	errUsernameTaken  = "Username is already taken"
	errEmailTaken     = "Email is already in use"
	errUserNotFound   = "User not found"
	errNoValidChanges = "No valid fields to update"
	errDuplicateUser  = "User already exists"
)

var (
	namePolicy     *bluemonday.Policy
	namePolicyOnce sync.Once
)

func getNamePolicy() *bluemonday.Policy {
	namePolicyOnce.Do(func() {
		namePolicy = bluemonday.StrictPolicy()
	})
	return namePolicy
}

func normalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperr.Validation("Username is required")
	}
	if utf8.RuneCountInString(s) > maxUsernameLen {
		return "", apperr.Validation("Username is too long")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", apperr.Validation("Username must not contain whitespace")
	}
	return s, nil
}

// normalizeEmail trims and lower-cases; display-name forms are rejected.
func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || len(s) > maxEmailLen {
		return "", apperr.Validation("Invalid email address")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", apperr.Validation("Invalid email address")
	}
	return s, nil
}

// sanitizeName strips all markup from a display name.
func sanitizeName(s string) (string, error) {
	s = strings.TrimSpace(getNamePolicy().Sanitize(strings.TrimSpace(s)))
	if s == "" {
		return "", apperr.Validation("Name is required")
	}
	if utf8.RuneCountInString(s) > maxNameLen {
		return "", apperr.Validation("Name is too long")
	}
	return s, nil
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return apperr.Validation("Password must be at least 8 characters")
	}
	if len(pw) > maxPasswordBytes {
		return apperr.Validation("Password must be at most 72 bytes")
	}
	return nil
}
