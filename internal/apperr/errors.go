// Package apperr is the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type Kind int

const (
	KindInternal       Kind = iota // 500
	KindValidation                 // 400
	KindAuthentication             // 401
	KindAuthorization              // 403
	KindNotFound                   // 404
	KindConflict                   // 409
	KindRateLimit                  // 429
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Error carries a client-safe Message. Err is the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error     { return &Error{Kind: KindValidation, Message: msg} }
func Authentication(msg string) *Error { return &Error{Kind: KindAuthentication, Message: msg} }
func Authorization(msg string) *Error  { return &Error{Kind: KindAuthorization, Message: msg} }
func NotFound(msg string) *Error       { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error       { return &Error{Kind: KindConflict, Message: msg} }
func RateLimit(msg string) *Error      { return &Error{Kind: KindRateLimit, Message: msg} }

// Internal wraps a storage or programming failure behind a generic message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// From returns err as *Error, wrapping anything else as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// WriteJSON writes v as a JSON body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {"error": message}. Causes of internal errors are
// logged and never sent to the client.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	e := From(err)
	if logger != nil {
		if e.Kind == KindInternal {
			logger.Errorw("request failed", "err", e.Err)
		} else {
			logger.Debugw("request rejected", "kind", e.Kind.String(), "msg", e.Message)
		}
	}
	WriteJSON(w, e.Status(), map[string]string{"error": e.Message})
}
