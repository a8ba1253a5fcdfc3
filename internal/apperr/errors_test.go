package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Authentication("x"), http.StatusUnauthorized},
		{Authorization("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{RateLimit("x"), http.StatusTooManyRequests},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
		})
	}
}

func TestFromAndIsKind(t *testing.T) {
	wrapped := fmt.Errorf("create admin: %w", Conflict("Username is already taken"))

	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(wrapped, KindNotFound))
	assert.Equal(t, "Username is already taken", From(wrapped).Message)

	plain := errors.New("connection reset")
	e := From(plain)
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, "Internal server error", e.Message)
	assert.ErrorIs(t, e, plain)
	assert.False(t, IsKind(plain, KindInternal))
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := httptest.NewRecorder()

	WriteError(rec, zap.New(core).Sugar(), errors.New("pq: relation \"users\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "Internal server error"}, body)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestWriteError_ClientError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, nil, Authorization("Access denied"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
}
