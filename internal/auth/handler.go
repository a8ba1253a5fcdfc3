package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for login / logout / current session.
type Handler struct {
	svc      *Service
	sessions *session.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *Service, sessions *session.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		apperr.WriteError(w, h.logger, apperr.Validation(msgMissingCredentials))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Identifier, req.Password, utilities.ClientInfoFrom(r))
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		apperr.WriteError(w, h.logger, err)
		return
	}
	h.sessions.SetCookie(w, res.Session.ID, res.Session.ExpiresAt)
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    res.User,
	})
}

// Logout always clears the cookie; the stored session is removed when present.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, _ := access.PrincipalFrom(r.Context())
	ended, err := h.svc.Logout(r.Context(), p, utilities.ClientInfoFrom(r))
	h.sessions.ClearCookie(w)
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	msg := "Logout successful"
	if !ended {
		msg = "No active session"
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Me returns the signed-in user and session expiry.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := access.PrincipalFrom(r.Context())
	p, err := access.RequireAuth(p)
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{
		"user":       p.User,
		"expires_at": p.ExpiresAt,
	})
}
