package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session"
	sessionentity "github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-admin-auth-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for admin management and self-service credentials.
type Handler struct {
	svc      *UserService
	sessions *session.Service
	logger   *zap.SugaredLogger
}

func NewHandler(svc *UserService, sessions *session.Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

type userResponse struct {
	Message         string       `json:"message,omitempty"`
	User            *entity.User `json:"user"`
	SessionsRevoked bool         `json:"sessions_revoked,omitempty"`
}

// List handles GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListAdmins(r.Context())
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Create handles POST /create-admin.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := access.RequireSuperAdmin(principal(r))
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	var req CreateAdminInput
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.CreateAdmin(r.Context(), actor, req, utilities.ClientInfoFrom(r))
	if err != nil {
		h.logger.Debugw("create admin failed", "err", err)
		apperr.WriteError(w, h.logger, err)
		return
	}
	apperr.WriteJSON(w, http.StatusCreated, userResponse{Message: "Admin user created successfully", User: u})
}

// Update handles PUT /change-admin/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := access.RequireSuperAdmin(principal(r))
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apperr.WriteError(w, h.logger, apperr.Validation("Invalid user ID"))
		return
	}
	var patch AdminPatch
	if !h.decode(w, r, &patch) {
		return
	}
	res, err := h.svc.UpdateAdmin(r.Context(), actor, id, patch, utilities.ClientInfoFrom(r))
	if err != nil {
		h.logger.Debugw("update admin failed", "err", err, "target", id)
		apperr.WriteError(w, h.logger, err)
		return
	}
	if res.SessionsRevoked && id == actor.User.ID {
		h.sessions.ClearCookie(w)
	}
	apperr.WriteJSON(w, http.StatusOK, userResponse{Message: "Admin user updated successfully", User: &res.User, SessionsRevoked: res.SessionsRevoked})
}

// ChangeCredentials handles PUT /change-credentials for the signed-in user.
func (h *Handler) ChangeCredentials(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var ownerID int64
	if p != nil {
		ownerID = p.User.ID
	}
	actor, err := access.CanAccessResource(p, ownerID)
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	var req ChangeCredentialsInput
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.ChangeCredentials(r.Context(), actor, req, utilities.ClientInfoFrom(r))
	if err != nil {
		apperr.WriteError(w, h.logger, err)
		return
	}
	msg := "Username updated successfully"
	if res.SessionsRevoked {
		msg = "Credentials updated successfully. Please sign in again."
		h.sessions.ClearCookie(w)
	}
	apperr.WriteJSON(w, http.StatusOK, userResponse{Message: msg, User: &res.User, SessionsRevoked: res.SessionsRevoked})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debugw("invalid payload", "err", err, "path", r.URL.Path)
		apperr.WriteError(w, h.logger, apperr.Validation("Invalid request body"))
		return false
	}
	return true
}

func principal(r *http.Request) *sessionentity.Principal {
	p, _ := access.PrincipalFrom(r.Context())
	return p
}
