package throttle

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-auth-go/internal/apperr"
)

// Handler exposes the attempt log to super admins.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List returns the last 100 login attempts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.svc.Recent(r.Context(), MaxListed)
	if err != nil {
		apperr.WriteError(w, h.logger, apperr.Internal(err))
		return
	}
	apperr.WriteJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
