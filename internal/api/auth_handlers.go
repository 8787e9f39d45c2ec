package api

import (
	"log/slog"
	"net/http"

	"github.com/hyperengineering/tinyleap/internal/types"
	"github.com/hyperengineering/tinyleap/internal/validation"
)

// AuthStatus handles GET /api/auth/status.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	isSet, err := h.Credentials.Status(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.AuthStatusResponse{IsSet: isSet})
}

// AuthVerify handles POST /api/auth/verify.
func (h *Handler) AuthVerify(w http.ResponseWriter, r *http.Request) {
	var req types.PasswordRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidatePassword(&req)) {
		return
	}

	if err := h.Credentials.Verify(r.Context(), req.Password); err != nil {
		slog.Warn("password verification failed",
			"component", "api",
			"remote_ip", r.RemoteAddr,
		)
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}

// AuthSet handles POST /api/auth/set. Changing an existing password
// requires the old one.
func (h *Handler) AuthSet(w http.ResponseWriter, r *http.Request) {
	var req types.PasswordRequest
	if !decodeJSON(w, r, &req, false) || !validate(w, r, validation.ValidatePassword(&req)) {
		return
	}

	if err := h.Credentials.Set(r.Context(), req.Password, req.OldPassword); err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SuccessResponse{Success: true})
}
