package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/confly-app/apiserver/internal/services"
	"github.com/confly-app/apiserver/internal/store"
)

// UserHandler exposes profile operations on the identified caller.
type UserHandler struct {
	identity *services.IdentityService
	logger   *slog.Logger
}

func NewUserHandler(identity *services.IdentityService, logger *slog.Logger) *UserHandler {
	return &UserHandler{identity: identity, logger: logger}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateDisplayNameRequest struct {
	DisplayName string `json:"displayName"`
}

// UpdateDisplayName handles PUT /users/display-name. A name already taken by
// someone else is a 409.
func (h *UserHandler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req updateDisplayNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.identity.UpdateDisplayName(r.Context(), user.ID, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, "displayName is required")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "display name already taken")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			h.logger.Error("failed to update display name", "user", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update display name")
		}
		return
	}
	writeData(w, http.StatusOK, updated)
}
