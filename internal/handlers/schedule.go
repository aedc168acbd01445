package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confly-app/apiserver/internal/schedule"
)

// ScheduleHandler exposes read access to the conference schedule.
type ScheduleHandler struct {
	schedule *schedule.Service
	logger   *slog.Logger
}

func NewScheduleHandler(service *schedule.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedule: service, logger: logger}
}

// List handles GET /schedule.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.schedule.Sessions(r.Context())
	if err != nil {
		h.logger.Error("failed to load schedule", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeData(w, http.StatusOK, sessions)
}

// Get handles GET /schedule/{sessionID}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.schedule.SessionByID(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, schedule.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("failed to load session", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	writeData(w, http.StatusOK, session)
}
