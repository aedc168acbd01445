package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confly-app/apiserver/internal/realtime"
)

// SSEHandler streams session events to browsers over Server-Sent Events.
type SSEHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewSSEHandler(hub *realtime.Hub, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{hub: hub, logger: logger}
}

// Events handles GET /sse/events/{sessionID}. The connection stays open
// until the client goes away; the first frame is always the "connected"
// acknowledgment queued by the hub.
func (h *SSEHandler) Events(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.hub.Subscribe(sessionID)
	defer h.hub.Unsubscribe(sub)
	h.logger.Debug("sse client connected", "session", sessionID)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-sub.C:
			if !ok {
				// Dropped by the hub, typically for falling behind.
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
