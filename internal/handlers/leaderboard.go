package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/confly-app/apiserver/internal/services"
)

// LeaderboardHandler exposes the ranked engagement leaderboard.
type LeaderboardHandler struct {
	leaderboard *services.LeaderboardService
	logger      *slog.Logger
}

func NewLeaderboardHandler(leaderboard *services.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, logger: logger}
}

// Get handles GET /leaderboard?limit=N. No limit, or an unparsable one,
// returns the full board.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := h.leaderboard.Get(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to compute leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute leaderboard")
		return
	}
	writeData(w, http.StatusOK, entries)
}
