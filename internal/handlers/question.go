package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/confly-app/apiserver/internal/services"
	"github.com/confly-app/apiserver/internal/store"
)

// QuestionHandler exposes question CRUD and vote toggling.
type QuestionHandler struct {
	questions *services.QuestionService
	logger    *slog.Logger
}

func NewQuestionHandler(questions *services.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, logger: logger}
}

// ListBySession handles GET /questions/{sessionID}. Identity is optional:
// identified callers get hasUserVoted resolved against their own votes.
func (h *QuestionHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	viewer := userPtrFromContext(r.Context())
	questions, err := h.questions.ListBySession(r.Context(), sessionID, viewer)
	if err != nil {
		h.logger.Error("failed to list questions", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	writeData(w, http.StatusOK, questions)
}

type createQuestionRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// Create handles POST /questions. Requires an identified caller.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question, err := h.questions.Add(r.Context(), req.SessionID, req.Content, user)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeErrorDetails(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		h.logger.Error("failed to create question", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create question")
		return
	}
	writeData(w, http.StatusCreated, question)
}

// Delete handles DELETE /questions/{id}. Only the author's own delete takes
// effect; anyone else gets a normal 200 with deleted=false.
func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	questionID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	deleted, err := h.questions.Delete(r.Context(), questionID, user.ID)
	if err != nil {
		h.logger.Error("failed to delete question", "question", questionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete question")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// ToggleVote handles POST /questions/{id}/vote. A self-vote is a silent
// no-op: 200 with a null payload.
func (h *QuestionHandler) ToggleVote(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	questionID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}

	result, err := h.questions.ToggleVote(r.Context(), questionID, user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeErrorDetails(w, http.StatusBadRequest, "validation failed", err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "question not found")
		default:
			h.logger.Error("failed to toggle vote", "question", questionID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to toggle vote")
		}
		return
	}
	writeData(w, http.StatusOK, result)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
