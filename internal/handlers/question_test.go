package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/confly-app/apiserver/internal/services"
	"github.com/confly-app/apiserver/internal/store"
	"github.com/confly-app/apiserver/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noopPublisher struct{}

func (noopPublisher) PublishSession(ctx context.Context, sessionID string, event types.Event) {}
func (noopPublisher) PublishAll(ctx context.Context, event types.Event)                       {}

type fakeQuestionRepo struct {
	questions    []types.Question
	deleteOK     bool
	deleted      types.Question
	toggleResult *types.ToggleResult
	toggleErr    error
}

func (f *fakeQuestionRepo) ListBySession(ctx context.Context, sessionID string, viewerID int64) ([]types.Question, error) {
	return f.questions, nil
}

func (f *fakeQuestionRepo) Create(ctx context.Context, question types.Question) (types.Question, error) {
	question.ID = 42
	return question, nil
}

func (f *fakeQuestionRepo) Delete(ctx context.Context, questionID, requesterID int64) (types.Question, bool, error) {
	return f.deleted, f.deleteOK, nil
}

func (f *fakeQuestionRepo) ToggleVote(ctx context.Context, questionID, userID int64) (*types.ToggleResult, error) {
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	return f.toggleResult, nil
}

func (f *fakeQuestionRepo) Stats(ctx context.Context) ([]types.QuestionStat, error) {
	return nil, nil
}

type fakeUserRepo struct {
	byToken       map[string]types.User
	byEmail       map[string]types.User
	byFingerprint map[string]types.User
}

func (f *fakeUserRepo) Resolve(ctx context.Context, email, fingerprint string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByToken(ctx context.Context, token string) (types.User, error) {
	user, ok := f.byToken[token]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByFingerprint(ctx context.Context, fingerprint string) (types.User, error) {
	user, ok := f.byFingerprint[fingerprint]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) UpdateDisplayName(ctx context.Context, userID int64, displayName string) (types.User, error) {
	return types.User{ID: userID, DisplayName: displayName}, nil
}

func questionRouter(repo *fakeQuestionRepo, users *fakeUserRepo) http.Handler {
	logger := testLogger()
	questionService := services.NewQuestionService(repo, noopPublisher{}, logger)
	identityService := services.NewIdentityService(users, noopPublisher{}, logger)
	handler := NewQuestionHandler(questionService, logger)

	router := chi.NewRouter()
	router.Use(Identify(identityService))
	router.Get("/questions/{sessionID}", handler.ListBySession)
	router.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/questions", handler.Create)
		r.Delete("/questions/{id}", handler.Delete)
		r.Post("/questions/{id}/vote", handler.ToggleVote)
	})
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var envelope Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestCreateQuestionRequiresIdentity(t *testing.T) {
	router := questionRouter(&fakeQuestionRepo{}, &fakeUserRepo{byToken: map[string]types.User{}})

	req := httptest.NewRequest(http.MethodPost, "/questions",
		strings.NewReader(`{"sessionId":"s1","content":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope.Success {
		t.Fatal("expected success=false")
	}
}

func TestCreateQuestion(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 7, DisplayName: "CleverOtter"},
	}}
	router := questionRouter(&fakeQuestionRepo{}, users)

	req := httptest.NewRequest(http.MethodPost, "/questions",
		strings.NewReader(`{"sessionId":"s1","content":"What about generics?"}`))
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	if !envelope.Success {
		t.Fatal("expected success=true")
	}
	payload, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var question types.Question
	if err := json.Unmarshal(payload, &question); err != nil {
		t.Fatalf("unmarshal question: %v", err)
	}
	if question.ID != 42 || question.Votes != 0 || question.AuthorName != "CleverOtter" {
		t.Fatalf("unexpected question %+v", question)
	}
}

func TestCreateQuestionValidation(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 7, DisplayName: "CleverOtter"},
	}}
	router := questionRouter(&fakeQuestionRepo{}, users)

	req := httptest.NewRequest(http.MethodPost, "/questions",
		strings.NewReader(`{"sessionId":"s1","content":"   "}`))
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListQuestionsIsPublic(t *testing.T) {
	repo := &fakeQuestionRepo{questions: []types.Question{
		{ID: 1, SessionID: "s1", Content: "First", Votes: 2},
	}}
	router := questionRouter(repo, &fakeUserRepo{byToken: map[string]types.User{}})

	req := httptest.NewRequest(http.MethodGet, "/questions/s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); !envelope.Success {
		t.Fatal("expected success=true")
	}
}

func TestSelfVoteReturnsNullPayload(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 7, DisplayName: "CleverOtter"},
	}}
	router := questionRouter(&fakeQuestionRepo{toggleResult: nil}, users)

	req := httptest.NewRequest(http.MethodPost, "/questions/42/vote", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if !envelope.Success {
		t.Fatal("expected success=true")
	}
	if envelope.Data != nil {
		t.Fatalf("expected null data for a self-vote, got %v", envelope.Data)
	}
}

func TestToggleVote(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 9, DisplayName: "BoldFalcon"},
	}}
	repo := &fakeQuestionRepo{
		toggleResult: &types.ToggleResult{QuestionID: 42, SessionID: "s1", Votes: 3, Added: true},
	}
	router := questionRouter(repo, users)

	req := httptest.NewRequest(http.MethodPost, "/questions/42/vote", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	payload, _ := json.Marshal(envelope.Data)
	var result types.ToggleResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.Added || result.Votes != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDeleteByNonOwner(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 9, DisplayName: "BoldFalcon"},
	}}
	router := questionRouter(&fakeQuestionRepo{deleteOK: false}, users)

	req := httptest.NewRequest(http.MethodDelete, "/questions/42", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data %v", envelope.Data)
	}
	if deleted, _ := data["deleted"].(bool); deleted {
		t.Fatal("expected deleted=false for a non-owner")
	}
}

func TestToggleVoteUnknownQuestion(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 9, DisplayName: "BoldFalcon"},
	}}
	router := questionRouter(&fakeQuestionRepo{toggleErr: store.ErrNotFound}, users)

	req := httptest.NewRequest(http.MethodPost, "/questions/999/vote", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown question, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if envelope := decodeEnvelope(t, rec); envelope.Success {
		t.Fatal("expected success=false")
	}
}

func TestInvalidQuestionID(t *testing.T) {
	users := &fakeUserRepo{byToken: map[string]types.User{
		"token-1": {ID: 9, DisplayName: "BoldFalcon"},
	}}
	router := questionRouter(&fakeQuestionRepo{}, users)

	req := httptest.NewRequest(http.MethodPost, "/questions/abc/vote", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
