package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/confly-app/apiserver/types"
)

// QuestionRepository defines persistence operations for questions and votes.
type QuestionRepository interface {
	ListBySession(ctx context.Context, sessionID string, viewerID int64) ([]types.Question, error)
	Create(ctx context.Context, question types.Question) (types.Question, error)
	Delete(ctx context.Context, questionID, requesterID int64) (types.Question, bool, error)
	ToggleVote(ctx context.Context, questionID, userID int64) (*types.ToggleResult, error)
	Stats(ctx context.Context) ([]types.QuestionStat, error)
}

// QuestionService encapsulates question and vote use-cases.
type QuestionService struct {
	repo   QuestionRepository
	events EventPublisher
	logger *slog.Logger
}

func NewQuestionService(repo QuestionRepository, events EventPublisher, logger *slog.Logger) *QuestionService {
	return &QuestionService{repo: repo, events: events, logger: logger}
}

// ListBySession returns the session's questions ordered by vote count, ties
// newest-first. viewer may be nil for anonymous reads.
func (s *QuestionService) ListBySession(ctx context.Context, sessionID string, viewer *types.User) ([]types.Question, error) {
	var viewerID int64
	if viewer != nil {
		viewerID = viewer.ID
	}
	return s.repo.ListBySession(ctx, sessionID, viewerID)
}

// Add posts a new question and pushes a question_added event to the
// session's subscribers.
func (s *QuestionService) Add(ctx context.Context, sessionID, content string, author types.User) (types.Question, error) {
	sessionID = strings.TrimSpace(sessionID)
	content = strings.TrimSpace(content)
	if sessionID == "" {
		return types.Question{}, fmt.Errorf("%w: sessionId is required", ErrValidation)
	}
	if content == "" {
		return types.Question{}, fmt.Errorf("%w: content is required", ErrValidation)
	}

	question, err := s.repo.Create(ctx, types.Question{
		SessionID: sessionID,
		Content:   content,
		AuthorID:  author.ID,
	})
	if err != nil {
		return types.Question{}, err
	}
	question.AuthorName = author.DisplayName

	s.events.PublishSession(ctx, sessionID, types.Event{
		Type: types.EventQuestionAdded,
		Data: question,
	})
	return question, nil
}

// Delete removes a question when the requester is its author. The bool
// result reports whether anything was deleted; a non-owner attempt is a
// normal false outcome, not an error.
func (s *QuestionService) Delete(ctx context.Context, questionID, requesterID int64) (bool, error) {
	question, deleted, err := s.repo.Delete(ctx, questionID, requesterID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	s.events.PublishSession(ctx, question.SessionID, types.Event{
		Type: types.EventQuestionDeleted,
		Data: map[string]any{"id": question.ID},
	})
	return true, nil
}

// ToggleVote flips the (question, user) vote. A nil result with a nil error
// means the voter authored the question and the toggle was silently ignored.
// On an actual change a vote_updated event goes out to the session.
func (s *QuestionService) ToggleVote(ctx context.Context, questionID int64, voter types.User) (*types.ToggleResult, error) {
	result, err := s.repo.ToggleVote(ctx, questionID, voter.ID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	s.events.PublishSession(ctx, result.SessionID, types.Event{
		Type: types.EventVoteUpdated,
		Data: result,
	})
	return result, nil
}

// Stats exposes per-question aggregates for the leaderboard calculator.
func (s *QuestionService) Stats(ctx context.Context) ([]types.QuestionStat, error) {
	return s.repo.Stats(ctx)
}
