package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/confly-app/apiserver/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStats struct {
	stats []types.QuestionStat
	err   error
	calls int
}

func (f *fakeStats) Stats(ctx context.Context) ([]types.QuestionStat, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func TestComputeScoring(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	stats := []types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "CleverOtter", Votes: 3, CreatedAt: base},
		{QuestionID: 2, SessionID: "s1", AuthorID: 2, AuthorName: "BoldFalcon", Votes: 1, CreatedAt: base.Add(time.Minute)},
		{QuestionID: 3, SessionID: "s2", AuthorID: 2, AuthorName: "BoldFalcon", Votes: 0, CreatedAt: base},
	}

	entries := Compute(stats)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Author 1: 3 votes -> 3 + 2 = 5, plus 5 for topping s1 -> 10.
	if entries[0].UserID != 1 || entries[0].Score != 10 {
		t.Fatalf("expected user 1 with score 10 first, got user %d score %d", entries[0].UserID, entries[0].Score)
	}
	// Author 2: question 2 has 1 vote -> 3; question 3 tops s2 but has no
	// votes, so no bonus.
	if entries[1].UserID != 2 || entries[1].Score != 3 {
		t.Fatalf("expected user 2 with score 3, got user %d score %d", entries[1].UserID, entries[1].Score)
	}

	if entries[1].QuestionsAsked != 2 || entries[1].UpvotesReceived != 1 {
		t.Fatalf("expected user 2 with 2 questions and 1 upvote, got %d/%d",
			entries[1].QuestionsAsked, entries[1].UpvotesReceived)
	}
}

func TestComputeZeroVoteQuestionScoresNothing(t *testing.T) {
	entries := Compute([]types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "CleverOtter", Votes: 0},
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Score != 0 {
		t.Fatalf("expected score 0 for an unvoted question, got %d", entries[0].Score)
	}
}

func TestComputeSessionTopTieEarliestWins(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := Compute([]types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "A", Votes: 2, CreatedAt: base.Add(time.Hour)},
		{QuestionID: 2, SessionID: "s1", AuthorID: 2, AuthorName: "B", Votes: 2, CreatedAt: base},
	})

	var scoreA, scoreB int
	for _, e := range entries {
		switch e.UserID {
		case 1:
			scoreA = e.Score
		case 2:
			scoreB = e.Score
		}
	}
	// Both questions score 3 + 1 = 4; the earlier one takes the 5-point bonus.
	if scoreB != 9 {
		t.Fatalf("expected earlier question's author to score 9, got %d", scoreB)
	}
	if scoreA != 4 {
		t.Fatalf("expected later question's author to score 4, got %d", scoreA)
	}
}

func TestLeaderboardCacheServesWithoutRecompute(t *testing.T) {
	stats := &fakeStats{stats: []types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "A", Votes: 1},
	}}
	svc := NewLeaderboardService(stats, time.Minute, testLogger())

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	if _, err := svc.Get(context.Background(), 0); err != nil {
		t.Fatalf("get: %v", err)
	}
	now = now.Add(30 * time.Second)
	if _, err := svc.Get(context.Background(), 0); err != nil {
		t.Fatalf("get: %v", err)
	}
	if stats.calls != 1 {
		t.Fatalf("expected 1 recompute within ttl, got %d", stats.calls)
	}

	now = now.Add(time.Minute)
	if _, err := svc.Get(context.Background(), 0); err != nil {
		t.Fatalf("get: %v", err)
	}
	if stats.calls != 2 {
		t.Fatalf("expected recompute after ttl, got %d calls", stats.calls)
	}
}

func TestLeaderboardServesLastGoodOnError(t *testing.T) {
	stats := &fakeStats{stats: []types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "A", Votes: 1},
	}}
	svc := NewLeaderboardService(stats, time.Minute, testLogger())

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first, err := svc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	stats.err = errors.New("db down")
	now = now.Add(2 * time.Minute)

	second, err := svc.Get(context.Background(), 0)
	if err != nil {
		t.Fatalf("expected cached result on recompute failure, got error: %v", err)
	}
	if len(second) != len(first) || second[0].UserID != first[0].UserID {
		t.Fatalf("expected cached entries, got %+v", second)
	}
}

func TestLeaderboardErrorWithNoCache(t *testing.T) {
	stats := &fakeStats{err: errors.New("db down")}
	svc := NewLeaderboardService(stats, time.Minute, testLogger())

	if _, err := svc.Get(context.Background(), 0); err == nil {
		t.Fatal("expected error when no cached result exists")
	}
}

func TestLeaderboardLimit(t *testing.T) {
	stats := &fakeStats{stats: []types.QuestionStat{
		{QuestionID: 1, SessionID: "s1", AuthorID: 1, AuthorName: "A", Votes: 5},
		{QuestionID: 2, SessionID: "s1", AuthorID: 2, AuthorName: "B", Votes: 2},
		{QuestionID: 3, SessionID: "s2", AuthorID: 3, AuthorName: "C", Votes: 1},
	}}
	svc := NewLeaderboardService(stats, time.Minute, testLogger())

	entries, err := svc.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries with limit=2, got %d", len(entries))
	}
	if entries[0].UserID != 1 {
		t.Fatalf("expected highest scorer first, got user %d", entries[0].UserID)
	}
}
