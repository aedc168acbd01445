package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/confly-app/apiserver/types"
)

const (
	pointsFirstVote       = 3
	pointsPerExtraVote    = 1
	pointsSessionTopBonus = 5
)

// LeaderboardService derives per-user scores from question and vote state
// across all sessions. Results are cached with a short TTL; when a recompute
// fails, the last good result is served instead of the error.
type LeaderboardService struct {
	stats  StatsProvider
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	cached     []types.LeaderboardEntry
	computedAt time.Time
	hasCache   bool
}

// StatsProvider yields the per-question aggregates the scoring runs over.
type StatsProvider interface {
	Stats(ctx context.Context) ([]types.QuestionStat, error)
}

func NewLeaderboardService(stats StatsProvider, ttl time.Duration, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		stats:  stats,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the ranked leaderboard, recomputing when the cache is stale.
// limit <= 0 returns all entries.
func (s *LeaderboardService) Get(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCache || s.now().Sub(s.computedAt) >= s.ttl {
		stats, err := s.stats.Stats(ctx)
		if err != nil {
			if !s.hasCache {
				return nil, err
			}
			s.logger.Warn("leaderboard recompute failed, serving cached result", "error", err)
		} else {
			s.cached = Compute(stats)
			s.computedAt = s.now()
			s.hasCache = true
		}
	}

	entries := s.cached
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := make([]types.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Compute scores every question author:
//   - a question with v >= 1 votes contributes 3 + (v - 1) points;
//   - the most-voted question of each session (ties: earliest creation wins)
//     adds a 5-point bonus when it has at least one vote.
//
// Entries come back sorted by score descending.
func Compute(stats []types.QuestionStat) []types.LeaderboardEntry {
	byUser := make(map[int64]*types.LeaderboardEntry)
	sessionTop := make(map[string]types.QuestionStat)

	for _, stat := range stats {
		entry, ok := byUser[stat.AuthorID]
		if !ok {
			entry = &types.LeaderboardEntry{
				UserID:      stat.AuthorID,
				DisplayName: stat.AuthorName,
			}
			byUser[stat.AuthorID] = entry
		}
		entry.QuestionsAsked++
		entry.UpvotesReceived += stat.Votes
		if stat.Votes >= 1 {
			entry.Score += pointsFirstVote + pointsPerExtraVote*(stat.Votes-1)
		}

		top, ok := sessionTop[stat.SessionID]
		if !ok || stat.Votes > top.Votes ||
			(stat.Votes == top.Votes && stat.CreatedAt.Before(top.CreatedAt)) {
			sessionTop[stat.SessionID] = stat
		}
	}

	for _, top := range sessionTop {
		if top.Votes >= 1 {
			byUser[top.AuthorID].Score += pointsSessionTopBonus
		}
	}

	entries := make([]types.LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}
