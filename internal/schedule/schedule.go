// Package schedule exposes the conference programme to the API. The
// programme itself is owned by a spreadsheet maintained by the organisers;
// this package fetches it, caches it, and keeps a last-good snapshot in
// object storage so a spreadsheet outage never takes schedule reads down.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/confly-app/apiserver/internal/storage"
	"github.com/confly-app/apiserver/types"
)

// ErrSessionNotFound is returned when no session carries the requested id.
var ErrSessionNotFound = errors.New("session not found")

const snapshotKey = "schedule/latest.json"

// Source fetches the raw schedule rows from wherever the organisers keep
// them. The production implementation reads a Google Sheets range.
type Source interface {
	Fetch(ctx context.Context) ([][]any, error)
}

// Service serves parsed schedule data with a TTL cache and snapshot
// fallback. snapshots may be nil; fallback then degrades to the stale
// in-memory cache only.
type Service struct {
	source    Source
	snapshots *storage.Snapshots
	ttl       time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	sessions  []types.Session
	byID      map[string]types.Session
	fetchedAt time.Time
}

func NewService(source Source, snapshots *storage.Snapshots, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		source:    source,
		snapshots: snapshots,
		ttl:       ttl,
		logger:    logger,
		byID:      make(map[string]types.Session),
	}
}

// Sessions returns the full programme, refreshing the cache when stale.
func (s *Service) Sessions(ctx context.Context) ([]types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return s.sessions, nil
}

// SessionByID looks up one session by its opaque id.
func (s *Service) SessionByID(ctx context.Context, id string) (types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(ctx); err != nil {
		return types.Session{}, err
	}
	session, ok := s.byID[id]
	if !ok {
		return types.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) refreshLocked(ctx context.Context) error {
	if len(s.sessions) > 0 && time.Since(s.fetchedAt) < s.ttl {
		return nil
	}

	values, err := s.source.Fetch(ctx)
	if err == nil {
		s.install(ParseSessions(values))
		s.saveSnapshot(ctx)
		return nil
	}

	s.logger.Warn("schedule fetch failed, falling back", "error", err)

	// Degraded path: last snapshot from object storage, then whatever
	// stale cache is still in memory.
	if s.snapshots != nil {
		var sessions []types.Session
		if snapErr := s.snapshots.LoadJSON(ctx, snapshotKey, &sessions); snapErr == nil && len(sessions) > 0 {
			s.install(sessions)
			return nil
		}
	}
	if len(s.sessions) > 0 {
		return nil
	}
	return fmt.Errorf("schedule: fetching programme: %w", err)
}

func (s *Service) install(sessions []types.Session) {
	s.sessions = sessions
	s.byID = make(map[string]types.Session, len(sessions))
	for _, session := range sessions {
		s.byID[session.ID] = session
	}
	s.fetchedAt = time.Now()
}

func (s *Service) saveSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveJSON(ctx, snapshotKey, s.sessions); err != nil {
		s.logger.Warn("schedule snapshot save failed", "error", err)
	}
}

// ParseSessions converts raw spreadsheet rows into sessions. Expected column
// order: id, title, stage, speaker, start time, end time (RFC 3339). Rows
// missing an id, a title, or a parseable start time are skipped.
func ParseSessions(values [][]any) []types.Session {
	sessions := make([]types.Session, 0, len(values))
	for _, row := range values {
		session := types.Session{
			ID:      cell(row, 0),
			Title:   cell(row, 1),
			Stage:   cell(row, 2),
			Speaker: cell(row, 3),
		}
		if session.ID == "" || session.Title == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, cell(row, 4))
		if err != nil {
			continue
		}
		session.StartTime = start
		if end, err := time.Parse(time.RFC3339, cell(row, 5)); err == nil {
			session.EndTime = end
		}
		sessions = append(sessions, session)
	}
	return sessions
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	value, ok := row[i].(string)
	if !ok {
		return ""
	}
	return value
}
