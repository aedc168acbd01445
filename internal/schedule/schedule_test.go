package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	values [][]any
	err    error
	calls  int
}

func (f *fakeSource) Fetch(ctx context.Context) ([][]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.values, nil
}

func scheduleRows() [][]any {
	return [][]any{
		{"s1", "Opening Keynote", "Main Stage", "Dana Reyes", "2026-06-01T09:00:00Z", "2026-06-01T10:00:00Z"},
		{"s2", "Go Concurrency Patterns", "Track B", "Ines Kovac", "2026-06-01T10:30:00Z", "2026-06-01T11:15:00Z"},
	}
}

func TestParseSessions(t *testing.T) {
	sessions := ParseSessions(scheduleRows())
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	first := sessions[0]
	if first.ID != "s1" || first.Title != "Opening Keynote" || first.Stage != "Main Stage" || first.Speaker != "Dana Reyes" {
		t.Fatalf("unexpected session %+v", first)
	}
	want := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if !first.StartTime.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, first.StartTime)
	}
}

func TestParseSessionsSkipsMalformedRows(t *testing.T) {
	rows := [][]any{
		{"", "No ID", "Stage", "Speaker", "2026-06-01T09:00:00Z"},
		{"s1", "", "Stage", "Speaker", "2026-06-01T09:00:00Z"},
		{"s2", "Bad Start", "Stage", "Speaker", "yesterday"},
		{"s3", "Short Row"},
		{"s4", "Good", "Stage", "Speaker", "2026-06-01T09:00:00Z"},
	}
	sessions := ParseSessions(rows)
	if len(sessions) != 1 || sessions[0].ID != "s4" {
		t.Fatalf("expected only the well-formed row, got %+v", sessions)
	}
}

func TestSessionsCachesWithinTTL(t *testing.T) {
	source := &fakeSource{values: scheduleRows()}
	svc := NewService(source, nil, time.Hour, testLogger())

	if _, err := svc.Sessions(context.Background()); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if _, err := svc.Sessions(context.Background()); err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 fetch within ttl, got %d", source.calls)
	}
}

func TestSessionByID(t *testing.T) {
	source := &fakeSource{values: scheduleRows()}
	svc := NewService(source, nil, time.Hour, testLogger())

	session, err := svc.SessionByID(context.Background(), "s2")
	if err != nil {
		t.Fatalf("session by id: %v", err)
	}
	if session.Title != "Go Concurrency Patterns" {
		t.Fatalf("unexpected session %+v", session)
	}

	_, err = svc.SessionByID(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStaleCacheServedWhenFetchFails(t *testing.T) {
	source := &fakeSource{values: scheduleRows()}
	svc := NewService(source, nil, time.Nanosecond, testLogger())

	first, err := svc.Sessions(context.Background())
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}

	source.err = errors.New("sheets unavailable")
	time.Sleep(time.Millisecond)

	second, err := svc.Sessions(context.Background())
	if err != nil {
		t.Fatalf("expected stale cache on fetch failure, got error: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected cached sessions, got %+v", second)
	}
}

func TestFetchFailureWithNothingCached(t *testing.T) {
	source := &fakeSource{err: errors.New("sheets unavailable")}
	svc := NewService(source, nil, time.Hour, testLogger())

	if _, err := svc.Sessions(context.Background()); err == nil {
		t.Fatal("expected error when no fallback exists")
	}
}
