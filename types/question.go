package types

import "time"

// Question represents an audience question posted against a conference
// session. Content is immutable once posted; a question can only be removed,
// and only by its author.
type Question struct {
	// ID is the unique identifier of the question.
	ID int64 `json:"id" db:"id"`

	// SessionID is the opaque key of the conference session (talk/slot)
	// the question belongs to. The Q&A core does not interpret it; the
	// schedule subsystem owns its meaning.
	SessionID string `json:"sessionId" db:"session_id"`

	// Content is the free-text body of the question.
	Content string `json:"content" db:"content"`

	// AuthorID is the identifier of the user who posted the question.
	AuthorID int64 `json:"authorId" db:"author_id"`

	// AuthorName is the author's display name at read time. Clients patch
	// this in place when a user_updated event arrives.
	AuthorName string `json:"authorName" db:"author_name"`

	// Votes is the live number of upvotes on the question. Derived from
	// the votes table, never stored on the question row.
	Votes int `json:"votes" db:"votes"`

	// HasUserVoted reports whether the requesting user has voted on this
	// question. Always false for anonymous reads.
	HasUserVoted bool `json:"hasUserVoted" db:"has_user_voted"`

	// CreatedAt is the timestamp at which the question was posted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ToggleResult describes the outcome of a vote toggle that actually changed
// state. A self-vote attempt produces no ToggleResult at all; callers receive
// nil instead, because a silently ignored self-vote is an expected outcome,
// not an error.
type ToggleResult struct {
	// QuestionID is the question whose vote state changed.
	QuestionID int64 `json:"questionId"`

	// SessionID is the session the question belongs to; it addresses the
	// vote_updated broadcast.
	SessionID string `json:"sessionId"`

	// Votes is the question's vote count after the toggle.
	Votes int `json:"votes"`

	// Added is true when the toggle created a vote and false when it
	// removed one.
	Added bool `json:"added"`
}

// QuestionStat is a per-question aggregate used by the leaderboard
// calculator: who asked it, in which session, and how many votes it holds.
type QuestionStat struct {
	// QuestionID is the unique identifier of the question.
	QuestionID int64 `json:"questionId"`

	// SessionID is the session the question belongs to.
	SessionID string `json:"sessionId"`

	// AuthorID is the identifier of the question's author.
	AuthorID int64 `json:"authorId"`

	// AuthorName is the author's current display name.
	AuthorName string `json:"authorName"`

	// Votes is the number of votes on the question.
	Votes int `json:"votes"`

	// CreatedAt is the timestamp at which the question was posted. Used as
	// the tie-break when selecting the most-voted question of a session.
	CreatedAt time.Time `json:"created_at"`
}
