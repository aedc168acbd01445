package types

// LeaderboardEntry is a derived, never-persisted aggregate of a user's Q&A
// activity across all sessions.
//
// Scoring: a question with at least one vote is worth 3 points plus 1 point
// for every vote beyond the first. The single most-voted question of each
// session (earliest creation time wins ties) earns its author a 5-point
// bonus, provided it has at least one vote.
type LeaderboardEntry struct {
	// UserID is the identifier of the scored user.
	UserID int64 `json:"userId"`

	// DisplayName is the user's current display name.
	DisplayName string `json:"displayName"`

	// QuestionsAsked is the number of questions the user has posted.
	QuestionsAsked int `json:"questionsAsked"`

	// UpvotesReceived is the total number of votes across the user's
	// questions. Reported separately; it does not feed the score beyond
	// the per-question contributions already counted.
	UpvotesReceived int `json:"upvotesReceived"`

	// Score is the user's computed leaderboard score.
	Score int `json:"score"`
}
