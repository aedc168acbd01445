package types

// Event names pushed over the SSE stream. Clients treat every event as a
// hint to refresh, not as the sole source of truth: delivery is at-most-once.
const (
	// EventConnected acknowledges a freshly opened subscription.
	EventConnected = "connected"

	// EventQuestionAdded carries the newly posted question.
	EventQuestionAdded = "question_added"

	// EventQuestionDeleted carries the id of a removed question.
	EventQuestionDeleted = "question_deleted"

	// EventVoteUpdated carries a question id, its new vote count, and
	// whether the toggle added or removed a vote.
	EventVoteUpdated = "vote_updated"

	// EventUserUpdated carries a user id and new display name. Fanned out
	// to every session, since a rename affects author names anywhere the
	// user has posted; clients filter by author id.
	EventUserUpdated = "user_updated"
)

// Event is the wire shape of a single push frame: it is serialised as
// {"type": ..., "data": ...} and written as one SSE data frame.
type Event struct {
	// Type is one of the Event* constants above.
	Type string `json:"type"`

	// Data is the event payload; its shape depends on Type.
	Data any `json:"data"`
}
