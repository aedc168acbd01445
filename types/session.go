package types

import "time"

// Session represents one conference talk/slot as published by the schedule
// spreadsheet. The Q&A core only ever uses the ID as an opaque key; the rest
// of the fields exist for the schedule read API.
type Session struct {
	// ID is the opaque session key referenced by questions and SSE streams.
	ID string `json:"id"`

	// Title is the talk title.
	Title string `json:"title"`

	// Stage is the room or stage name the talk happens on.
	Stage string `json:"stage"`

	// Speaker is the speaker's name as listed in the schedule.
	Speaker string `json:"speaker,omitempty"`

	// StartTime is when the talk begins.
	StartTime time.Time `json:"startTime"`

	// EndTime is when the talk ends. Zero when the spreadsheet row does
	// not carry one.
	EndTime time.Time `json:"endTime,omitzero"`
}
