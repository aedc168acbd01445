package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write loses to a uniqueness constraint,
// e.g. a display name already held by another user.
var ErrConflict = errors.New("conflict")

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique_violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
