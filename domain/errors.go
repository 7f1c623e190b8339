package domain

import "errors"

var (
	// ErrNotFound covers both a missing record and a record owned by another
	// user. The two cases are indistinguishable to callers so existence of
	// other users' tasks never leaks.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("already exists")

	// ErrUnavailable is returned when the persistence backend is unreachable.
	ErrUnavailable = errors.New("storage unavailable")
)

// ValidationError reports a malformed task or user field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
