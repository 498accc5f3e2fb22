package ledger

import "errors"

var (
	// ErrNotAuthorized means the actor may not perform the operation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrOutOfWindow means the target date is outside the allowed window.
	ErrOutOfWindow = errors.New("outside the allowed window")
	ErrNotFound    = errors.New("not found")
	// ErrInvalidState means the record is not in a state that permits the
	// operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrContended means a compare-and-swap kept losing to concurrent writers.
	ErrContended = errors.New("too many concurrent updates")
)

// maxAttempts bounds compare-and-swap retries.
const maxAttempts = 5
