package migrate

import "errors"

var (
	// ErrInvalidAttempts is returned by a Backoff allowing no attempts.
	ErrInvalidAttempts = errors.New("retry attempts must be at least 1")

	// ErrUpdateRequired is returned when a migration has no update document.
	ErrUpdateRequired = errors.New("update document required")
)
