package contentledger

import (
	"errors"
	"fmt"
)

// Ledger level errors
var (
	// ErrAlreadyExists indicates an insert collided with an existing key
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound indicates the referenced key is absent
	ErrNotFound = errors.New("not found")

	// ErrInvalidContributionSplit indicates contribution percentages do not sum to exactly 100
	ErrInvalidContributionSplit = errors.New("invalid contribution split")

	// ErrOverflow indicates a counter would exceed its representable range
	ErrOverflow = errors.New("counter overflow")

	// ErrInvalidKey indicates a key could not be parsed
	ErrInvalidKey = errors.New("invalid content key")
)

// Service level errors
var (
	// ErrContentAlreadyExists indicates identical content is already registered.
	// It matches ErrAlreadyExists with errors.Is.
	ErrContentAlreadyExists = fmt.Errorf("content %w", ErrAlreadyExists)

	// ErrNoContentPresent indicates the referenced content does not exist.
	// It matches ErrNotFound with errors.Is.
	ErrNoContentPresent = fmt.Errorf("content %w", ErrNotFound)

	// ErrUnauthorized indicates the caller holds no share of the content
	ErrUnauthorized = errors.New("caller is not a contributor")

	// ErrInvalidRequest indicates malformed operation input
	ErrInvalidRequest = errors.New("invalid request")
)

// ContentError represents an error related to a ledger operation
type ContentError struct {
	Key Key
	Op  string
	Err error
}

func (e *ContentError) Error() string {
	if e.Key.IsZero() {
		return fmt.Sprintf("content operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.Key, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}
