package contentledger

import "context"

// Store is the byte-keyed persistence behind a Ledger.
//
// Implementations must serialize Insert and Update per key: of two racing
// Inserts for the same key exactly one succeeds, and an Update never observes
// or leaves behind a partial write.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Insert stores value under key, or fails with ErrAlreadyExists.
	Insert(ctx context.Context, key, value []byte) error

	// Update atomically replaces the value under key with fn's result.
	// It fails with ErrNotFound if key is absent. If fn returns an error the
	// stored value is left unchanged and the error is returned as is.
	// fn may be invoked more than once and must not have side effects.
	Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error

	// Scan calls fn for every stored pair in ascending key order. Returning
	// an error from fn stops the scan.
	Scan(ctx context.Context, fn func(key, value []byte) error) error
}
