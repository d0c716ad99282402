package contentledger

import "context"

// Service defines the operations a deployment exposes over the ledger.
// Every mutating operation takes an already authenticated caller.
type Service interface {
	// Create registers new content wholly owned by caller.
	Create(ctx context.Context, caller AccountID, req CreateContentRequest) (Key, error)

	// Fork derives new content from req.SourceKey, wholly owned by caller.
	Fork(ctx context.Context, caller AccountID, req ForkContentRequest) (Key, error)

	// Merge updates req.Key in place. Only current contributors may merge.
	Merge(ctx context.Context, caller AccountID, req MergeContentRequest) error

	// Read-only lookups
	Get(ctx context.Context, key Key) (*Entry, error)
	ListForks(ctx context.Context, key Key) ([]Key, error)
	Lineage(ctx context.Context, key Key) ([]Key, error)

	// Close releases the underlying store if it holds resources.
	Close() error
}
