package contentledger

import (
	"context"
	"errors"
	"fmt"
)

// Ledger is the authoritative mapping from content key to content record and
// contribution shares. It never persists an entry whose shares do not sum to
// exactly 100, and callers only ever receive copies of stored state.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger backed by store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Exists reports whether key is present.
func (l *Ledger) Exists(ctx context.Context, key Key) (bool, error) {
	_, err := l.store.Get(ctx, key[:])
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the entry stored under key, or ErrNotFound.
func (l *Ledger) Get(ctx context.Context, key Key) (*Entry, error) {
	value, err := l.store.Get(ctx, key[:])
	if err != nil {
		return nil, err
	}
	entry, err := decodeEntry(key, value)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Insert stores a new entry. It fails with ErrAlreadyExists if key is present
// and with ErrInvalidContributionSplit if shares do not sum to 100.
func (l *Ledger) Insert(ctx context.Context, key Key, record ContentRecord, shares []ContributionShare) error {
	if err := ValidateShares(shares); err != nil {
		return err
	}
	value, err := encodeEntry(record, shares)
	if err != nil {
		return err
	}
	return l.store.Insert(ctx, key[:], value)
}

// Update replaces the entry stored under key. It fails with ErrNotFound if key
// is absent and with ErrInvalidContributionSplit if shares do not sum to 100.
func (l *Ledger) Update(ctx context.Context, key Key, record ContentRecord, shares []ContributionShare) error {
	if err := ValidateShares(shares); err != nil {
		return err
	}
	return l.Modify(ctx, key, func(Entry) (Entry, error) {
		return Entry{Key: key, Record: record.Clone(), Shares: cloneShares(shares)}, nil
	})
}

// Modify atomically reads the entry under key, passes a copy to fn and stores
// the entry fn returns. Nothing is written if fn fails or its result breaks
// the 100% contribution split. fn may run more than once when the store
// retries a conflicting write.
func (l *Ledger) Modify(ctx context.Context, key Key, fn func(current Entry) (Entry, error)) error {
	return l.store.Update(ctx, key[:], func(current []byte) ([]byte, error) {
		entry, err := decodeEntry(key, current)
		if err != nil {
			return nil, err
		}
		next, err := fn(entry)
		if err != nil {
			return nil, err
		}
		if next.Key != key {
			return nil, fmt.Errorf("%w: entry key cannot change on update", ErrInvalidRequest)
		}
		if err := ValidateShares(next.Shares); err != nil {
			return nil, err
		}
		return encodeEntry(next.Record, next.Shares)
	})
}

// Scan calls fn for every entry in ascending key order.
func (l *Ledger) Scan(ctx context.Context, fn func(entry Entry) error) error {
	return l.store.Scan(ctx, func(rawKey, value []byte) error {
		key, err := KeyFromBytes(rawKey)
		if err != nil {
			return err
		}
		entry, err := decodeEntry(key, value)
		if err != nil {
			return err
		}
		return fn(entry)
	})
}
