// Package memory provides an in-memory contentledger.Store for development
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tidwall/btree"
)

// Store implements contentledger.Store on an ordered in-memory map
type Store struct {
	mu      sync.RWMutex
	entries btree.Map[string, []byte]
}

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.entries.Get(string(key))
	if !exists {
		return nil, contentledger.ErrNotFound
	}
	// Return a copy to prevent external modifications
	return clone(value), nil
}

func (s *Store) Insert(ctx context.Context, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries.Get(string(key)); exists {
		return contentledger.ErrAlreadyExists
	}
	s.entries.Set(string(key), clone(value))
	return nil
}

func (s *Store) Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.entries.Get(string(key))
	if !exists {
		return contentledger.ErrNotFound
	}
	next, err := fn(clone(current))
	if err != nil {
		return err
	}
	s.entries.Set(string(key), clone(next))
	return nil
}

func (s *Store) Scan(ctx context.Context, fn func(key, value []byte) error) error {
	// Snapshot under the lock so fn may call back into the store.
	type pair struct {
		key, value []byte
	}
	s.mu.RLock()
	pairs := make([]pair, 0, s.entries.Len())
	s.entries.Scan(func(key string, value []byte) bool {
		pairs = append(pairs, pair{key: []byte(key), value: clone(value)})
		return true
	})
	s.mu.RUnlock()

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
