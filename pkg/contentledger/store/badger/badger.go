// Package badger provides a contentledger.Store backed by BadgerDB.
package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// keyPrefix namespaces ledger entries so the database can be shared.
var keyPrefix = []byte("content/")

const maxConflictRetries = 16

// Store implements contentledger.Store on top of a BadgerDB instance.
type Store struct {
	db    *badger.DB
	owned bool
}

// New wraps an already open database. The caller keeps ownership of db.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Open opens a database at dir. An empty dir opens an in-memory database.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Store{db: db, owned: true}, nil
}

// Close closes the database if it was opened by Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixed(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, contentledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return value, nil
}

func (s *Store) Insert(ctx context.Context, key, value []byte) error {
	return s.retry(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(prefixed(key))
		if err == nil {
			return contentledger.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(prefixed(key), value)
	})
}

func (s *Store) Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error {
	return s.retry(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(prefixed(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return contentledger.ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		return txn.Set(prefixed(key), next)
	})
}

func (s *Store) Scan(ctx context.Context, fn func(key, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := bytes.TrimPrefix(item.KeyCopy(nil), keyPrefix)
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// retry runs fn in a read-write transaction, re-running it when Badger's
// optimistic concurrency control reports a conflicting commit.
func (s *Store) retry(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("transaction kept conflicting: %w", err)
}

func prefixed(key []byte) []byte {
	out := make([]byte, 0, len(keyPrefix)+len(key))
	out = append(out, keyPrefix...)
	return append(out, key...)
}
