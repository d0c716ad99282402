// Package storetest holds the behavioural checks every contentledger.Store
// implementation must pass.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) contentledger.Store

// Run exercises the Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		store := newStore(t)
		value, err := store.Get(ctx, key(1))
		assert.ErrorIs(t, err, contentledger.ErrNotFound)
		assert.Nil(t, value)
	})

	t.Run("InsertThenGet", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, key(1), []byte("one")))

		value, err := store.Get(ctx, key(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), value)
	})

	t.Run("InsertDuplicate", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, key(1), []byte("one")))

		err := store.Insert(ctx, key(1), []byte("other"))
		assert.ErrorIs(t, err, contentledger.ErrAlreadyExists)

		value, err := store.Get(ctx, key(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), value, "duplicate insert must not overwrite")
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		store := newStore(t)
		called := false
		err := store.Update(ctx, key(1), func(current []byte) ([]byte, error) {
			called = true
			return current, nil
		})
		assert.ErrorIs(t, err, contentledger.ErrNotFound)
		assert.False(t, called)
	})

	t.Run("UpdateReplaces", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, key(1), []byte("one")))

		err := store.Update(ctx, key(1), func(current []byte) ([]byte, error) {
			assert.Equal(t, []byte("one"), current)
			return []byte("two"), nil
		})
		require.NoError(t, err)

		value, err := store.Get(ctx, key(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), value)
	})

	t.Run("UpdateAbortLeavesValue", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, key(1), []byte("one")))

		boom := errors.New("boom")
		err := store.Update(ctx, key(1), func(current []byte) ([]byte, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		value, err := store.Get(ctx, key(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), value)
	})

	t.Run("ScanOrdered", func(t *testing.T) {
		store := newStore(t)
		for _, i := range []byte{3, 1, 2} {
			require.NoError(t, store.Insert(ctx, key(i), []byte{i}))
		}

		var keys [][]byte
		err := store.Scan(ctx, func(k, v []byte) error {
			keys = append(keys, k)
			assert.Equal(t, []byte{k[len(k)-1]}, v)
			return nil
		})
		require.NoError(t, err)
		require.Len(t, keys, 3)
		for i := 1; i < len(keys); i++ {
			assert.Equal(t, -1, bytes.Compare(keys[i-1], keys[i]), "scan must be ascending")
		}
	})

	t.Run("ScanStops", func(t *testing.T) {
		store := newStore(t)
		for _, i := range []byte{1, 2, 3} {
			require.NoError(t, store.Insert(ctx, key(i), []byte{i}))
		}

		stop := errors.New("stop")
		seen := 0
		err := store.Scan(ctx, func(k, v []byte) error {
			seen++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, seen)
	})

	t.Run("ConcurrentInsertOneWinner", func(t *testing.T) {
		store := newStore(t)
		const writers = 8

		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- store.Insert(ctx, key(9), []byte(fmt.Sprintf("writer-%d", i)))
			}(i)
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, contentledger.ErrAlreadyExists)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("ConcurrentUpdatesSerialize", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, key(5), []byte{0}))
		const writers = 8

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(ctx, key(5), func(current []byte) ([]byte, error) {
					return []byte{current[0] + 1}, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		value, err := store.Get(ctx, key(5))
		require.NoError(t, err)
		assert.Equal(t, []byte{writers}, value, "no update may be lost")
	})
}

func key(i byte) []byte {
	k := make([]byte, contentledger.KeySize)
	k[len(k)-1] = i
	return k
}
