package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tendant/content-ledger/pkg/contentledger/store/badger"
	"github.com/tendant/content-ledger/pkg/contentledger/storetest"
)

func TestBadgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) contentledger.Store {
		store, err := badger.Open("")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := make([]byte, contentledger.KeySize)

	store, err := badger.Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, key, []byte("persisted")))
	require.NoError(t, store.Close())

	store, err = badger.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), value)
}
