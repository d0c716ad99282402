package contentledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-ledger/pkg/contentledger"
	"github.com/tendant/content-ledger/pkg/contentledger/store/memory"
	"pgregory.net/rapid"
)

var holders = []contentledger.AccountID{"alice", "bob", "carol", "dave", "erin"}

// genShares draws arbitrary share lists, most of which do not sum to 100.
func genShares(t *rapid.T) []contentledger.ContributionShare {
	n := rapid.IntRange(0, 4).Draw(t, "n")
	shares := make([]contentledger.ContributionShare, n)
	for i := range shares {
		shares[i] = contentledger.ContributionShare{
			Holder:     rapid.SampledFrom(holders).Draw(t, "holder"),
			Percentage: rapid.Uint8().Draw(t, "percentage"),
		}
	}
	return shares
}

// genValidSplit draws a split among distinct holders that sums to exactly 100.
func genValidSplit(t *rapid.T) []contentledger.ContributionShare {
	n := rapid.IntRange(1, len(holders)).Draw(t, "holders")
	perm := rapid.Permutation(holders).Draw(t, "perm")
	shares := make([]contentledger.ContributionShare, n)
	remaining := 100
	for i := 0; i < n-1; i++ {
		p := rapid.IntRange(0, remaining).Draw(t, "percentage")
		shares[i] = contentledger.ContributionShare{Holder: perm[i], Percentage: uint8(p)}
		remaining -= p
	}
	shares[n-1] = contentledger.ContributionShare{Holder: perm[n-1], Percentage: uint8(remaining)}
	return shares
}

func sumShares(shares []contentledger.ContributionShare) int {
	total := 0
	for _, share := range shares {
		total += int(share.Percentage)
	}
	return total
}

func TestValidateShares(t *testing.T) {
	tests := []struct {
		name   string
		shares []contentledger.ContributionShare
		valid  bool
	}{
		{"single owner", []contentledger.ContributionShare{{Holder: "alice", Percentage: 100}}, true},
		{"split", []contentledger.ContributionShare{{Holder: "alice", Percentage: 60}, {Holder: "bob", Percentage: 40}}, true},
		{"zero share allowed", []contentledger.ContributionShare{{Holder: "alice", Percentage: 100}, {Holder: "bob", Percentage: 0}}, true},
		{"empty", nil, false},
		{"under", []contentledger.ContributionShare{{Holder: "alice", Percentage: 99}}, false},
		{"over", []contentledger.ContributionShare{{Holder: "alice", Percentage: 60}, {Holder: "bob", Percentage: 41}}, false},
		{"wraps uint8", []contentledger.ContributionShare{{Holder: "alice", Percentage: 200}, {Holder: "bob", Percentage: 156}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := contentledger.ValidateShares(tt.shares)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, contentledger.ErrInvalidContributionSplit)
			}
		})
	}
}

func TestLedger_InsertConservesSplit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		ledger := contentledger.NewLedger(memory.New())
		key := rapid.Custom(genKey).Draw(t, "key")
		record := rapid.Custom(genRecord).Draw(t, "record")
		shares := rapid.Custom(genShares).Draw(t, "shares")

		err := ledger.Insert(ctx, key, record, shares)
		exists, existsErr := ledger.Exists(ctx, key)
		require.NoError(t, existsErr)

		if sumShares(shares) == 100 {
			require.NoError(t, err)
			assert.True(t, exists)
		} else {
			assert.ErrorIs(t, err, contentledger.ErrInvalidContributionSplit)
			assert.False(t, exists, "rejected insert must not mutate the ledger")
		}
	})
}

func TestLedger_UpdateConservesSplit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		ledger := contentledger.NewLedger(memory.New())
		key := rapid.Custom(genKey).Draw(t, "key")
		record := rapid.Custom(genRecord).Draw(t, "record")
		initial := rapid.Custom(genValidSplit).Draw(t, "initial")
		require.NoError(t, ledger.Insert(ctx, key, record, initial))

		for i := 0; i < 5; i++ {
			before, err := ledger.Get(ctx, key)
			require.NoError(t, err)

			next := rapid.Custom(genShares).Draw(t, "next")
			err = ledger.Update(ctx, key, before.Record, next)

			after, getErr := ledger.Get(ctx, key)
			require.NoError(t, getErr)
			assert.Equal(t, 100, sumShares(after.Shares))
			if sumShares(next) == 100 {
				require.NoError(t, err)
				assert.Equal(t, next, after.Shares)
			} else {
				assert.ErrorIs(t, err, contentledger.ErrInvalidContributionSplit)
				assert.Equal(t, before.Shares, after.Shares)
			}
		}
	})
}

func TestLedger_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	ledger := contentledger.NewLedger(memory.New())
	key := contentledger.Key{1}
	shares := []contentledger.ContributionShare{{Holder: "alice", Percentage: 100}}

	require.NoError(t, ledger.Insert(ctx, key, contentledger.ContentRecord{Title: "first"}, shares))
	err := ledger.Insert(ctx, key, contentledger.ContentRecord{Title: "second"}, shares)
	assert.ErrorIs(t, err, contentledger.ErrAlreadyExists)

	entry, err := ledger.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "first", entry.Record.Title)
}

func TestLedger_UpdateMissing(t *testing.T) {
	ledger := contentledger.NewLedger(memory.New())
	err := ledger.Update(context.Background(), contentledger.Key{2}, contentledger.ContentRecord{},
		[]contentledger.ContributionShare{{Holder: "alice", Percentage: 100}})
	assert.ErrorIs(t, err, contentledger.ErrNotFound)
}

func TestLedger_ModifyCannotChangeKey(t *testing.T) {
	ctx := context.Background()
	ledger := contentledger.NewLedger(memory.New())
	key := contentledger.Key{3}
	shares := []contentledger.ContributionShare{{Holder: "alice", Percentage: 100}}
	require.NoError(t, ledger.Insert(ctx, key, contentledger.ContentRecord{Title: "t"}, shares))

	err := ledger.Modify(ctx, key, func(current contentledger.Entry) (contentledger.Entry, error) {
		current.Key = contentledger.Key{4}
		return current, nil
	})
	assert.ErrorIs(t, err, contentledger.ErrInvalidRequest)
}

func TestLedger_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	ledger := contentledger.NewLedger(memory.New())
	key := contentledger.Key{5}
	parent := contentledger.Key{6}
	record := contentledger.ContentRecord{Title: "t", Version: 1, ForkedFrom: &parent}
	require.NoError(t, ledger.Insert(ctx, key, record,
		[]contentledger.ContributionShare{{Holder: "alice", Percentage: 100}}))

	entry, err := ledger.Get(ctx, key)
	require.NoError(t, err)
	entry.Shares[0].Holder = "mallory"
	entry.Record.ForkedFrom[0] = 0xff

	again, err := ledger.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, contentledger.AccountID("alice"), again.Shares[0].Holder)
	assert.Equal(t, parent, *again.Record.ForkedFrom)
}

func TestLedger_ScanOrdered(t *testing.T) {
	ctx := context.Background()
	ledger := contentledger.NewLedger(memory.New())
	shares := []contentledger.ContributionShare{{Holder: "alice", Percentage: 100}}
	for _, b := range []byte{9, 3, 7} {
		require.NoError(t, ledger.Insert(ctx, contentledger.Key{b}, contentledger.ContentRecord{}, shares))
	}

	var keys []contentledger.Key
	require.NoError(t, ledger.Scan(ctx, func(entry contentledger.Entry) error {
		keys = append(keys, entry.Key)
		return nil
	}))
	assert.Equal(t, []contentledger.Key{{3}, {7}, {9}}, keys)
}
