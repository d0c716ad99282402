package contentledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryCodec(t *testing.T) {
	parent := Key{7}
	record := ContentRecord{Title: "T", Description: "D", MetadataURI: "uri", Version: 3, ForkedFrom: &parent}
	shares := []ContributionShare{{Holder: "bob", Percentage: 60}, {Holder: "carol", Percentage: 40}}

	encoded, err := encodeEntry(record, shares)
	require.NoError(t, err)

	entry, err := decodeEntry(Key{1}, encoded)
	require.NoError(t, err)
	assert.Equal(t, Key{1}, entry.Key)
	assert.Equal(t, record, entry.Record)
	assert.Equal(t, shares, entry.Shares)
}

func TestCanonicalEncoding_Stable(t *testing.T) {
	record := ContentRecord{Title: "T", Description: "D", MetadataURI: "uri", Version: 1}

	a, err := CanonicalEncoding(record)
	require.NoError(t, err)
	b, err := CanonicalEncoding(record.Clone())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Map with integer keys 1..5 in ascending order.
	assert.Equal(t, byte(0xa5), a[0])
}

func TestDecodeEntry_Rejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := decodeEntry(Key{}, []byte{0xff, 0x00})
		assert.Error(t, err)
	})

	t.Run("bad forked_from length", func(t *testing.T) {
		w := entryWire{Record: recordWire{Title: "t", ForkedFrom: []byte{1, 2, 3}}}
		b, err := canonicalEncMode.Marshal(w)
		require.NoError(t, err)
		_, err = decodeEntry(Key{}, b)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}
