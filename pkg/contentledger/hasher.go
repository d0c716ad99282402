package contentledger

import "golang.org/x/crypto/blake2b"

// ContentHasher derives the ledger key of a content record.
type ContentHasher interface {
	// DeriveKey returns the key for record. Equal records yield equal keys.
	DeriveKey(record ContentRecord) (Key, error)
}

type blake2bHasher struct{}

// NewBlake2bHasher returns the default hasher: BLAKE2b-256 over the record's
// canonical encoding.
func NewBlake2bHasher() ContentHasher {
	return blake2bHasher{}
}

func (blake2bHasher) DeriveKey(record ContentRecord) (Key, error) {
	b, err := CanonicalEncoding(record)
	if err != nil {
		return Key{}, err
	}
	return Key(blake2b.Sum256(b)), nil
}
