package contentledger

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// KeySize is the width of a content key in bytes.
const KeySize = 32

// keyHashCode is the multihash code of a key digest (blake2b-256).
const keyHashCode = multihash.BLAKE2B_MIN + KeySize - 1

// Key identifies a ledger entry. It is the BLAKE2b-256 digest of the
// canonical encoding of the content record it was created with.
type Key [KeySize]byte

// KeyFromBytes converts a raw digest into a Key.
func KeyFromBytes(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// ParseKey parses the CID text form produced by Key.String.
func ParseKey(s string) (Key, error) {
	var k Key
	c, err := cid.Decode(s)
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if c.Type() != cid.Raw {
		return k, fmt.Errorf("%w: unexpected codec 0x%x", ErrInvalidKey, c.Type())
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return k, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if decoded.Code != keyHashCode {
		return k, fmt.Errorf("%w: unexpected hash function %s", ErrInvalidKey, decoded.Name)
	}
	return KeyFromBytes(decoded.Digest)
}

// CID returns the key as a CIDv1 with the raw codec.
func (k Key) CID() cid.Cid {
	mh, err := multihash.Encode(k[:], keyHashCode)
	if err != nil {
		return cid.Undef
	}
	return cid.NewCidV1(cid.Raw, mh)
}

// String returns the CID text form of the key.
func (k Key) String() string {
	return k.CID().String()
}

// Bytes returns a copy of the raw digest.
func (k Key) Bytes() []byte {
	b := make([]byte, KeySize)
	copy(b, k[:])
	return b
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
