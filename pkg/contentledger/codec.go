package contentledger

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Records and entries are encoded with CBOR Core Deterministic Encoding
// (RFC 8949 section 4.2.1), so equal values always produce equal bytes.
var (
	canonicalEncMode cbor.EncMode
	entryDecMode     cbor.DecMode
)

func init() {
	var err error
	canonicalEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("contentledger: cbor encoder: %v", err))
	}
	entryDecMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("contentledger: cbor decoder: %v", err))
	}
}

type recordWire struct {
	Title       string `cbor:"1,keyasint"`
	Description string `cbor:"2,keyasint"`
	MetadataURI string `cbor:"3,keyasint"`
	Version     uint32 `cbor:"4,keyasint"`
	ForkedFrom  []byte `cbor:"5,keyasint"`
}

type shareWire struct {
	Holder     string `cbor:"1,keyasint"`
	Percentage uint8  `cbor:"2,keyasint"`
}

type entryWire struct {
	Record recordWire  `cbor:"1,keyasint"`
	Shares []shareWire `cbor:"2,keyasint"`
}

func toRecordWire(r ContentRecord) recordWire {
	w := recordWire{
		Title:       r.Title,
		Description: r.Description,
		MetadataURI: r.MetadataURI,
		Version:     r.Version,
	}
	if r.ForkedFrom != nil {
		w.ForkedFrom = r.ForkedFrom.Bytes()
	}
	return w
}

func (w recordWire) toRecord() (ContentRecord, error) {
	r := ContentRecord{
		Title:       w.Title,
		Description: w.Description,
		MetadataURI: w.MetadataURI,
		Version:     w.Version,
	}
	if w.ForkedFrom != nil {
		parent, err := KeyFromBytes(w.ForkedFrom)
		if err != nil {
			return ContentRecord{}, fmt.Errorf("decode forked_from: %w", err)
		}
		r.ForkedFrom = &parent
	}
	return r, nil
}

// CanonicalEncoding returns the canonical byte encoding of a record. Every
// field takes part, including Version and ForkedFrom.
func CanonicalEncoding(record ContentRecord) ([]byte, error) {
	b, err := canonicalEncMode.Marshal(toRecordWire(record))
	if err != nil {
		return nil, fmt.Errorf("encode content record: %w", err)
	}
	return b, nil
}

func encodeEntry(record ContentRecord, shares []ContributionShare) ([]byte, error) {
	w := entryWire{
		Record: toRecordWire(record),
		Shares: make([]shareWire, len(shares)),
	}
	for i, share := range shares {
		w.Shares[i] = shareWire{Holder: string(share.Holder), Percentage: share.Percentage}
	}
	b, err := canonicalEncMode.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode ledger entry: %w", err)
	}
	return b, nil
}

func decodeEntry(key Key, value []byte) (Entry, error) {
	var w entryWire
	if err := entryDecMode.Unmarshal(value, &w); err != nil {
		return Entry{}, fmt.Errorf("decode ledger entry %s: %w", key, err)
	}
	record, err := w.Record.toRecord()
	if err != nil {
		return Entry{}, fmt.Errorf("decode ledger entry %s: %w", key, err)
	}
	shares := make([]ContributionShare, len(w.Shares))
	for i, share := range w.Shares {
		shares[i] = ContributionShare{Holder: AccountID(share.Holder), Percentage: share.Percentage}
	}
	return Entry{Key: key, Record: record, Shares: shares}, nil
}
