package contentledger

// AccountID is an opaque, already authenticated contributor identity.
type AccountID string

// ContentRecord is the content registered under a key.
//
// ForkedFrom is set if and only if the record was created by a fork.
// Version starts at 1 and grows by one per accepted merge.
type ContentRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MetadataURI string `json:"metadata_uri"`
	Version     uint32 `json:"version"`
	ForkedFrom  *Key   `json:"forked_from,omitempty"`
}

// Clone returns a deep copy of the record.
func (r ContentRecord) Clone() ContentRecord {
	if r.ForkedFrom != nil {
		parent := *r.ForkedFrom
		r.ForkedFrom = &parent
	}
	return r
}

// IsFork reports whether the record was derived from another entry.
func (r ContentRecord) IsFork() bool {
	return r.ForkedFrom != nil
}

// ContributionShare is one contributor's percentage of a piece of content.
type ContributionShare struct {
	Holder     AccountID `json:"holder"`
	Percentage uint8     `json:"percentage"`
}

// Entry is a ledger entry: the record and its ordered contribution shares.
type Entry struct {
	Key    Key                 `json:"key"`
	Record ContentRecord       `json:"record"`
	Shares []ContributionShare `json:"shares"`
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	return Entry{
		Key:    e.Key,
		Record: e.Record.Clone(),
		Shares: cloneShares(e.Shares),
	}
}

// HasContributor reports whether account holds a share of the entry.
func (e Entry) HasContributor(account AccountID) bool {
	for _, share := range e.Shares {
		if share.Holder == account {
			return true
		}
	}
	return false
}

// ValidateShares checks that every share is within [0,100] and that the
// percentages sum to exactly 100.
func ValidateShares(shares []ContributionShare) error {
	var total uint
	for _, share := range shares {
		if share.Percentage > 100 {
			return ErrInvalidContributionSplit
		}
		total += uint(share.Percentage)
	}
	if total != 100 {
		return ErrInvalidContributionSplit
	}
	return nil
}

func cloneShares(shares []ContributionShare) []ContributionShare {
	if shares == nil {
		return nil
	}
	out := make([]ContributionShare, len(shares))
	copy(out, shares)
	return out
}
