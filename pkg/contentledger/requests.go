package contentledger

import "fmt"

// CreateContentRequest contains parameters for registering new content
type CreateContentRequest struct {
	Title       string
	Description string
	MetadataURI string
}

// ForkContentRequest contains parameters for deriving content from SourceKey
type ForkContentRequest struct {
	SourceKey   Key
	Title       string
	Description string
	MetadataURI string
}

// MergeContentRequest contains the updated fields and the new contribution
// split for an existing entry
type MergeContentRequest struct {
	Key         Key
	Title       string
	Description string
	MetadataURI string
	Shares      []ContributionShare
}

// validateShareHolders rejects empty and repeated holders.
func validateShareHolders(shares []ContributionShare) error {
	seen := make(map[AccountID]struct{}, len(shares))
	for _, share := range shares {
		if share.Holder == "" {
			return fmt.Errorf("%w: share holder is required", ErrInvalidRequest)
		}
		if _, dup := seen[share.Holder]; dup {
			return fmt.Errorf("%w: duplicate share holder %s", ErrInvalidRequest, share.Holder)
		}
		seen[share.Holder] = struct{}{}
	}
	return nil
}
