// Package contentledger provides a content-addressed registry of creative and
// document content together with the contribution shares of everyone who
// worked on it.
//
// Content is stored in a ContributionLedger keyed by a digest of the content
// record's canonical encoding. The Service orchestrates the three state
// transitions on top of the ledger:
//
//   - Create registers new content wholly owned by the caller.
//   - Fork derives new content from an existing entry. The fork starts wholly
//     owned by the forking caller and records its parent in ForkedFrom.
//   - Merge lets a current contributor update an entry in place, bumping its
//     version and replacing the contribution split.
//
// Keys
//
// A key is computed once, when content is created or forked, and identifies
// the evolving content from then on. Merges never re-derive the key even
// though the version changes.
//
// Collaborators
//
// Caller authentication, event transport and persistence live outside the
// core. Every operation takes an already verified AccountID, events go to an
// EventSink, and entries are persisted through a Store. Stores for memory,
// Badger, SQLite, Postgres and S3 are provided under store/.
package contentledger
