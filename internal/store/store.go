package store

import (
	"context"

	"github.com/nhle/webmail/internal/model"
)

// Store defines the persistence interface for per-account contact sets.
//
// A contact set is created implicitly on the first successful merge and is
// read on every suggestion request. Merges are whole-set read-modify-write
// operations with no optimistic concurrency control: concurrent merges for
// the same account are a last-write-wins race. The background indexer is
// expected to be the sole frequent writer, so a lost partial update is
// acceptable; a corrupt state is not possible.
type Store interface {
	// GetContacts returns the account's contact entries, or an empty
	// slice if the account has no set yet.
	GetContacts(ctx context.Context, accountID string) ([]model.ContactEntry, error)

	// MergeContacts folds the observations into the account's set:
	// entries are keyed by lower-cased email, frequency accumulates
	// additively, last-interaction moves forward, and a name is kept
	// once set.
	MergeContacts(ctx context.Context, accountID string, obs []model.ContactObservation) error

	// SuggestContacts filters the account's entries by prefix (falling
	// back to substring when prefix matching yields nothing), ranks them,
	// and truncates to limit.
	SuggestContacts(ctx context.Context, accountID, query string, limit int) ([]model.RecipientSuggestion, error)

	// Close releases the underlying database connection.
	Close() error
}
