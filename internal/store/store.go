// Package store is the document store boundary: one-shot reads and writes
// of documents keyed by collection and id, plus declarative queries that
// the realtime layer re-runs on every change.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateID is returned when inserting an id that already exists.
	ErrDuplicateID = errors.New("document already exists")
	// ErrInvalidQuery is returned for malformed query descriptors.
	ErrInvalidQuery = errors.New("invalid query")
)

// Identifiable is implemented by every document type so snapshots can be
// keyed by id.
type Identifiable interface {
	DocID() string
}

// Store defines the document operations used by the services.
// Implementations must be safe for concurrent use.
type Store interface {
	// Find runs q and decodes the results into out, which must be a
	// pointer to a slice.
	Find(ctx context.Context, q Query, out any) error

	// Get decodes the document with the given id into out.
	// Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, collection, id string, out any) error

	// Insert stores doc under id. The document's own id field must match.
	Insert(ctx context.Context, collection, id string, doc any) error

	// Update sets the given top-level fields. Returns ErrNotFound if the
	// document does not exist.
	Update(ctx context.Context, collection, id string, set map[string]any) error

	// AddToSet adds value to the array field unless already present.
	AddToSet(ctx context.Context, collection, id, field string, value any) error

	// Pull removes every occurrence of value from the array field.
	Pull(ctx context.Context, collection, id, field string, value any) error

	// PullMatching removes the elements of an array of subdocuments whose
	// fields equal every entry in match.
	PullMatching(ctx context.Context, collection, id, field string, match map[string]any) error

	// UpdateElements sets fields on the array elements matched by match,
	// in place, without rewriting the rest of the array.
	UpdateElements(ctx context.Context, collection, id, field string, match, set map[string]any) error

	// Delete removes the document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, collection, id string) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
