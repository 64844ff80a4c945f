package storage

import (
	"context"

	"github.com/poiesic/docmodel/core"
)

// Store is an embedded document database.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Load prepares the store for use, reading persisted index definitions.
	// Calling Load more than once is a no-op.
	Load(ctx context.Context) error

	// Insert stores a copy of doc and returns the stored version.
	// Generates an _id when the document has none.
	// Returns ErrDuplicateKey if the _id is taken and ErrConstraintViolated
	// if a unique index rejects the document.
	Insert(ctx context.Context, doc core.Document) (core.Document, error)

	// Update applies update to documents matching query and returns the
	// number of documents changed. update is either a modifier document
	// ($set, $unset, $inc) or a full replacement.
	// Returns ErrCannotModifyID if the update would change an _id.
	Update(ctx context.Context, query, update core.Document, opts UpdateOptions) (int, error)

	// Remove deletes documents matching query and returns how many were removed.
	// Removing nothing is not an error.
	Remove(ctx context.Context, query core.Document, opts RemoveOptions) (int, error)

	// Find returns the documents matching q, after sort, skip, limit and projection.
	Find(ctx context.Context, q Query) ([]core.Document, error)

	// FindOne returns the first document matching query.
	// Returns ErrNotFound if nothing matches.
	FindOne(ctx context.Context, query core.Document) (core.Document, error)

	// Count returns the number of documents matching query.
	Count(ctx context.Context, query core.Document) (int, error)

	// EnsureIndex creates an index over existing and future documents.
	// If an index on the field already exists, this is a no-op.
	EnsureIndex(ctx context.Context, opts IndexOptions) error

	// RemoveIndex drops the index on fieldName. Dropping a missing index is a no-op.
	RemoveIndex(ctx context.Context, fieldName string) error

	// Indexes lists the index definitions, ordered by field name.
	Indexes(ctx context.Context) ([]IndexOptions, error)

	// Close releases resources held by the store.
	Close() error
}

// IndexOptions describes a single-field index.
type IndexOptions struct {
	FieldName string
	Unique    bool
}

// UpdateOptions controls Store.Update.
type UpdateOptions struct {
	// Multi updates every matching document instead of only the first.
	Multi bool
}

// RemoveOptions controls Store.Remove.
type RemoveOptions struct {
	// Multi removes every matching document instead of only the first.
	Multi bool
}

// SortField orders query results by a field.
type SortField struct {
	Field string
	Desc  bool
}

// Query describes a find operation.
type Query struct {
	Filter     core.Document
	Sort       []SortField
	Skip       int
	Limit      int      // 0 means no limit
	Projection []string // fields to keep; _id is always kept
}
