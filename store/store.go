// Package store defines the document store contract the query adapter executes against, along with a
// registry of named providers and helpers for native record identity.
package store

import (
	"context"
)

// Document is a free-form document as stored in a collection. The native identity lives under IDField.
type Document map[string]any

// Filter is a mongodb shaped filter document. Keys are field names (dot notation is supported) and values are
// either a value to match on equality or an operator document such as {"$in": [...]}.
type Filter map[string]any

// OpIn is the "any of" filter operator
const OpIn = "$in"

// In returns an "any of" condition for use as a Filter value
func In(values []any) Filter {
	return Filter{OpIn: values}
}

// Sort orders documents by a single field
type Sort struct {
	Field     string
	Ascending bool
}

// FindOptions are options for Find
type FindOptions struct {
	// Sort is optional
	Sort *Sort
	// Limit caps the result set. Zero means no limit.
	Limit int64
}

// Store performs operations against collections of documents. Implementations must be safe for concurrent use.
type Store interface {
	// Find returns every document in the collection matching the filter
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	// Count returns the number of documents matching the filter
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// InsertOne inserts the document and returns its native identity. A native identity is assigned if the
	// document does not carry one.
	InsertOne(ctx context.Context, collection string, doc Document) (any, error)
	// FindOne returns the first document matching the filter, or nil, nil if there is no match
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	// UpdateOne merges the fields of set into the first document matching the filter and returns the document as
	// it is after the update, or nil, nil if there is no match
	UpdateOne(ctx context.Context, collection string, filter Filter, set Document) (Document, error)
	// DeleteMany deletes every document matching the filter and returns the number of deleted documents
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	// Reset discards the underlying connection so the next operation establishes a new one
	Reset(ctx context.Context) error
	// Close releases all resources held by the store
	Close(ctx context.Context) error
}
