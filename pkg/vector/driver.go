// Package vector provides interfaces and implementations for vector storage.
//
// A Driver hands out named Collections; each Collection stores Records
// (an id, the source document text and its embedding) and answers
// nearest-neighbour queries against a query embedding.
package vector

import "context"

// Record is a stored item with its document text and embedding.
type Record struct {
	// ID is unique within a collection. Writing an existing ID replaces it.
	ID string

	// Document is the text the embedding was computed from.
	Document string

	// Embedding is the vector representation of Document.
	Embedding []float32
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Record

	// Score represents the similarity score (higher = more similar).
	Score float32
}

// Driver handles access to named collections in a vector store.
type Driver interface {
	// GetOrCreateCollection returns the named collection, creating it on
	// first use. Implementations must be idempotent: calling it twice with
	// the same name returns a handle to the same underlying collection.
	GetOrCreateCollection(ctx context.Context, name string) (Collection, error)

	// Close releases any resources held by the driver.
	Close() error
}

// Collection is a named partition of a vector store.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Upsert stores records, replacing any existing record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query finds the topK most similar records to the given embedding,
	// ordered by decreasing similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Delete removes records by their IDs. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error
}

// DefaultTopK is used by drivers when a query asks for a non-positive topK.
const DefaultTopK = 10
