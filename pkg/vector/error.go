package vector

import "errors"

var (
	// ErrNotFound is returned when a record or collection is not found in the vector store.
	ErrNotFound = errors.New("not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrInvalidCollection is returned for an empty or malformed collection name.
	ErrInvalidCollection = errors.New("invalid collection name")
)
