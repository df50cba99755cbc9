package index

import (
	"errors"
	"fmt"
)

var (
	// ErrRetrieval matches every *RetrievalError.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrLengthMismatch is returned when ids and documents differ in length.
	ErrLengthMismatch = errors.New("ids and documents must have equal length")
)

// RetrievalError reports a failed index operation.
type RetrievalError struct {
	Collection string

	// Op is one of "collection", "embed", "upsert", "query" or "delete".
	Op string

	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("index %s on collection %q: %v", e.Op, e.Collection, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }
