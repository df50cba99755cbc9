package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidChunk matches every *InvalidChunkError.
var ErrInvalidChunk = errors.New("invalid chunk")

// InvalidChunkError is returned when a chunk cannot be stored.
type InvalidChunkError struct {
	Index  int
	Reason string
}

func (e *InvalidChunkError) Error() string {
	return fmt.Sprintf("invalid chunk %d: %s", e.Index, e.Reason)
}

func (e *InvalidChunkError) Is(target error) bool { return target == ErrInvalidChunk }
