package material

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidItem is returned when an item holds no usable source.
	ErrInvalidItem = errors.New("invalid material item")

	// ErrInvalidRef is returned when a chunk reference is not exactly one of
	// file or link.
	ErrInvalidRef = errors.New("invalid source reference")

	// ErrAmbiguousSource is matched by AmbiguousSourceError.
	ErrAmbiguousSource = errors.New("exactly one of text, file or url must be set")
)

// AmbiguousSourceError reports which source fields were set on a loose payload.
type AmbiguousSourceError struct {
	Set []SourceKind
}

func (e *AmbiguousSourceError) Error() string {
	if len(e.Set) == 0 {
		return ErrAmbiguousSource.Error() + ": none set"
	}
	return fmt.Sprintf("%s: got %v", ErrAmbiguousSource.Error(), e.Set)
}

func (e *AmbiguousSourceError) Is(target error) bool {
	return target == ErrAmbiguousSource
}
