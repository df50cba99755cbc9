package extract

import (
	"errors"
	"fmt"
)

// ErrExtraction is matched by every ExtractionError.
var ErrExtraction = errors.New("extraction failed")

// ExtractionError is returned when a source cannot be read, fetched or parsed.
type ExtractionError struct {
	// Source is the path or URL being extracted.
	Source string

	// Op is the failing step: "read", "fetch" or "parse".
	Op string

	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
