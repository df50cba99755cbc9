package ingest

import (
	"errors"
	"fmt"
)

// ErrIngestion matches every *IngestionError.
var ErrIngestion = errors.New("ingestion failed")

// Stage names where an ingestion run can fail.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageStore    Stage = "store"
	StageUpsert   Stage = "upsert"
	StageThrottle Stage = "throttle"
)

// IngestionError reports a failed run. Batches committed before the failure
// are not rolled back.
type IngestionError struct {
	Stage  Stage
	Source string

	// CommittedBatches and CommittedChunks count the batches written to the
	// index before the failure.
	CommittedBatches int
	CommittedChunks  int

	Err error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingesting %s: %s stage failed after %d batches (%d chunks): %v",
		e.Source, e.Stage, e.CommittedBatches, e.CommittedChunks, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }
