package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tomes/pkg/material"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMaterialSynced is emitted after an item's chunks are indexed.
	EventTypeMaterialSynced = "tomes.material.synced"
)

// MaterialSyncedEvent is a transport-neutral event payload for a completed
// ingestion run.
type MaterialSyncedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	MaterialID    string      `json:"material_id"`
	Source        EventSource `json:"source"`
	Collection    string      `json:"collection"`
	Chunks        int         `json:"chunks"`
	Batches       int         `json:"batches"`
	DurationMs    int64       `json:"duration_ms"`
}

// EventSource identifies the ingested item.
type EventSource struct {
	Kind material.SourceKind `json:"kind"`

	// ID is the file or link id. Empty for text items.
	ID string `json:"id,omitempty"`
}

// NewMaterialSyncedEvent fills the envelope fields of a synced event.
func NewMaterialSyncedEvent(materialID string, source EventSource, collection string, chunks, batches int, took time.Duration) *MaterialSyncedEvent {
	return &MaterialSyncedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMaterialSynced,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		MaterialID:    materialID,
		Source:        source,
		Collection:    collection,
		Chunks:        chunks,
		Batches:       batches,
		DurationMs:    took.Milliseconds(),
	}
}
