package material

import (
	"fmt"
	"time"
)

// SourceRef points to exactly one file-backed or link-backed item.
type SourceRef struct {
	Kind SourceKind `json:"kind"`
	ID   string     `json:"id"`
}

// FileRef returns a reference to a file-backed item.
func FileRef(id string) SourceRef { return SourceRef{Kind: KindFile, ID: id} }

// LinkRef returns a reference to a link-backed item.
func LinkRef(id string) SourceRef { return SourceRef{Kind: KindLink, ID: id} }

// Validate ensures the reference targets a file or a link, never both or none.
func (r SourceRef) Validate() error {
	if r.Kind != KindFile && r.Kind != KindLink {
		return fmt.Errorf("%w: source kind %q", ErrInvalidRef, r.Kind)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: empty %s id", ErrInvalidRef, r.Kind)
	}
	return nil
}

func (r SourceRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Chunk is a bounded text segment derived from a file or link item.
type Chunk struct {
	// ID is assigned by the chunk store on creation.
	ID string `json:"id"`

	// RecordID is the embedding index record this chunk was written as.
	RecordID string `json:"record_id,omitempty"`

	// MaterialID is the owning material.
	MaterialID string `json:"material_id,omitempty"`

	Text   string    `json:"text"`
	Source SourceRef `json:"source"`

	// Index is the zero-based position of the chunk within its source.
	Index int `json:"index"`

	CreatedAt time.Time `json:"created_at"`
}
