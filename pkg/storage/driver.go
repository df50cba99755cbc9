// Package storage
package storage

import (
	"context"

	"github.com/papercomputeco/tomes/pkg/material"
)

// ChunkStore persists the chunks derived from file and link items so they
// can be listed per source and removed when their item is deleted.
type ChunkStore interface {
	// CreateMany stores chunks and returns their assigned IDs in input order.
	// Every chunk must reference exactly one file or link.
	CreateMany(ctx context.Context, chunks []material.Chunk) ([]string, error)

	// FindByFile returns the chunks of a file-backed item in creation order.
	FindByFile(ctx context.Context, fileID string) ([]material.Chunk, error)

	// FindByLink returns the chunks of a link-backed item in creation order.
	FindByLink(ctx context.Context, linkID string) ([]material.Chunk, error)

	// DeleteBySource removes every chunk of the referenced source and
	// returns how many were removed.
	DeleteBySource(ctx context.Context, ref material.SourceRef) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ValidateChunks checks that every chunk has text and a valid source.
func ValidateChunks(chunks []material.Chunk) error {
	for i, c := range chunks {
		if c.Text == "" {
			return &InvalidChunkError{Index: i, Reason: "empty text"}
		}
		if err := c.Source.Validate(); err != nil {
			return &InvalidChunkError{Index: i, Reason: err.Error()}
		}
	}
	return nil
}
