package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/tomes/pkg/material"
	"github.com/papercomputeco/tomes/pkg/storage"
)

// Driver implements storage.ChunkStore using an in-memory slice.
type Driver struct {
	// mu guards chunks
	mu sync.RWMutex

	// chunks are kept in creation order
	chunks []material.Chunk
}

// NewDriver creates a new in-memory chunk store.
func NewDriver() *Driver {
	return &Driver{}
}

// CreateMany stores chunks and assigns them new IDs.
func (s *Driver) CreateMany(_ context.Context, chunks []material.Chunk) ([]string, error) {
	if err := storage.ValidateChunks(chunks); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		c.ID = uuid.NewString()
		c.CreatedAt = now
		ids[i] = c.ID
		s.chunks = append(s.chunks, c)
	}
	return ids, nil
}

// FindByFile returns the chunks of a file.
func (s *Driver) FindByFile(_ context.Context, fileID string) ([]material.Chunk, error) {
	return s.find(material.FileRef(fileID)), nil
}

// FindByLink returns the chunks of a link.
func (s *Driver) FindByLink(_ context.Context, linkID string) ([]material.Chunk, error) {
	return s.find(material.LinkRef(linkID)), nil
}

func (s *Driver) find(ref material.SourceRef) []material.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []material.Chunk{}
	for _, c := range s.chunks {
		if c.Source == ref {
			out = append(out, c)
		}
	}
	return out
}

// DeleteBySource removes the chunks of ref.
func (s *Driver) DeleteBySource(_ context.Context, ref material.SourceRef) (int, error) {
	if err := ref.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	removed := 0
	for _, c := range s.chunks {
		if c.Source == ref {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return removed, nil
}

// Len returns the number of stored chunks.
func (s *Driver) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Close is a no-op.
func (s *Driver) Close() error {
	return nil
}

var _ storage.ChunkStore = (*Driver)(nil)
