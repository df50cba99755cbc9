// Package inmemory provides a brute-force, process-local vector driver.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/papercomputeco/tomes/pkg/vector"
)

// Driver implements vector.Driver with maps guarded by mutexes.
type Driver struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		collections: make(map[string]*Collection),
	}
}

// GetOrCreateCollection returns the named collection, creating it if needed.
func (d *Driver) GetOrCreateCollection(_ context.Context, name string) (vector.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, vector.ErrInvalidCollection
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		c = &Collection{name: name, records: make(map[string]vector.Record)}
		d.collections[name] = c
	}
	return c, nil
}

// Collections returns the number of collections created so far.
func (d *Driver) Collections() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.collections)
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// Collection is an in-memory vector.Collection.
type Collection struct {
	name    string
	mu      sync.RWMutex
	records map[string]vector.Record
	order   []string
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Upsert stores records, replacing existing ones with the same ID.
func (c *Collection) Upsert(_ context.Context, records []vector.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id is required")
		}
		if _, exists := c.records[r.ID]; !exists {
			c.order = append(c.order, r.ID)
		}
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)
		c.records[r.ID] = vector.Record{ID: r.ID, Document: r.Document, Embedding: emb}
	}
	return nil
}

// Query ranks every record by cosine similarity to embedding.
func (c *Collection) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make([]vector.QueryResult, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		results = append(results, vector.QueryResult{
			Record: r,
			Score:  vector.CosineSimilarity(embedding, r.Embedding),
		})
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes records by ID.
func (c *Collection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.records[id]; ok {
			remove[id] = true
			delete(c.records, id)
		}
	}
	if len(remove) == 0 {
		return nil
	}

	kept := c.order[:0]
	for _, id := range c.order {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	c.order = kept
	return nil
}

// Len returns the number of stored records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Get returns the record with the given ID.
func (c *Collection) Get(id string) (vector.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	return r, ok
}

var (
	_ vector.Driver     = (*Driver)(nil)
	_ vector.Collection = (*Collection)(nil)
)
