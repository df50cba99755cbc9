package testutils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/tomes/pkg/vector"
)

// ErrMockVector is returned by MockVectorDriver when a failure is injected.
var ErrMockVector = errors.New("mock vector failure")

// MockVectorDriver is a test vector driver. Collections record upserts and
// return Results from Query.
type MockVectorDriver struct {
	// Results is returned by every collection's Query, truncated to topK.
	Results []vector.QueryResult

	// FailCollection causes GetOrCreateCollection to fail.
	FailCollection bool

	// FailUpsertAfter makes Upsert fail once this many upserts have
	// succeeded. Negative disables the failure.
	FailUpsertAfter int

	// FailQuery causes Query to fail.
	FailQuery bool

	// CreateDelay blocks GetOrCreateCollection, for concurrency tests. The
	// wait ends early when the caller's ctx is done.
	CreateDelay time.Duration

	createCalls atomic.Int32

	mu          sync.Mutex
	collections map[string]*MockCollection
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		FailUpsertAfter: -1,
		collections:     make(map[string]*MockCollection),
	}
}

func (m *MockVectorDriver) GetOrCreateCollection(ctx context.Context, name string) (vector.Collection, error) {
	m.createCalls.Add(1)
	if m.CreateDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.CreateDelay):
		}
	}
	if m.FailCollection {
		return nil, ErrMockVector
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &MockCollection{driver: m, name: name}
		m.collections[name] = c
	}
	return c, nil
}

// CreateCalls returns how many times GetOrCreateCollection was called.
func (m *MockVectorDriver) CreateCalls() int {
	return int(m.createCalls.Load())
}

// Collection returns the named collection, or nil if it was never created.
func (m *MockVectorDriver) Collection(name string) *MockCollection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collections[name]
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// MockCollection records calls made against it.
type MockCollection struct {
	driver *MockVectorDriver
	name   string

	mu      sync.Mutex
	upserts [][]vector.Record
	deleted []string
}

func (c *MockCollection) Name() string { return c.name }

func (c *MockCollection) Upsert(_ context.Context, records []vector.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driver.FailUpsertAfter >= 0 && len(c.upserts) >= c.driver.FailUpsertAfter {
		return ErrMockVector
	}
	c.upserts = append(c.upserts, append([]vector.Record(nil), records...))
	return nil
}

func (c *MockCollection) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if c.driver.FailQuery {
		return nil, ErrMockVector
	}
	if len(c.driver.Results) < topK {
		return c.driver.Results, nil
	}
	return c.driver.Results[:topK], nil
}

func (c *MockCollection) Delete(_ context.Context, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, ids...)
	return nil
}

// Upserts returns each Upsert call's records.
func (c *MockCollection) Upserts() [][]vector.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]vector.Record(nil), c.upserts...)
}

// Deleted returns every id passed to Delete.
func (c *MockCollection) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}
