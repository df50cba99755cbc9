package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/tomes/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	// Fail causes every publish to return an error.
	Fail bool

	mu     sync.Mutex
	events []*eventstream.MaterialSyncedEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) PublishMaterialSynced(_ context.Context, event *eventstream.MaterialSyncedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if p.Fail {
		return errors.New("mock publish failure")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns the published events in order.
func (p *MockPublisher) Events() []*eventstream.MaterialSyncedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.MaterialSyncedEvent(nil), p.events...)
}

func (p *MockPublisher) Close() error {
	return nil
}
