package testutil

import (
	"context"
	"sync"

	"github.com/facturo/facturo/internal/publisher"
	"github.com/facturo/facturo/internal/types"
	"github.com/samber/lo"
)

// InMemoryPublisherService records published events for assertions
type InMemoryPublisherService struct {
	mu     sync.RWMutex
	events []*publisher.Event
}

var _ publisher.EventPublisher = (*InMemoryPublisherService)(nil)

// NewInMemoryEventPublisher creates a new instance of InMemoryPublisherService
func NewInMemoryEventPublisher() *InMemoryPublisherService {
	return &InMemoryPublisherService{
		events: make([]*publisher.Event, 0),
	}
}

func (p *InMemoryPublisherService) Publish(_ context.Context, event *publisher.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// GetEvents returns all published events
func (p *InMemoryPublisherService) GetEvents() []*publisher.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	events := make([]*publisher.Event, len(p.events))
	copy(events, p.events)
	return events
}

// EventsNamed returns the published events with the given name in order
func (p *InMemoryPublisherService) EventsNamed(name types.FiscalEventName) []*publisher.Event {
	return lo.Filter(p.GetEvents(), func(e *publisher.Event, _ int) bool {
		return e.EventName == name
	})
}

// Clear removes all published events
func (p *InMemoryPublisherService) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*publisher.Event, 0)
}
