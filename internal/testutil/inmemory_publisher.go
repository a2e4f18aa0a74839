package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/billing/internal/publisher"
	"github.com/flexprice/billing/internal/types"
)

// InMemoryLedgerPublisher records published ledger events for assertions
type InMemoryLedgerPublisher struct {
	mu     sync.RWMutex
	events []*types.LedgerEvent
	err    error
}

var _ publisher.LedgerPublisher = (*InMemoryLedgerPublisher)(nil)

func NewInMemoryLedgerPublisher() *InMemoryLedgerPublisher {
	return &InMemoryLedgerPublisher{
		events: make([]*types.LedgerEvent, 0),
	}
}

func (p *InMemoryLedgerPublisher) Publish(ctx context.Context, event *types.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// FailWith makes every following Publish return err. A nil err restores normal behaviour.
func (p *InMemoryLedgerPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns the published events in publish order
func (p *InMemoryLedgerPublisher) Events() []*types.LedgerEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*types.LedgerEvent, len(p.events))
	copy(result, p.events)
	return result
}

// EventsNamed returns the published events with the given name
func (p *InMemoryLedgerPublisher) EventsNamed(name string) []*types.LedgerEvent {
	var result []*types.LedgerEvent
	for _, e := range p.Events() {
		if e.EventName == name {
			result = append(result, e)
		}
	}
	return result
}

func (p *InMemoryLedgerPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*types.LedgerEvent, 0)
	p.err = nil
}

func (p *InMemoryLedgerPublisher) Close() error {
	return nil
}
