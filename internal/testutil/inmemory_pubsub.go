package testutil

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/billing/internal/pubsub"
)

// InMemoryPubSub records published messages per topic and replays them to later subscribers
type InMemoryPubSub struct {
	mu       sync.RWMutex
	messages map[string][]*message.Message
	err      error
	closed   bool
}

var _ pubsub.PubSub = (*InMemoryPubSub)(nil)

func NewInMemoryPubSub() *InMemoryPubSub {
	return &InMemoryPubSub{
		messages: make(map[string][]*message.Message),
	}
}

func (ps *InMemoryPubSub) Publish(_ context.Context, topic string, msg *message.Message) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.err != nil {
		return ps.err
	}
	ps.messages[topic] = append(ps.messages[topic], msg)
	return nil
}

// Subscribe returns a channel holding every message published to topic so far
func (ps *InMemoryPubSub) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	ch := make(chan *message.Message, len(ps.messages[topic]))
	for _, msg := range ps.messages[topic] {
		ch <- msg.Copy()
	}
	close(ch)
	return ch, nil
}

// FailWith makes every following Publish return err
func (ps *InMemoryPubSub) FailWith(err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.err = err
}

func (ps *InMemoryPubSub) Messages(topic string) []*message.Message {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return append([]*message.Message(nil), ps.messages[topic]...)
}

func (ps *InMemoryPubSub) Closed() bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.closed
}

func (ps *InMemoryPubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.closed = true
	return nil
}
