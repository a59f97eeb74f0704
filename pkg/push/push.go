package push

import (
	"context"
	"errors"
	"sync"
)

// ErrBrokerClosed broker is closed
var ErrBrokerClosed = errors.New("push broker is closed")

// Broker in-process topic broker. Serves as the secondary push channel of
// the hybrid delivery service: notifications produced in this process
// reach same-process subscribers without a network round-trip. Delivery
// is best-effort; a slow subscriber loses messages to the polling
// fallback rather than blocking the publisher.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan []byte
	nextID uint64
	buffer int
	closed bool
}

// NewBroker creates a broker with the given per-subscriber buffer size.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{
		subs:   make(map[string]map[uint64]chan []byte),
		buffer: buffer,
	}
}

// Publish delivers message to every current subscriber of topic.
// Subscribers with a full buffer are skipped.
func (b *Broker) Publish(ctx context.Context, topic string, message []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	for _, ch := range b.subs[topic] {
		select {
		case ch <- message:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Buffer full, drop for this subscriber.
		}
	}
	return nil
}

// Subscribe registers a subscriber on topic. The returned cancel function
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrBrokerClosed
	}

	b.nextID++
	id := b.nextID
	ch := make(chan []byte, b.buffer)

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]chan []byte)
	}
	b.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[topic]; ok {
				if _, ok := subs[id]; ok {
					delete(subs, id)
					close(ch)
				}
				if len(subs) == 0 {
					delete(b.subs, topic)
				}
			}
		})
	}

	return ch, cancel, nil
}

// Close closes the broker and every subscriber channel.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.subs {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(b.subs, topic)
	}
	return nil
}

// SubscriberCount returns the number of subscribers on topic.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
