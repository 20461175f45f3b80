package matchfeed

import (
	"context"
	"sync"
)

// Bus is an in-process Feed for development and tests. Events fan out to all
// current subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]HandlerFunc
	next int
}

// NewBus creates an empty in-process feed.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]HandlerFunc)}
}

// Subscribe registers fn until the subscription is cancelled.
func (b *Bus) Subscribe(_ context.Context, fn HandlerFunc) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn

	return &busSubscription{bus: b, id: id}, nil
}

// Publish delivers ev to every current subscriber synchronously. Delivery
// order across subscribers is unspecified.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]HandlerFunc, 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ctx, ev)
	}
}

type busSubscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

func (s *busSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		delete(s.bus.subs, s.id)
	})
}
