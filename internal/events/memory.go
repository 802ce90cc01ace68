package events

import (
	"context"
	"sync"
)

// MemoryBus delivers changes synchronously to in-process subscribers.
// Handlers run on the publisher's goroutine and must not block.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]memorySub
}

type memorySub struct {
	filter  Filter
	handler Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[int]memorySub)}
}

var _ Bus = (*MemoryBus)(nil)

func (b *MemoryBus) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter.Matches(c) {
			matched = append(matched, s.handler)
		}
	}
	b.mu.RUnlock()
	for _, h := range matched {
		h(c)
	}
	return nil
}

func (b *MemoryBus) Subscribe(f Filter, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = memorySub{filter: f, handler: h}
	return &memorySubscription{bus: b, id: id}, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[int]memorySub)
	return nil
}

type memorySubscription struct {
	bus  *MemoryBus
	id   int
	once sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
	return nil
}
