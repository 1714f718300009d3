package fanout

import (
	"context"
	"sync"
)

// MemoryTransport delivers in process. Publish calls handlers synchronously,
// so per-room order equals publish order.
type MemoryTransport struct {
	mu     sync.RWMutex
	nextID uint64
	rooms  map[string]map[uint64]func([]byte)
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{rooms: make(map[string]map[uint64]func([]byte))}
}

func (t *MemoryTransport) Publish(ctx context.Context, room string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.RLock()
	handlers := make([]func([]byte), 0, len(t.rooms[room]))
	for _, h := range t.rooms[room] {
		handlers = append(handlers, h)
	}
	t.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (t *MemoryTransport) Subscribe(room string, handler func([]byte)) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	if t.rooms[room] == nil {
		t.rooms[room] = make(map[uint64]func([]byte))
	}
	t.rooms[room][id] = handler
	return &memorySubscription{t: t, room: room, id: id}, nil
}

// Subscribers returns the number of live subscriptions on room.
func (t *MemoryTransport) Subscribers(room string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms[room])
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms = make(map[string]map[uint64]func([]byte))
	return nil
}

type memorySubscription struct {
	t    *MemoryTransport
	room string
	id   uint64
	once sync.Once
}

func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.t.mu.Lock()
		defer s.t.mu.Unlock()
		delete(s.t.rooms[s.room], s.id)
		if len(s.t.rooms[s.room]) == 0 {
			delete(s.t.rooms, s.room)
		}
	})
	return nil
}
