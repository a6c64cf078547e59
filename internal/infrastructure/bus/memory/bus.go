package memory

import (
	"sync"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

var _ output.EventBus = (*Bus)(nil)

// Bus is a single-process fan-out of StatusEvents. Handlers run on the
// publisher's goroutine, so a publish from one goroutine delivers in FIFO
// order for that publisher.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(entity.StatusEvent)
}

func New() *Bus {
	return &Bus{handlers: make(map[int]func(entity.StatusEvent))}
}

func (b *Bus) Publish(event entity.StatusEvent) {
	b.mu.RLock()
	handlers := make([]func(entity.StatusEvent), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func (b *Bus) Subscribe(handler func(entity.StatusEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}
