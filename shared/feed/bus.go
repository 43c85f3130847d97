// shared/feed/bus.go
package feed

import (
	"context"
	"sync"
)

// Handler receives events. It must not block; long work belongs on the
// listener's own goroutine.
type Handler func(Event)

// Unsubscribe detaches a handler. Calling it more than once is fine.
type Unsubscribe func()

// Bus distributes change events to every listener in the deployment.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Listen(h Handler) Unsubscribe
}

// fanout delivers an event to the handlers registered in this process.
type fanout struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
}

func newFanout() *fanout {
	return &fanout{handlers: make(map[uint64]Handler)}
}

func (f *fanout) add(h Handler) Unsubscribe {
	f.mu.Lock()
	id := f.next
	f.next++
	f.handlers[id] = h
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.handlers, id)
			f.mu.Unlock()
		})
	}
}

func (f *fanout) deliver(ev Event) {
	f.mu.RLock()
	hs := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fanout) size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}

// LocalBus is an in-process bus for single instance deployments and tests.
type LocalBus struct {
	f *fanout
}

func NewLocalBus() *LocalBus {
	return &LocalBus{f: newFanout()}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.f.deliver(ev)
	return nil
}

func (b *LocalBus) Listen(h Handler) Unsubscribe {
	return b.f.add(h)
}

// Listeners returns the number of attached handlers.
func (b *LocalBus) Listeners() int {
	return b.f.size()
}
