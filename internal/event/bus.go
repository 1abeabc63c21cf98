package event

import (
	"log/slog"
	"sync"
)

type HandlerFunc func(raw any)

// Bus dispatches events synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscriber
}

type subscriber struct {
	id      uint64
	handler HandlerFunc
}

// Subscription identifies one registered handler. The zero value is inert.
type Subscription struct {
	bus       *Bus
	eventName string
	id        uint64
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]subscriber),
	}
}

func (b *Bus) Subscribe(eventName string, handler HandlerFunc) Subscription {
	if b == nil || handler == nil {
		return Subscription{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventName] = append(b.handlers[eventName], subscriber{id: id, handler: handler})
	return Subscription{bus: b, eventName: eventName, id: id}
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s.eventName, s.id)
}

func (b *Bus) remove(eventName string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventName]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		next := make([]subscriber, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, eventName)
		} else {
			b.handlers[eventName] = next
		}
		return
	}
}

func (b *Bus) Publish(eventName string, evt any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]subscriber, len(b.handlers[eventName]))
	copy(handlers, b.handlers[eventName])
	b.mu.RUnlock()

	for _, sub := range handlers {
		dispatch(eventName, sub.handler, evt)
	}
}

func (b *Bus) HandlerCount(eventName string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}

func dispatch(eventName string, h HandlerFunc, evt any) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked", "event", eventName, "panic", r)
		}
	}()
	h(evt)
}
