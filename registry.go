package auctionhouse

import (
	"encoding/json"
	"sync"
)

// EventHandler receives the payload of a matching envelope.
type EventHandler func(payload json.RawMessage)

type subscription struct {
	handler EventHandler
}

// registry maps event names to handlers in registration order.
type registry struct {
	mu       sync.RWMutex
	handlers map[string][]*subscription
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string][]*subscription)}
}

func (r *registry) add(name string, h EventHandler) func() {
	sub := &subscription{handler: h}

	r.mu.Lock()
	r.handlers[name] = append(r.handlers[name], sub)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(name, sub) })
	}
}

func (r *registry) remove(name string, sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[name]
	for i, s := range subs {
		if s != sub {
			continue
		}
		if len(subs) == 1 {
			delete(r.handlers, name)
			return
		}
		// copy so that a snapshot being iterated by emit is not mutated
		next := make([]*subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		r.handlers[name] = append(next, subs[i+1:]...)
		return
	}
}

// emit calls every handler registered under name. Handlers run outside the lock.
func (r *registry) emit(name string, payload json.RawMessage) int {
	r.mu.RLock()
	subs := r.handlers[name]
	r.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
	return len(subs)
}

func (r *registry) len(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name])
}

func (r *registry) names() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

func (r *registry) clear() {
	r.mu.Lock()
	r.handlers = make(map[string][]*subscription)
	r.mu.Unlock()
}
