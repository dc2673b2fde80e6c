// Package events is a minimal typed publish/subscribe helper.
package events

import "sync"

// Emitter delivers values of type T to its subscribers in registration
// order. The zero value is ready to use.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// On registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (e *Emitter[T]) On(fn func(T)) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every handler registered at the time of the call. Handlers may
// subscribe or unsubscribe while being called.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	handlers := append([]subscription[T](nil), e.handlers...)
	e.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Off drops every handler.
func (e *Emitter[T]) Off() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = nil
}

func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
