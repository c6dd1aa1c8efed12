// Package notify carries notifications and typed events between components.
//
// Each Topic delivers one payload type. Subscriptions return a cancel
// function; delivery is synchronous on the publishing goroutine and the order
// in which subscribers are called is unspecified.
package notify

import "sync"

// Topic is a typed publish/subscribe channel. The zero value is ready to use.
type Topic[T any] struct {
	mu   sync.RWMutex
	subs map[uint64]func(T)
	next uint64
}

// Subscribe registers fn and returns a function that removes it. Calling the
// cancel function more than once is safe.
func (t *Topic[T]) Subscribe(fn func(T)) (cancel func()) {
	t.mu.Lock()
	if t.subs == nil {
		t.subs = make(map[uint64]func(T))
	}
	id := t.next
	t.next++
	t.subs[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	fns := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
