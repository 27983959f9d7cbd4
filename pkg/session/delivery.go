package session

import "sync"

// delivery hands states to listeners one call at a time in dispatch order.
// A state older than one already delivered is dropped, so listeners always
// finish on the newest state. Listeners must not dispatch from inside the
// callback.
type delivery[T any] struct {
	mu        sync.Mutex
	delivered uint64
}

func (d *delivery[T]) deliver(sequence uint64, state T, listeners []func(T)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sequence <= d.delivered {
		return
	}
	d.delivered = sequence

	for _, listener := range listeners {
		listener(state)
	}
}
