package queue

import (
	"sync"
	"sync/atomic"
)

// Receiver is a consuming handle attached to a Queue. Each consumer attaches its own
// Receiver; several Receivers on one Queue never get the same item.
type Receiver[T any] struct {
	q        *Queue[T]
	once     sync.Once
	released atomic.Bool
}

// Receiver attaches a new live receiver to the queue.
func (q *Queue[T]) Receiver() *Receiver[T] {
	q.mu.Lock()
	q.receivers++
	q.mu.Unlock()
	return &Receiver[T]{q: q}
}

// Receive blocks until an item is available or the queue is closed and drained.
// The boolean is false for the closed-signal, which a released Receiver always gets.
func (r *Receiver[T]) Receive() (T, bool) {
	if r.released.Load() {
		var zero T
		return zero, false
	}
	return r.q.pop()
}

// Release detaches the receiver. Releasing the last attached receiver disconnects the
// queue: further sends fail with ErrClosed. Release is idempotent.
func (r *Receiver[T]) Release() {
	r.once.Do(func() {
		r.released.Store(true)
		q := r.q
		q.mu.Lock()
		q.receivers--
		last := q.receivers == 0
		if last {
			q.disconnected = true
		}
		q.mu.Unlock()

		if last {
			q.stopAccepting()
		}
	})
}
