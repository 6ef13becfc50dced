// Package queue provides a FIFO job queue shared by multiple consumers.
//
// Items are delivered in the order they were sent, and each item is handed to exactly
// one receiver. A single mutex guards dequeue; it is never held while a receiver
// processes what it got.
package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Send when the sending side is closed or no receiver
	// remains that could ever take the item.
	ErrClosed = errors.New("queue: channel closed")

	// ErrFull is returned by TrySend when a bounded queue has no free slot.
	ErrFull = errors.New("queue: full")
)

const defaultItemsCap = 16

// Queue is a multi-consumer FIFO queue. The zero value is not usable; construct it
// with NewUnbounded or NewBounded.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []T

	// slots limits the number of queued items for bounded queues; nil when unbounded.
	slots chan struct{}

	receivers    int
	closed       bool
	disconnected bool

	// done is closed once the queue stops accepting items (Close or last Release).
	done     chan struct{}
	doneOnce sync.Once

	onPush func()
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	onPush func()
}

// WithPushHook registers fn to run each time an item is enqueued. fn runs under the
// queue lock, so it happens before the Receive that hands out that item.
// fn must not call back into the queue.
func WithPushHook(fn func()) Option {
	return func(o *options) { o.onPush = fn }
}

// NewUnbounded returns a queue that never blocks senders.
func NewUnbounded[T any](opts ...Option) *Queue[T] {
	return newQueue[T](0, opts)
}

// NewBounded returns a queue holding at most capacity items.
// Send blocks while the queue is full. Zero capacity yields an unbounded queue.
func NewBounded[T any](capacity uint, opts ...Option) *Queue[T] {
	return newQueue[T](capacity, opts)
}

func newQueue[T any](capacity uint, opts []Option) *Queue[T] {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	q := &Queue[T]{
		items:  make([]T, 0, defaultItemsCap),
		done:   make(chan struct{}),
		onPush: o.onPush,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	if capacity > 0 {
		q.slots = make(chan struct{}, capacity)
	}
	return q
}

// Send enqueues v for delivery to exactly one receiver.
//
// For bounded queues Send waits for a free slot until the queue stops accepting items
// (ErrClosed) or ctx is done (ctx.Err()). Unbounded queues never wait.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	if q.slots != nil {
		select {
		case <-q.done:
			return ErrClosed
		default:
		}
		select {
		case q.slots <- struct{}{}:
		case <-q.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return q.push(v)
}

// TrySend enqueues v without waiting. It returns ErrFull if a bounded queue has no free slot.
func (q *Queue[T]) TrySend(v T) error {
	if q.slots != nil {
		select {
		case q.slots <- struct{}{}:
		default:
			if q.Closed() {
				return ErrClosed
			}
			return ErrFull
		}
	}
	return q.push(v)
}

// push appends v; for bounded queues the caller already holds a slot.
func (q *Queue[T]) push(v T) error {
	q.mu.Lock()
	if q.closed || q.disconnected || q.receivers == 0 {
		q.mu.Unlock()
		q.releaseSlot()
		return ErrClosed
	}
	q.items = append(q.items, v)
	if q.onPush != nil {
		q.onPush()
	}
	q.mu.Unlock()

	q.notEmpty.Signal()
	return nil
}

// pop blocks until an item is available or the queue is closed and drained.
func (q *Queue[T]) pop() (T, bool) {
	q.mu.Lock()
	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		var zero T
		return zero, false
	}

	v := q.items[0]
	var zero T
	q.items[0] = zero // drop the reference held by the backing array
	q.items = q.items[1:]
	if len(q.items) == 0 && cap(q.items) > defaultItemsCap*4 {
		q.items = make([]T, 0, defaultItemsCap)
	}
	q.mu.Unlock()

	q.releaseSlot()
	return v, true
}

func (q *Queue[T]) releaseSlot() {
	if q.slots == nil {
		return
	}
	select {
	case <-q.slots:
	default:
	}
}

// Close closes the sending side. Items already queued are still delivered; once they
// are drained, Receive reports the closed-signal. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.stopAccepting()
	q.notEmpty.Broadcast()
}

func (q *Queue[T]) stopAccepting() {
	q.doneOnce.Do(func() { close(q.done) })
}

// Closed reports whether the queue no longer accepts items.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed || q.disconnected
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the capacity of a bounded queue, or 0 for an unbounded one.
func (q *Queue[T]) Cap() int {
	return cap(q.slots)
}
