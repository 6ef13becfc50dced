package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_SendWithoutReceiver_ReturnsErrClosed(t *testing.T) {
	q := NewUnbounded[int]()
	require.ErrorIs(t, q.Send(context.Background(), 1), ErrClosed)
	require.ErrorIs(t, q.TrySend(1), ErrClosed)
	require.Equal(t, 0, q.Len())
}

func TestQueue_FIFO_SingleReceiver(t *testing.T) {
	q := NewUnbounded[int]()
	r := q.Receiver()

	for i := range 100 {
		require.NoError(t, q.Send(context.Background(), i))
	}
	require.Equal(t, 100, q.Len())

	for i := range 100 {
		v, ok := r.Receive()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, q.Len())
}

func TestQueue_Close_DrainsThenSignalsClosed(t *testing.T) {
	q := NewUnbounded[string]()
	r := q.Receiver()

	require.NoError(t, q.Send(context.Background(), "a"))
	require.NoError(t, q.Send(context.Background(), "b"))
	q.Close()
	q.Close() // idempotent

	require.True(t, q.Closed())
	require.ErrorIs(t, q.Send(context.Background(), "c"), ErrClosed)

	v, ok := r.Receive()
	require.True(t, ok)
	require.Equal(t, "a", v)
	v, ok = r.Receive()
	require.True(t, ok)
	require.Equal(t, "b", v)

	v, ok = r.Receive()
	require.False(t, ok)
	require.Empty(t, v)
}

func TestQueue_Close_UnblocksWaitingReceivers(t *testing.T) {
	q := NewUnbounded[int]()

	const receivers = 4
	var wg sync.WaitGroup
	wg.Add(receivers)
	for range receivers {
		r := q.Receiver()
		go func() {
			defer wg.Done()
			_, ok := r.Receive()
			require.False(t, ok)
		}()
	}

	// let receivers block
	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("receivers were not released by Close")
	}
}

func TestQueue_MultipleReceivers_ExactlyOnceDelivery(t *testing.T) {
	q := NewUnbounded[int]()

	const (
		receivers = 8
		items     = 2000
	)
	seen := make([]int32, items)

	var wg sync.WaitGroup
	wg.Add(receivers)
	for range receivers {
		r := q.Receiver()
		go func() {
			defer wg.Done()
			defer r.Release()
			for {
				v, ok := r.Receive()
				if !ok {
					return
				}
				atomic.AddInt32(&seen[v], 1)
			}
		}()
	}

	for i := range items {
		require.NoError(t, q.Send(context.Background(), i))
	}
	q.Close()
	wg.Wait()

	for i, n := range seen {
		if n != 1 {
			t.Fatalf("item %d delivered %d times, want 1", i, n)
		}
	}
}

func TestQueue_ReleaseLastReceiver_Disconnects(t *testing.T) {
	q := NewUnbounded[int]()
	r1 := q.Receiver()
	r2 := q.Receiver()

	r1.Release()
	r1.Release() // idempotent, must not release r2's attachment
	require.NoError(t, q.Send(context.Background(), 1))

	r2.Release()
	require.True(t, q.Closed())
	require.ErrorIs(t, q.Send(context.Background(), 2), ErrClosed)
}

func TestQueue_Bounded(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, q *Queue[int], r *Receiver[int])
	}{
		{
			name: "TrySend reports ErrFull at capacity",
			run: func(t *testing.T, q *Queue[int], _ *Receiver[int]) {
				require.NoError(t, q.TrySend(1))
				require.NoError(t, q.TrySend(2))
				require.ErrorIs(t, q.TrySend(3), ErrFull)
				require.Equal(t, 2, q.Len())
			},
		},
		{
			name: "Send waits for a slot and resumes after Receive",
			run: func(t *testing.T, q *Queue[int], r *Receiver[int]) {
				require.NoError(t, q.Send(context.Background(), 1))
				require.NoError(t, q.Send(context.Background(), 2))

				sent := make(chan error, 1)
				go func() { sent <- q.Send(context.Background(), 3) }()

				select {
				case err := <-sent:
					t.Fatalf("Send on a full queue returned early: %v", err)
				case <-time.After(50 * time.Millisecond):
				}

				v, ok := r.Receive()
				require.True(t, ok)
				require.Equal(t, 1, v)

				select {
				case err := <-sent:
					require.NoError(t, err)
				case <-time.After(time.Second):
					t.Fatalf("blocked Send did not resume after Receive")
				}
				require.Equal(t, 2, q.Len())
			},
		},
		{
			name: "Send honors context while full",
			run: func(t *testing.T, q *Queue[int], _ *Receiver[int]) {
				require.NoError(t, q.TrySend(1))
				require.NoError(t, q.TrySend(2))

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
				defer cancel()
				require.ErrorIs(t, q.Send(ctx, 3), context.DeadlineExceeded)
			},
		},
		{
			name: "Close unblocks a waiting sender",
			run: func(t *testing.T, q *Queue[int], _ *Receiver[int]) {
				require.NoError(t, q.TrySend(1))
				require.NoError(t, q.TrySend(2))

				sent := make(chan error, 1)
				go func() { sent <- q.Send(context.Background(), 3) }()
				time.Sleep(20 * time.Millisecond)
				q.Close()

				select {
				case err := <-sent:
					require.ErrorIs(t, err, ErrClosed)
				case <-time.After(time.Second):
					t.Fatalf("Close did not unblock the waiting sender")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewBounded[int](2)
			require.Equal(t, 2, q.Cap())
			r := q.Receiver()
			tt.run(t, q, r)
		})
	}
}

func TestNewBounded_ZeroCapacityIsUnbounded(t *testing.T) {
	q := NewBounded[int](0)
	q.Receiver()
	require.Equal(t, 0, q.Cap())
	for i := range 1000 {
		require.NoError(t, q.TrySend(i))
	}
	require.Equal(t, 1000, q.Len())
}

func TestReceiver_ReleasedReceiverGetsClosedSignal(t *testing.T) {
	q := NewUnbounded[int]()
	kept := q.Receiver()
	defer kept.Release()
	released := q.Receiver()

	require.NoError(t, q.TrySend(1))
	released.Release()

	v, ok := released.Receive()
	require.False(t, ok)
	require.Zero(t, v)
	require.Equal(t, 1, q.Len(), "a released receiver must not dequeue")

	v, ok = kept.Receive()
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestQueue_PushHookRunsBeforeReceive(t *testing.T) {
	var pushed atomic.Int32
	q := NewBounded[int](2, WithPushHook(func() { pushed.Add(1) }), nil)
	r := q.Receiver()
	defer r.Release()

	require.NoError(t, q.TrySend(1))
	require.NoError(t, q.TrySend(2))
	require.ErrorIs(t, q.TrySend(3), ErrFull)
	require.Equal(t, int32(2), pushed.Load(), "rejected sends must not run the hook")

	_, ok := r.Receive()
	require.True(t, ok)
	require.Equal(t, int32(2), pushed.Load())

	q.Close()
	require.ErrorIs(t, q.TrySend(4), ErrClosed)
	require.Equal(t, int32(2), pushed.Load())
}
