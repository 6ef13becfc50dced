package threadpool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/threadpool/metrics"
	"github.com/ygrebnov/threadpool/queue"
)

func TestWorker_RunsJobsUntilQueueCloses(t *testing.T) {
	p := metrics.NewBasicProvider()
	inst := newInstruments(p, "w")
	q := queue.NewUnbounded[job](queue.WithPushHook(func() { inst.depth.Add(1) }))
	w := newWorker(7, q.Receiver(), discardLogger(), inst)

	w.start()
	require.Equal(t, int64(1), p.UpDownValue(MetricWorkersLive))

	ran := make(chan uint64, 3)
	for i := range uint64(3) {
		require.NoError(t, q.Send(context.Background(), job{run: func() { ran <- i }, seq: i}))
	}
	for i := range uint64(3) {
		select {
		case got := <-ran:
			require.Equal(t, i, got)
		case <-time.After(time.Second):
			t.Fatalf("job %d did not run", i)
		}
	}

	q.Close()
	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not exit after queue close")
	}

	require.Equal(t, int64(0), p.UpDownValue(MetricWorkersLive))
	require.Equal(t, int64(3), p.CounterValue(MetricTasksCompleted))
	require.Equal(t, int64(0), p.UpDownValue(MetricQueueDepth))
	require.Equal(t, int64(0), p.UpDownValue(MetricTasksInflight))
}

func TestWorker_ReleasesReceiverOnExit(t *testing.T) {
	q := queue.NewUnbounded[job]()
	w := newWorker(0, q.Receiver(), discardLogger(), newInstruments(metrics.NewNoopProvider(), "w"))
	w.start()

	q.Close()
	<-w.done

	require.ErrorIs(t, q.TrySend(job{run: func() {}}), queue.ErrClosed)
}
