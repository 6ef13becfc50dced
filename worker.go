package threadpool

import (
	"log/slog"
	"time"

	"github.com/ygrebnov/threadpool/queue"
)

type worker struct {
	id       int
	receiver *queue.Receiver[job]
	logger   *slog.Logger
	inst     *instruments

	// done is closed when the worker goroutine exits; receiving from it joins the worker.
	done chan struct{}
}

func newWorker(id int, r *queue.Receiver[job], logger *slog.Logger, inst *instruments) *worker {
	return &worker{
		id:       id,
		receiver: r,
		logger:   logger.With(slog.Int("worker", id)),
		inst:     inst,
		done:     make(chan struct{}),
	}
}

// start launches the run loop. The worker counts as live once start returns.
func (w *worker) start() {
	w.inst.live.Add(1)
	go w.run()
}

func (w *worker) run() {
	defer close(w.done)
	defer w.inst.live.Add(-1)
	defer w.receiver.Release()

	for {
		// The queue lock is held only inside Receive, never while the task runs.
		j, ok := w.receiver.Receive()
		if !ok {
			w.logger.Debug("worker disconnected; shutting down")
			return
		}
		w.execute(j)
	}
}

// execute runs j on the calling goroutine. A panicking task is not recovered.
func (w *worker) execute(j job) {
	w.inst.depth.Add(-1)
	w.inst.inflight.Add(1)
	w.logger.Debug("worker got a job; executing", slog.Uint64("task", j.seq))

	start := time.Now()
	j.run()

	w.inst.duration.Record(time.Since(start).Seconds())
	w.inst.inflight.Add(-1)
	w.inst.completed.Add(1)
}
