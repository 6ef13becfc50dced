package threadpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the lifecycle stage of a Pool.
type State int32

const (
	// StateActive: the queue accepts tasks and workers are running.
	StateActive State = iota
	// StateShuttingDown: the queue is closed and workers drain what is left.
	StateShuttingDown
	// StateTerminated: every worker has exited and was joined.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// lifecycleCoordinator encapsulates the teardown sequence for a Pool:
// 1) close the sending side of the job queue (exactly once)
// 2) join workers in id order
// 3) mark the pool terminated and run onTerminated
//
// It holds no reference to the Pool, so an unreachable Pool can still be finalized
// while its workers drain.
type lifecycleCoordinator struct {
	closeSender  func()
	onTerminated func()
	workers      []*worker
	logger       *slog.Logger

	state      atomic.Int32
	signalOnce sync.Once

	// joinSem serializes joiners; next and announced are guarded by it.
	joinSem   chan struct{}
	next      int
	announced int
}

// onTerminated may be nil.
func newLifecycleCoordinator(
	closeSender, onTerminated func(),
	workers []*worker,
	logger *slog.Logger,
) *lifecycleCoordinator {
	return &lifecycleCoordinator{
		closeSender:  closeSender,
		onTerminated: onTerminated,
		workers:      workers,
		logger:       logger,
		joinSem:      make(chan struct{}, 1),
	}
}

func (lc *lifecycleCoordinator) State() State { return State(lc.state.Load()) }

// signal closes the sending side. Safe for concurrent use; effective once.
func (lc *lifecycleCoordinator) signal() {
	lc.signalOnce.Do(func() {
		lc.logger.Info("sending terminate message to all workers")
		lc.state.CompareAndSwap(int32(StateActive), int32(StateShuttingDown))
		lc.closeSender()
	})
}

// wait joins every worker that has not been joined yet. It returns ctx.Err() if ctx is
// done first; a later call resumes where this one stopped.
func (lc *lifecycleCoordinator) wait(ctx context.Context) error {
	select {
	case lc.joinSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lc.joinSem }()

	for lc.next < len(lc.workers) {
		w := lc.workers[lc.next]
		if lc.announced <= lc.next {
			lc.logger.Info("shutting down worker", slog.Int("worker", w.id))
			lc.announced = lc.next + 1
		}
		select {
		case <-w.done:
			lc.next++
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if lc.state.CompareAndSwap(int32(StateShuttingDown), int32(StateTerminated)) {
		lc.logger.Info("all workers joined")
		if lc.onTerminated != nil {
			lc.onTerminated()
		}
	}
	return nil
}

// Close signals and then joins without a deadline.
func (lc *lifecycleCoordinator) Close() {
	lc.signal()
	_ = lc.wait(context.Background())
}
