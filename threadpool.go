package threadpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/ygrebnov/threadpool/queue"
)

// Pool runs tasks on a fixed number of worker goroutines fed from a shared FIFO queue.
// Methods are safe for concurrent use.
//
// A Pool must be released with Close (or Shutdown). If it becomes unreachable without
// that, a finalizer closes its queue and joins the workers in the background.
type Pool struct {
	// noCopy prevents accidental copying of the pool.
	//go:nocopy
	nc noCopy

	config *config

	queue   *queue.Queue[job]
	workers []*worker
	lc      *lifecycleCoordinator

	logger *slog.Logger
	inst   *instruments

	// submission sequence, reported in worker logs
	seq atomic.Uint64
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates a pool of size workers. All workers are running when New returns.
// A zero size is rejected with ErrInvalidConfig before any goroutine is started.
func New(size uint, opts ...Option) (*Pool, error) {
	cfg := defaultConfig()
	cfg.Size = size
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	p := &Pool{}
	p.initialize(&cfg)
	runtime.SetFinalizer(p, (*Pool).finalize)
	return p, nil
}

// MustNew is like New but panics if the pool cannot be created.
func MustNew(size uint, opts ...Option) *Pool {
	p, err := New(size, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// initialize builds the queue and spawns the workers.
func (p *Pool) initialize(cfg *config) {
	p.config = cfg
	p.logger = cfg.Logger.With(slog.String("pool", cfg.Name))
	p.inst = newInstruments(cfg.Metrics, cfg.Name)

	// The hook must not capture p: workers keep the queue reachable, and a reference
	// back to p would keep the finalizer from ever running.
	depth := p.inst.depth
	onPush := queue.WithPushHook(func() { depth.Add(1) })
	if cfg.QueueCapacity > 0 {
		p.queue = queue.NewBounded[job](cfg.QueueCapacity, onPush)
	} else {
		p.queue = queue.NewUnbounded[job](onPush)
	}

	p.workers = make([]*worker, cfg.Size)
	for id := range p.workers {
		p.workers[id] = newWorker(id, p.queue.Receiver(), p.logger, p.inst)
	}
	for _, w := range p.workers {
		w.start()
	}

	p.lc = newLifecycleCoordinator(p.queue.Close, p.inst.release, p.workers, p.logger)
	p.logger.Info("pool started",
		slog.Int("workers", len(p.workers)),
		slog.Int("queue_capacity", p.queue.Cap()),
	)
}

// finalize runs when the pool is garbage collected without Close.
// It must not block, so the join runs on its own goroutine, which holds only the
// lifecycle coordinator.
func (p *Pool) finalize() {
	go p.lc.Close()
}

// Execute schedules task for execution by exactly one worker.
//
// It returns as soon as the task is queued. With a bounded queue (WithQueueCapacity)
// it waits while the queue is full; use ExecuteContext or TryExecute to bound that.
// After Close or Shutdown it returns ErrClosed.
func (p *Pool) Execute(task Task) error {
	return p.ExecuteContext(context.Background(), task)
}

// ExecuteContext is like Execute, but gives up waiting for queue space when ctx is done
// and returns ctx.Err(). The context does not affect the task once it is queued.
func (p *Pool) ExecuteContext(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	if err := p.queue.Send(ctx, p.newJob(task)); err != nil {
		return p.reject(err)
	}
	p.inst.submitted.Add(1)
	return nil
}

// TryExecute attempts to schedule task without waiting.
//
// Returns:
// - (true, nil) if the task was queued.
// - (false, nil) if the bounded queue is full.
// - (false, ErrClosed) after Close or Shutdown.
func (p *Pool) TryExecute(task Task) (bool, error) {
	if task == nil {
		return false, ErrNilTask
	}

	err := p.queue.TrySend(p.newJob(task))
	switch {
	case err == nil:
		p.inst.submitted.Add(1)
		return true, nil
	case errors.Is(err, queue.ErrFull):
		_ = p.reject(err)
		return false, nil
	default:
		return false, p.reject(err)
	}
}

func (p *Pool) newJob(task Task) job {
	return job{run: task, seq: p.seq.Add(1) - 1}
}

func (p *Pool) reject(err error) error {
	p.inst.rejected.Add(1)
	if errors.Is(err, queue.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

// Close tears the pool down: it closes the job queue, lets the workers run every task
// still queued, and joins all of them before returning. Once every worker is joined the
// pool's instruments are released (see metrics.Releaser).
//
// Close is idempotent and safe for concurrent use.
func (p *Pool) Close() {
	p.lc.Close()
}

// Shutdown is like Close, but stops waiting for workers when ctx is done and returns
// ctx.Err(). The queue stays closed and workers keep draining; a later Close or
// Shutdown waits for the rest.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.lc.signal()
	return p.lc.wait(ctx)
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Pending returns the number of queued tasks no worker has picked up yet.
func (p *Pool) Pending() int { return p.queue.Len() }

// State returns the current lifecycle stage.
func (p *Pool) State() State { return p.lc.State() }

// Name returns the pool name used in logs and metrics.
func (p *Pool) Name() string { return p.config.Name }
