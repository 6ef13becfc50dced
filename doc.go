// Package threadpool provides a fixed-size worker pool.
//
// A Pool starts a fixed number of worker goroutines when it is created. Callers hand it
// tasks with Execute; each task is queued on a shared FIFO job queue and run exactly
// once by whichever worker takes it next. Submission is decoupled from execution:
// Execute returns as soon as the task is queued.
//
// Constructors
//   - New(size, opts...): returns ErrInvalidConfig for size 0 or invalid options.
//   - MustNew(size, opts...): panics instead of returning an error.
//
// Defaults
// Unless overridden, the following defaults apply:
//   - WithQueueCapacity: 0 (unbounded queue, Execute never waits)
//   - WithName: a random UUID
//   - WithLogger: discards all records
//   - WithMetrics: metrics.NoopProvider
//
// Lifecycle
// A pool moves from StateActive to StateShuttingDown when Close or Shutdown is called,
// and to StateTerminated once every worker has drained the queue and exited. Tasks
// queued before Close still run before Close returns. Execute after Close returns
// ErrClosed.
//
// Tasks
// A Task is a plain func(). The pool does not return results, cancel running tasks,
// or recover panics: a panicking task crashes the program like any other goroutine.
package threadpool
