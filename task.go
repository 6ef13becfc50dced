package threadpool

// Task is a unit of work run once by exactly one worker.
// It takes no arguments and returns nothing; any state it needs is captured by the closure.
// Tasks touching shared state must synchronize it themselves.
type Task func()

// job is the queued form of a Task.
type job struct {
	run Task
	// seq is the submission sequence number, used in worker logs.
	seq uint64
}
