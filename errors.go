package threadpool

import "errors"

const Namespace = "threadpool"

var (
	ErrInvalidConfig = errors.New(Namespace + ": invalid configuration")
	ErrClosed        = errors.New(Namespace + ": cannot execute a task on a closed pool")
	ErrNilTask       = errors.New(Namespace + ": task must not be nil")
)
