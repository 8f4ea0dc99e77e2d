package executor

import "errors"

// ErrClosed is returned by Submit after the executor has been closed.
var ErrClosed = errors.New("executor: closed")

// Executor accepts units of work for asynchronous execution.
type Executor interface {
	// Submit queues task for execution and returns without waiting for it
	// to run.
	Submit(task func()) error
}
