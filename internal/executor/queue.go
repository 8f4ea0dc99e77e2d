package executor

import "sync"

// queue is an unbounded FIFO of pending tasks. push never blocks; pop blocks
// until a task is available or the queue is closed and drained.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []func()
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) push(task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, task)
	q.cond.Signal()
	return nil
}

// pop returns the oldest task. ok is false once the queue is closed and empty.
func (q *queue) pop() (task func(), ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	task = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return task, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close stops accepting new tasks. Tasks already queued are still handed out.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
