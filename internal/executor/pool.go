package executor

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultIdleTimeout is how long an idle pool worker lives before it is
	// released.
	DefaultIdleTimeout = 10 * time.Second
	// DefaultReleaseTimeout bounds how long Close waits for running tasks.
	DefaultReleaseTimeout = 5 * time.Second
)

// Pool runs tasks concurrently on a bounded set of goroutines managed by an
// ants pool. Submissions land in an unbounded queue and a single dispatcher
// goroutine moves them into the pool as workers free up.
type Pool struct {
	pool           *ants.Pool
	queue          *queue
	logger         *slog.Logger
	releaseTimeout time.Duration
	dispatched     chan struct{}
	closeOnce      sync.Once
}

// PoolOption configures a Pool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	idleTimeout    time.Duration
	releaseTimeout time.Duration
	logger         *slog.Logger
}

// WithIdleTimeout sets how long idle workers are kept before being released.
func WithIdleTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) { o.idleTimeout = d }
}

// WithReleaseTimeout sets how long Close waits for in-flight tasks.
func WithReleaseTimeout(d time.Duration) PoolOption {
	return func(o *poolOptions) { o.releaseTimeout = d }
}

// WithLogger sets the logger used to report panics that escape a task.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(o *poolOptions) { o.logger = logger }
}

// NewPool creates a pool with size workers. A size of zero or less uses the
// number of CPUs.
func NewPool(size int, opts ...PoolOption) (*Pool, error) {
	o := poolOptions{
		idleTimeout:    DefaultIdleTimeout,
		releaseTimeout: DefaultReleaseTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if size <= 0 {
		size = runtime.NumCPU()
	}

	logger := o.logger
	pool, err := ants.NewPool(size,
		ants.WithExpiryDuration(o.idleTimeout),
		ants.WithPanicHandler(func(r any) {
			logger.Error("Task panicked on worker pool.", "panic", r)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	p := &Pool{
		pool:           pool,
		queue:          newQueue(),
		logger:         logger,
		releaseTimeout: o.releaseTimeout,
		dispatched:     make(chan struct{}),
	}
	go p.dispatch()
	return p, nil
}

// Submit implements Executor. It never blocks on worker availability.
func (p *Pool) Submit(task func()) error {
	return p.queue.push(task)
}

// Cap returns the maximum number of concurrently running tasks.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Pending returns the number of tasks queued but not yet handed to a worker.
func (p *Pool) Pending() int {
	return p.queue.len()
}

// dispatch feeds queued tasks into the ants pool. Submit on the ants pool
// blocks while every worker is busy, which keeps the backlog in our queue.
func (p *Pool) dispatch() {
	defer close(p.dispatched)
	for {
		task, ok := p.queue.pop()
		if !ok {
			return
		}
		if err := p.pool.Submit(task); err != nil {
			p.logger.Error("Failed to hand task to worker pool.", "error", err)
		}
	}
}

// Close stops accepting work, waits for queued tasks to be dispatched and
// then for running tasks to finish, up to the release timeout.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.queue.close()
		<-p.dispatched
		err = p.pool.ReleaseTimeout(p.releaseTimeout)
	})
	return err
}
