package dag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/executor"
	"github.com/vk/startgrid/internal/monitor"
)

// Body is the unit of work a Task runs. A returned error is logged and kept
// on the task; it does not stop successors from running.
type Body func(ctx context.Context) error

// TaskOption configures a Task at construction.
type TaskOption func(*Task)

// WithPriority sets the initial execute priority.
func WithPriority(p int) TaskOption {
	return func(t *Task) { t.priority.Store(int64(p)) }
}

// WithAffinity pins the task to the pool or the serial executor. The choice
// cannot be changed later.
func WithAffinity(a Affinity) TaskOption {
	return func(t *Task) { t.affinity = a }
}

// Task is a leaf node with a body.
type Task struct {
	name     string
	body     Body
	affinity Affinity
	priority atomic.Int64
	state    atomic.Int32

	// mu guards the edge sets and the attachments below. Removing a
	// predecessor and testing for emptiness happen under one hold.
	mu           sync.Mutex
	predecessors map[*Task]struct{}
	successors   []*Task
	monitor      *monitor.Monitor
	execs        *Executors
	err          error

	finish subscription
}

// NewTask creates an idle task. A nil body is allowed and does nothing.
func NewTask(name string, body Body, opts ...TaskOption) *Task {
	t := &Task{
		name:         name,
		body:         body,
		predecessors: make(map[*Task]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Task) Name() string { return t.name }

func (t *Task) State() State { return State(t.state.Load()) }

func (t *Task) Priority() int { return int(t.priority.Load()) }

func (t *Task) SetPriority(p int) { t.priority.Store(int64(p)) }

// Affinity returns the executor the task runs on.
func (t *Task) Affinity() Affinity { return t.affinity }

// Err returns the error the body returned, if any. It is meaningful once the
// task is Finished.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) OnFinish(fn FinishFunc) { t.finish.subscribe(fn) }

func (t *Task) entry() *Task { return t }

func (t *Task) exit() *Task { return t }

func (t *Task) attach(m *monitor.Monitor, e *Executors) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m != nil && t.monitor == nil {
		t.monitor = m
	}
	if e != nil && t.execs == nil {
		t.execs = e
	}
}

// Start moves the task from Idle to Waiting and queues it on its executor.
// If the executor rejects it, the task finishes without running its body:
// Err reports the dispatch error and successors are still released.
func (t *Task) Start(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(Idle), int32(Waiting)) {
		return fmt.Errorf("task %q is %s: %w", t.name, t.State(), ErrDoubleStart)
	}
	ctxlog.FromContext(ctx).Debug("Node dispatched.", "node", t.name, "affinity", t.affinity, "priority", t.Priority())

	if err := t.executor().Submit(func() { t.run(ctx) }); err != nil {
		err = fmt.Errorf("failed to dispatch task %q: %w", t.name, err)
		t.abandon(ctx, err)
		return err
	}
	return nil
}

func (t *Task) abandon(ctx context.Context, err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	t.state.Store(int32(Finished))

	ctxlog.FromContext(ctx).Error("Node finished without running.", "node", t.name, "error", err)
	t.notifyFinished(ctx)
}

func (t *Task) executor() executor.Executor {
	t.mu.Lock()
	execs := t.execs
	t.mu.Unlock()
	if execs == nil {
		execs = DefaultExecutors()
	}
	return execs.For(t.affinity)
}

func (t *Task) run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	begin := time.Now()

	t.state.Store(int32(Running))
	logger.Debug("Node running.", "node", t.name)
	err := t.invoke(ctx)
	elapsed := time.Since(begin)

	t.mu.Lock()
	t.err = err
	m := t.monitor
	t.mu.Unlock()
	t.state.Store(int32(Finished))

	if err != nil {
		logger.Error("Node body failed.", "node", t.name, "error", err)
	}
	if m != nil {
		m.Record(ctx, t.name, elapsed)
	}
	t.notifyFinished(ctx)
}

func (t *Task) invoke(ctx context.Context) (err error) {
	if t.body == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %q panicked: %v", t.name, r)
		}
	}()
	return t.body(ctx)
}

// notifyFinished releases successors in priority order and then fires the
// finish subscribers. Successor edges are dropped afterwards.
func (t *Task) notifyFinished(ctx context.Context) {
	t.mu.Lock()
	successors := t.successors
	t.successors = nil
	t.mu.Unlock()

	SortByPriority(successors)
	for _, s := range successors {
		s.predecessorFinished(ctx, t)
	}
	t.finish.fire(t.name)
}

// predecessorFinished removes p from the pending set and starts the task
// when p was the last one. Only the caller that empties the set starts it.
func (t *Task) predecessorFinished(ctx context.Context, p *Task) {
	t.mu.Lock()
	if _, ok := t.predecessors[p]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.predecessors, p)
	ready := len(t.predecessors) == 0
	t.mu.Unlock()

	if !ready {
		return
	}
	if err := t.Start(ctx); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to start node after its predecessors finished.", "node", t.name, "error", err)
	}
}

func (t *Task) addSuccessor(s *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.successors {
		if existing == s {
			return
		}
	}
	t.successors = append(t.successors, s)
}

func (t *Task) removeSuccessor(s *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, existing := range t.successors {
		if existing == s {
			t.successors = append(t.successors[:i], t.successors[i+1:]...)
			return
		}
	}
}

func (t *Task) addPredecessor(p *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.predecessors[p] = struct{}{}
}

func (t *Task) removePredecessor(p *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.predecessors, p)
}

func (t *Task) pendingPredecessors() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.predecessors)
}

func (t *Task) successorNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.successors))
	for i, s := range t.successors {
		names[i] = s.name
	}
	return names
}
