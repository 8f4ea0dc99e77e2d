package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/multimap"
	"github.com/vk/startgrid/internal/scope"
)

var (
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("coordinator already started")
	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrNilGraph is returned when a nil graph is registered.
	ErrNilGraph = errors.New("graph is nil")
)

// Coordinator runs one startup graph per process. It is safe for
// concurrent use.
type Coordinator struct {
	pred   scope.Predicate
	execs  *dag.Executors
	logger *slog.Logger
	runID  string

	// mu guards everything below. Deferred queues, the finished-name set
	// and the completion flag change together under one hold so that a
	// registration racing with the node it waits for is never lost.
	mu         sync.Mutex
	byScope    map[scope.Scope]*dag.Graph
	forProcess *dag.Graph
	selected   *dag.Graph
	started    bool
	closed     bool
	complete   bool
	finished   map[string]struct{}
	afterNode  *multimap.List[string, dag.Node]
	afterGraph []dag.Node
	done       chan struct{}
}

// New creates a coordinator for the process described by pred.
func New(pred scope.Predicate, opts ...Option) *Coordinator {
	c := &Coordinator{
		pred:      pred,
		logger:    slog.Default(),
		runID:     uuid.NewString(),
		byScope:   make(map[scope.Scope]*dag.Graph),
		finished:  make(map[string]struct{}),
		afterNode: multimap.New[string, dag.Node](),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("run_id", c.runID)
	return c
}

// RunID identifies this coordinator's run in logs.
func (c *Coordinator) RunID() string { return c.runID }

// RegisterGraph declares g as the candidate for scope s. Graphs whose scope
// does not include the current process are ignored. A later registration
// for the same scope replaces the earlier one.
func (c *Coordinator) RegisterGraph(g *dag.Graph, s scope.Scope) error {
	if g == nil {
		return ErrNilGraph
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !scope.Matches(s, c.pred) {
		c.logger.Debug("Graph scope does not include this process, ignoring.", "graph", g.Name(), "scope", s)
		return nil
	}
	c.byScope[s] = g
	c.logger.Debug("Graph registered.", "graph", g.Name(), "scope", s)
	return nil
}

// RegisterGraphForProcess declares g as the graph of the process named
// name. It is ignored in every other process.
func (c *Coordinator) RegisterGraphForProcess(g *dag.Graph, name string) error {
	if g == nil {
		return ErrNilGraph
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.pred.Matches(name) {
		c.logger.Debug("Graph belongs to another process, ignoring.", "graph", g.Name(), "process", name)
		return nil
	}
	c.forProcess = g
	c.logger.Debug("Graph registered for process.", "graph", g.Name(), "process", name)
	return nil
}

// RegisterDescriptors builds every declared graph that applies to the
// current process with b and registers it by process name when one is
// declared, by scope otherwise.
func (c *Coordinator) RegisterDescriptors(ctx context.Context, model *config.Model, r dag.Resolver, b *dag.Builder) error {
	logger := ctxlog.FromContext(ctx)
	for _, decl := range model.Graphs {
		if err := decl.Validate(); err != nil {
			return err
		}
		s, err := scope.Parse(decl.EffectiveScope())
		if err != nil {
			return fmt.Errorf("graph %q: %w", decl.Name, err)
		}
		if !c.applies(decl, s) {
			logger.Debug("Skipping graph declared for another process.", "graph", decl.Name, "scope", s, "process", decl.Process)
			continue
		}

		g, err := dag.Build(ctx, decl, r, b)
		if err != nil {
			return err
		}
		if decl.Process != "" {
			err = c.RegisterGraphForProcess(g, decl.Process)
		} else {
			err = c.RegisterGraph(g, s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) applies(decl *config.Graph, s scope.Scope) bool {
	if decl.Process != "" {
		return c.pred.Matches(decl.Process)
	}
	return scope.Matches(s, c.pred)
}

// Start selects the graph for the current process and starts it. The most
// specific registration wins: the process name, then primary or secondary,
// then all. With no matching graph the run completes immediately and a
// warning is logged.
func (c *Coordinator) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("run_id", c.runID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	g := c.selectLocked()
	c.selected = g
	c.mu.Unlock()

	if g == nil {
		logger.Warn("No startup graph for current process.")
		c.graphFinished(ctx, "")
		return nil
	}

	dag.UseExecutors(g, c.execs)
	g.OnExecute(dag.ListenerFuncs{
		Node: func(_, node string) { c.nodeFinished(ctx, node) },
	})
	g.OnFinish(func(name string) { c.graphFinished(ctx, name) })

	logger.Info("Starting startup graph.", "graph", g.Name())
	if err := g.Start(ctx); err != nil {
		return fmt.Errorf("failed to start graph %q: %w", g.Name(), err)
	}
	return nil
}

func (c *Coordinator) selectLocked() *dag.Graph {
	if c.forProcess != nil {
		return c.forProcess
	}
	if c.pred.IsPrimary() {
		if g := c.byScope[scope.Primary]; g != nil {
			return g
		}
	} else if g := c.byScope[scope.Secondary]; g != nil {
		return g
	}
	return c.byScope[scope.All]
}

// Selected returns the graph chosen by Start, or nil.
func (c *Coordinator) Selected() *dag.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// RunAfterCompletion starts n once the selected graph has finished, or
// right away if it already has. Nodes queued together start in priority
// order.
func (c *Coordinator) RunAfterCompletion(ctx context.Context, n dag.Node, opts ...RunOption) error {
	o := newRunOptions(opts)
	if !o.applies(c.pred) {
		return nil
	}
	dag.UseExecutors(n, c.execs)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.complete {
		c.mu.Unlock()
		return n.Start(ctx)
	}
	if o.hasPriority {
		n.SetPriority(o.priority)
	}
	c.afterGraph = append(c.afterGraph, n)
	c.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Node deferred until graph completion.", "node", n.Name(), "priority", n.Priority())
	return nil
}

// RunAfterNode starts n once the node named name has finished, or right
// away if it already has or the whole graph is complete. Entries whose name
// never finishes start when the graph completes.
func (c *Coordinator) RunAfterNode(ctx context.Context, n dag.Node, name string, opts ...RunOption) error {
	o := newRunOptions(opts)
	if !o.applies(c.pred) {
		return nil
	}
	dag.UseExecutors(n, c.execs)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	_, done := c.finished[name]
	if c.complete || done {
		c.mu.Unlock()
		return n.Start(ctx)
	}
	if o.hasPriority {
		n.SetPriority(o.priority)
	}
	c.afterNode.Put(name, n)
	c.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Node deferred until predecessor finishes.", "node", n.Name(), "after", name, "priority", n.Priority())
	return nil
}

func (c *Coordinator) nodeFinished(ctx context.Context, name string) {
	c.mu.Lock()
	if c.complete {
		c.mu.Unlock()
		return
	}
	c.finished[name] = struct{}{}
	released := c.afterNode.Take(name)
	c.mu.Unlock()

	c.startAll(ctx, released, "Releasing nodes deferred after node.", "after", name)
}

func (c *Coordinator) graphFinished(ctx context.Context, name string) {
	c.mu.Lock()
	if c.complete {
		c.mu.Unlock()
		return
	}
	c.complete = true
	afterGraph := c.afterGraph
	c.afterGraph = nil
	orphans := c.afterNode.Drain()
	clear(c.finished)
	c.mu.Unlock()

	// Deferred nodes must be dispatched before waiters wake.
	c.startAll(ctx, afterGraph, "Releasing nodes deferred after graph completion.")
	for _, pred := range slices.Sorted(maps.Keys(orphans)) {
		ctxlog.FromContext(ctx).Warn("Predecessor never finished in this run, releasing its dependents.", "node", pred, "graph", name)
		c.startAll(ctx, orphans[pred], "Releasing orphaned deferred nodes.", "after", pred)
	}

	close(c.done)
	ctxlog.FromContext(ctx).Info("Startup run complete.", "run_id", c.runID, "graph", name)
}

func (c *Coordinator) startAll(ctx context.Context, nodes []dag.Node, msg string, args ...any) {
	if len(nodes) == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug(msg, append(args, "count", len(nodes))...)
	dag.SortByPriority(nodes)
	for _, n := range nodes {
		if err := n.Start(ctx); err != nil {
			logger.Error("Failed to start deferred node.", "node", n.Name(), "error", err)
		}
	}
}

// IsComplete reports whether the selected graph has finished and the nodes
// deferred until then have been dispatched.
func (c *Coordinator) IsComplete() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed when the run completes.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// WaitUntilComplete blocks until the run completes. It returns at once if
// it already has.
func (c *Coordinator) WaitUntilComplete() { <-c.done }

// WaitUntilCompleteTimeout blocks until the run completes or d elapses and
// reports whether it timed out. The graph keeps running either way.
func (c *Coordinator) WaitUntilCompleteTimeout(d time.Duration) (timedOut bool) {
	if c.IsComplete() {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return false
	case <-timer.C:
		return true
	}
}

// Wait blocks until the run completes or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops every registration and pending deferred node. A running graph
// is not stopped. Close is idempotent.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	clear(c.byScope)
	c.forProcess = nil
	c.afterGraph = nil
	if pending := c.afterNode.Size(); pending > 0 {
		c.logger.Warn("Coordinator closed with deferred nodes that never ran.", "count", pending)
	}
	c.afterNode.Drain()
	return nil
}
