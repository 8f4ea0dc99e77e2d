package dag

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/monitor"
)

// DefaultGraphName is used when a graph is created without a name.
const DefaultGraphName = "graph"

// Graph is a composite node bounded by a Start and a Finish anchor. From the
// outside it behaves as one node: predecessors wire into Start and
// successors hang off Finish.
type Graph struct {
	name   string
	start  *Task
	finish *Task

	monitor *monitor.Monitor

	mu        sync.Mutex
	parent    *monitor.Monitor
	members   []Node
	listeners []GraphListener
	report    monitor.ReportFunc
	// pending counts member completions not yet delivered to listeners.
	pending  int
	// notified is set once GraphFinished has been delivered.
	notified bool
}

func newGraph(name string, opts ...monitor.Option) *Graph {
	g := &Graph{name: name}
	g.monitor = monitor.New(append([]monitor.Option{monitor.WithGraphName(name)}, opts...)...)
	g.start = newAnchor(name+"#start", g.started)
	g.finish = newAnchor(name+"#finish", g.finished)
	return g
}

func newAnchor(name string, fn func(ctx context.Context)) *Task {
	return NewTask(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (g *Graph) Name() string { return g.name }

// Start runs the graph from its Start anchor. A graph can be started once.
func (g *Graph) Start(ctx context.Context) error {
	if err := g.start.Start(ctx); err != nil {
		return fmt.Errorf("graph %q: %w", g.name, err)
	}
	return nil
}

// State is derived from the anchors: Idle until Start is dispatched,
// Finished once Finish has run, Running in between.
func (g *Graph) State() State {
	switch {
	case g.finish.State() == Finished:
		return Finished
	case g.start.State() == Idle:
		return Idle
	case g.start.State() == Waiting:
		return Waiting
	default:
		return Running
	}
}

// OnFinish fires fn with the graph's name once the Finish anchor has run.
func (g *Graph) OnFinish(fn FinishFunc) {
	if fn == nil {
		return
	}
	g.finish.OnFinish(func(string) { fn(g.name) })
}

func (g *Graph) Priority() int { return g.start.Priority() }

func (g *Graph) SetPriority(p int) { g.start.SetPriority(p) }

// OnExecute adds a listener for the graph's start, its member completions
// and its finish.
func (g *Graph) OnExecute(l GraphListener) {
	if l == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.notified && g.pending == 0 {
		return
	}
	g.listeners = append(g.listeners, l)
}

// Monitor returns the timing ledger of this graph's members.
func (g *Graph) Monitor() *monitor.Monitor { return g.monitor }

func (g *Graph) entry() *Task { return g.start }

func (g *Graph) exit() *Task { return g.finish }

// attach sets the monitor the whole graph's duration is recorded in and
// hands the executors down to the anchors and to every member that has
// none yet.
func (g *Graph) attach(m *monitor.Monitor, e *Executors) {
	g.mu.Lock()
	if m != nil && g.parent == nil {
		g.parent = m
	}
	members := g.members
	g.mu.Unlock()

	if e == nil {
		return
	}
	g.start.attach(nil, e)
	g.finish.attach(nil, e)
	for _, n := range members {
		n.attach(nil, e)
	}
}

func (g *Graph) setName(name string) {
	g.name = name
	g.monitor.Configure(monitor.WithGraphName(name))
}

func (g *Graph) addMember(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, n)
	g.pending++
}

func (g *Graph) snapshotListeners() []GraphListener {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GraphListener(nil), g.listeners...)
}

func (g *Graph) started(ctx context.Context) {
	g.mu.Lock()
	g.members = nil
	g.mu.Unlock()

	g.monitor.RecordGraphStart()
	ctxlog.FromContext(ctx).Info("Graph started.", "graph", g.name)
	for _, l := range g.snapshotListeners() {
		l.GraphStarted(g.name)
	}
}

func (g *Graph) nodeFinished(name string) {
	for _, l := range g.snapshotListeners() {
		l.NodeFinished(g.name, name)
	}
	g.mu.Lock()
	g.pending--
	g.retireLocked()
	g.mu.Unlock()
}

// retireLocked drops the listeners once GraphFinished and every member
// completion have been delivered. A member's completion can arrive after
// the Finish anchor has run.
func (g *Graph) retireLocked() {
	if g.notified && g.pending == 0 {
		g.listeners = nil
	}
}

// finished records the total duration, notifies listeners and releases the
// report callback.
func (g *Graph) finished(ctx context.Context) {
	total := g.monitor.RecordGraphFinish(ctx)

	g.mu.Lock()
	parent, report := g.parent, g.report
	g.report = nil
	g.mu.Unlock()

	if parent != nil {
		parent.Record(ctx, g.name, total)
	}
	for _, l := range g.snapshotListeners() {
		l.GraphFinished(g.name)
	}
	g.mu.Lock()
	g.notified = true
	g.retireLocked()
	g.mu.Unlock()

	if report != nil {
		report(g.monitor.Records(), total)
	}
}

func (g *Graph) listenerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.listeners)
}
