package dag

import (
	"fmt"

	"github.com/vk/startgrid/internal/monitor"
)

// Builder assembles a Graph. Calls chain and must follow assembly order:
// After modifies the node passed to the preceding Add. The first usage
// error is kept and returned by Create; later calls become no-ops.
//
// Create resets the per-graph state (name, listeners, report callback,
// nodes) but keeps the factory, executors and monitor options, so one
// builder can assemble several independent graphs.
type Builder struct {
	factory     *Factory
	execs       *Executors
	monitorOpts []monitor.Option

	graph      *Graph
	name       string
	listeners  []GraphListener
	report     monitor.ReportFunc
	current    Node
	positioned bool
	err        error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{name: DefaultGraphName}
}

// Named sets the name of the graph being assembled.
func (b *Builder) Named(name string) *Builder {
	if name == "" {
		name = DefaultGraphName
	}
	b.name = name
	if b.graph != nil {
		b.graph.setName(name)
	}
	return b
}

// WithFactory sets the factory used by AddName and AfterNames.
func (b *Builder) WithFactory(f *Factory) *Builder {
	b.factory = f
	return b
}

// WithCreator is shorthand for WithFactory(NewFactory(c)).
func (b *Builder) WithCreator(c Creator) *Builder {
	return b.WithFactory(NewFactory(c))
}

// WithExecutors dispatches every node added afterwards, and the graph's
// anchors, on e.
func (b *Builder) WithExecutors(e *Executors) *Builder {
	b.execs = e
	return b
}

// WithMonitorOptions configures the monitor of graphs created afterwards.
func (b *Builder) WithMonitorOptions(opts ...monitor.Option) *Builder {
	b.monitorOpts = append(b.monitorOpts, opts...)
	if b.graph != nil {
		b.graph.monitor.Configure(opts...)
	}
	return b
}

// WithListener installs l on the graph being assembled.
func (b *Builder) WithListener(l GraphListener) *Builder {
	if l != nil {
		b.listeners = append(b.listeners, l)
	}
	return b
}

// WithRecordCallback installs fn to receive the monitor's records and total
// duration once the graph finishes.
func (b *Builder) WithRecordCallback(fn monitor.ReportFunc) *Builder {
	b.report = fn
	return b
}

// Add puts n into the graph. Until After says otherwise, n runs right after
// the Start anchor and the Finish anchor waits for it.
func (b *Builder) Add(n Node) *Builder {
	if b.err != nil {
		return b
	}
	if n == nil {
		return b.fail(fmt.Errorf("cannot add a nil node: %w", ErrUnknownNode))
	}
	g := b.root()
	if err := b.placeCurrent(); err != nil {
		return b.fail(err)
	}
	if err := link(n, g.finish); err != nil {
		return b.fail(err)
	}

	n.attach(g.monitor, b.execs)
	n.OnFinish(g.nodeFinished)
	g.addMember(n)

	b.current = n
	b.positioned = false
	return b
}

// AddName resolves name through the factory and adds the result.
func (b *Builder) AddName(name string) *Builder {
	if b.err != nil {
		return b
	}
	n, err := b.resolve(name)
	if err != nil {
		return b.fail(err)
	}
	return b.Add(n)
}

// After makes the current node wait for every node in preds instead of the
// Start anchor. A predecessor that now has a successor inside the graph is
// no longer waited on by the Finish anchor. After with no arguments does
// nothing.
func (b *Builder) After(preds ...Node) *Builder {
	if b.err != nil {
		return b
	}
	if b.current == nil {
		return b.fail(ErrNoCurrentNode)
	}
	if len(preds) == 0 {
		return b
	}
	g := b.graph
	for _, p := range preds {
		if p == nil {
			return b.fail(fmt.Errorf("predecessor of %q is nil: %w", b.current.Name(), ErrUnknownNode))
		}
		if err := link(p, b.current); err != nil {
			return b.fail(err)
		}
		unlink(p, g.finish)
	}
	b.positioned = true
	return b
}

// AfterNames resolves every name through the factory and calls After.
func (b *Builder) AfterNames(names ...string) *Builder {
	if b.err != nil {
		return b
	}
	if b.current == nil {
		return b.fail(ErrNoCurrentNode)
	}
	preds := make([]Node, 0, len(names))
	for _, name := range names {
		n, err := b.resolve(name)
		if err != nil {
			return b.fail(err)
		}
		preds = append(preds, n)
	}
	return b.After(preds...)
}

// Err reports the first usage error recorded so far.
func (b *Builder) Err() error { return b.err }

// Create finishes assembly and resets the builder. On a usage error it
// returns the error and no graph.
func (b *Builder) Create() (*Graph, error) {
	defer b.reset()
	if b.err != nil {
		return nil, b.err
	}

	g := b.root()
	if err := b.placeCurrent(); err != nil {
		return nil, err
	}
	if b.current == nil {
		if err := link(g.start, g.finish); err != nil {
			return nil, err
		}
	}
	if b.execs != nil {
		g.start.attach(nil, b.execs)
		g.finish.attach(nil, b.execs)
	}
	for _, l := range b.listeners {
		g.OnExecute(l)
	}
	g.report = b.report
	return g, nil
}

func (b *Builder) root() *Graph {
	if b.graph == nil {
		b.graph = newGraph(b.name, b.monitorOpts...)
	}
	return b.graph
}

// placeCurrent wires the current node to the Start anchor unless After
// already positioned it.
func (b *Builder) placeCurrent() error {
	if b.current == nil || b.positioned {
		return nil
	}
	b.positioned = true
	return link(b.graph.start, b.current)
}

func (b *Builder) resolve(name string) (Node, error) {
	if b.factory == nil {
		return nil, fmt.Errorf("node %q: %w", name, ErrNoFactory)
	}
	return b.factory.Get(name)
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) reset() {
	b.graph = nil
	b.name = DefaultGraphName
	b.listeners = nil
	b.report = nil
	b.current = nil
	b.positioned = false
	b.err = nil
}
