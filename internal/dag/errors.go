package dag

import "errors"

var (
	// ErrDoubleStart is returned when a node that is not Idle is started
	// again. It usually means the graph was wired with a cycle or the same
	// node was added twice.
	ErrDoubleStart = errors.New("node started twice, is there a circular dependency?")

	// ErrNoCurrentNode is returned when After is called before any Add.
	ErrNoCurrentNode = errors.New("after called without a preceding add")

	// ErrNoFactory is returned when nodes are referenced by name but the
	// builder has no factory.
	ErrNoFactory = errors.New("no node factory configured, call WithFactory before adding nodes by name")

	// ErrUnknownNode is returned when a name cannot be turned into a node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfDependency is returned when a node is wired after itself.
	ErrSelfDependency = errors.New("a node cannot run after itself")
)

// ErrCycle is returned by Build when declared dependencies form a cycle.
var ErrCycle = errors.New("node dependencies form a cycle")
