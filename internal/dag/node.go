package dag

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/vk/startgrid/internal/monitor"
)

// FinishFunc is a one-shot completion callback receiving the node's name.
type FinishFunc func(name string)

// Node is the capability set shared by a leaf Task and a composite Graph.
// Only types in this package implement it.
type Node interface {
	// Name returns the node's name. Names are unique by convention only.
	Name() string
	// Start dispatches the node. It fails with ErrDoubleStart unless the
	// node is Idle.
	Start(ctx context.Context) error
	// State returns the node's current state.
	State() State
	// OnFinish subscribes fn to the node's completion. fn fires exactly
	// once; subscribing after completion fires it immediately.
	OnFinish(fn FinishFunc)
	// Priority orders siblings released by the same predecessor. Higher
	// values are released first.
	Priority() int
	// SetPriority may be called any time before the releasing predecessor
	// finishes.
	SetPriority(p int)

	// entry is the task that receives predecessor edges.
	entry() *Task
	// exit is the task that owns successor edges.
	exit() *Task
	// attach wires the monitor the node reports to and the executors it
	// runs on. Nil arguments and already-set values are left alone.
	attach(m *monitor.Monitor, e *Executors)
}

// link makes succ wait for pred.
func link(pred, succ Node) error {
	if pred == nil || succ == nil {
		return fmt.Errorf("cannot link a nil node: %w", ErrUnknownNode)
	}
	from, to := pred.exit(), succ.entry()
	if pred == succ || from == to {
		return fmt.Errorf("node %q: %w", pred.Name(), ErrSelfDependency)
	}
	from.addSuccessor(to)
	to.addPredecessor(from)
	return nil
}

// unlink removes an edge created by link. Missing edges are ignored.
func unlink(pred, succ Node) {
	from, to := pred.exit(), succ.entry()
	from.removeSuccessor(to)
	to.removePredecessor(from)
}

// SortByPriority orders nodes by descending priority. Equal priorities keep
// their relative order.
func SortByPriority[N interface{ Priority() int }](nodes []N) {
	slices.SortStableFunc(nodes, func(a, b N) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
}
