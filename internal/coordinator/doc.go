// Package coordinator selects the startup graph that applies to the
// current process, runs it, and layers two deferred queues on top of the
// run: nodes that start once the whole graph has finished, and nodes that
// start once a named node of the graph has finished.
//
// A Coordinator is an explicit handle: create it with New, register
// candidate graphs, call Start once, and Close it when the process no
// longer needs it. Waiting for completion from a node that belongs to the
// selected graph deadlocks and is the caller's responsibility to avoid.
package coordinator
