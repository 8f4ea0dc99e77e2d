// Package dag is the execution layer of the application. It assembles units
// of work into a graph with a Builder and runs them concurrently: each node
// starts as soon as every predecessor has finished, runs exactly once, and
// fans its completion out to its successors in priority order.
//
// A Graph is itself a Node. Its Start and Finish anchors bound the
// user-assembled subgraph, so a whole graph can be embedded in another one
// and behaves there like a single opaque node.
package dag
