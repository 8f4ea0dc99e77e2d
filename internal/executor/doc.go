// Package executor provides the two places a node body can run: a shared,
// bounded worker Pool fed by an unbounded FIFO queue, and a single Serial
// executor that runs its tasks strictly one at a time in submission order.
//
// Submit on either executor never waits for a free worker, so a running
// task may submit follow-up work to a saturated pool.
package executor
