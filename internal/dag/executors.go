package dag

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vk/startgrid/internal/executor"
)

// Executors is the pair of executors a node can be dispatched to.
type Executors struct {
	Pool   executor.Executor
	Serial executor.Executor
}

// For returns the executor matching the affinity.
func (e *Executors) For(a Affinity) executor.Executor {
	if a == SerialAffinity {
		return e.Serial
	}
	return e.Pool
}

var (
	defaultExecutorsOnce sync.Once
	defaultExecutors     *Executors
)

// DefaultExecutors returns the process-wide executors used by nodes that
// were never given their own: a CPU-sized pool and one serial executor.
func DefaultExecutors() *Executors {
	defaultExecutorsOnce.Do(func() {
		pool, err := executor.NewPool(0)
		if err != nil {
			panic(fmt.Errorf("failed to create default worker pool: %w", err))
		}
		defaultExecutors = &Executors{
			Pool:   pool,
			Serial: executor.NewSerial(slog.Default()),
		}
	})
	return defaultExecutors
}

// UseExecutors assigns executors to a node that has none yet. Nodes that
// already carry executors keep them.
func UseExecutors(n Node, e *Executors) {
	if n == nil || e == nil {
		return
	}
	n.attach(nil, e)
}
