package testutil

import (
	"context"
	"slices"
	"sync"
	"time"
)

// ExecutionRecord holds the start and end times of a single body run.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder captures when node bodies ran and in which order they started
// and finished. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	started  []string
	finished []string
	runs     map[string][]ExecutionRecord
	done     chan string
}

// NewRecorder returns an empty recorder. Every finished body is also sent
// on Done, which is buffered to capacity.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{
		runs: make(map[string][]ExecutionRecord),
		done: make(chan string, capacity),
	}
}

// Body returns a node body that records itself under name and sleeps for d.
func (r *Recorder) Body(name string, d time.Duration) func(ctx context.Context) error {
	return func(context.Context) error {
		start := time.Now()
		r.mu.Lock()
		r.started = append(r.started, name)
		r.mu.Unlock()

		if d > 0 {
			time.Sleep(d)
		}

		r.mu.Lock()
		r.finished = append(r.finished, name)
		r.runs[name] = append(r.runs[name], ExecutionRecord{Start: start, End: time.Now()})
		r.mu.Unlock()
		select {
		case r.done <- name:
		default:
		}
		return nil
	}
}

// Done delivers the name of every finished body.
func (r *Recorder) Done() <-chan string { return r.done }

// Started returns body names in start order.
func (r *Recorder) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.started)
}

// Finished returns body names in finish order.
func (r *Recorder) Finished() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.finished)
}

// Runs returns every recorded run of name.
func (r *Recorder) Runs(name string) []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.runs[name])
}

// Record returns the single run of name and whether it ran exactly once.
func (r *Recorder) Record(name string) (ExecutionRecord, bool) {
	runs := r.Runs(name)
	if len(runs) != 1 {
		return ExecutionRecord{}, false
	}
	return runs[0], true
}
