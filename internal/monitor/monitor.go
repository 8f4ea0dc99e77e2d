// Package monitor keeps the timing ledger of a single graph run: how long
// each node took, how long the whole graph took, and whether any node ran
// past the warning threshold.
package monitor

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vk/startgrid/internal/ctxlog"
)

// DefaultWarnThreshold is the node duration at or above which an alert fires.
const DefaultWarnThreshold = 400 * time.Millisecond

var (
	nodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "startgrid",
		Name:      "node_duration_seconds",
		Help:      "Wall-clock duration of node bodies.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"graph", "node"})

	graphDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "startgrid",
		Name:      "graph_duration_seconds",
		Help:      "Wall-clock duration of whole graph runs, Start anchor to Finish anchor.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"graph"})

	slowNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "startgrid",
		Name:      "slow_nodes_total",
		Help:      "Nodes whose duration met or exceeded the warning threshold.",
	}, []string{"graph"})
)

// AlertFunc receives a formatted over-threshold message.
type AlertFunc func(msg string)

// ReportFunc receives the per-node durations and the total graph duration
// once a graph finishes.
type ReportFunc func(records map[string]time.Duration, total time.Duration)

// Submitter is the executor an alert is delivered on.
type Submitter interface {
	Submit(task func()) error
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithThreshold sets the warning threshold.
func WithThreshold(d time.Duration) Option {
	return func(m *Monitor) { m.threshold = d }
}

// WithAlert sets the alert callback and the executor it must run on. A nil
// executor calls the alert inline.
func WithAlert(fn AlertFunc, on Submitter) Option {
	return func(m *Monitor) {
		m.alert = fn
		m.alertOn = on
	}
}

// WithGraphName labels exported metrics with the owning graph's name.
func WithGraphName(name string) Option {
	return func(m *Monitor) { m.graph = name }
}

// Monitor is safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	records   map[string]time.Duration
	started   time.Time
	total     time.Duration
	threshold time.Duration
	alert     AlertFunc
	alertOn   Submitter
	graph     string
}

// New creates a monitor with the default threshold and no alert callback.
func New(opts ...Option) *Monitor {
	m := &Monitor{
		records:   make(map[string]time.Duration),
		threshold: DefaultWarnThreshold,
	}
	m.Configure(opts...)
	return m
}

// Configure applies options to an existing monitor.
func (m *Monitor) Configure(opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		opt(m)
	}
}

// Record stores the duration of the named node, replacing any earlier
// record under the same name, and raises an alert when elapsed meets or
// exceeds the threshold.
func (m *Monitor) Record(ctx context.Context, name string, elapsed time.Duration) {
	logger := ctxlog.FromContext(ctx)

	m.mu.Lock()
	m.records[name] = elapsed
	graph, threshold, alert, alertOn := m.graph, m.threshold, m.alert, m.alertOn
	m.mu.Unlock()

	logger.Debug("Node execution recorded.", "graph", graph, "node", name, "elapsed_ms", elapsed.Milliseconds())
	nodeDuration.WithLabelValues(graph, name).Observe(elapsed.Seconds())

	if threshold <= 0 || elapsed < threshold {
		return
	}
	slowNodes.WithLabelValues(graph).Inc()
	msg := fmt.Sprintf("node %s ran too long: %d ms (threshold %d ms)", name, elapsed.Milliseconds(), threshold.Milliseconds())
	logger.Warn("Node exceeded warning threshold.", "graph", graph, "node", name, "elapsed_ms", elapsed.Milliseconds())
	if alert == nil {
		return
	}
	if alertOn == nil {
		alert(msg)
		return
	}
	if err := alertOn.Submit(func() { alert(msg) }); err != nil {
		logger.Error("Failed to deliver node alert.", "node", name, "error", err)
	}
}

// RecordGraphStart marks the beginning of the graph run.
func (m *Monitor) RecordGraphStart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = time.Now()
}

// RecordGraphFinish closes the bracket opened by RecordGraphStart and
// returns the total duration.
func (m *Monitor) RecordGraphFinish(ctx context.Context) time.Duration {
	m.mu.Lock()
	if m.started.IsZero() {
		m.total = 0
	} else {
		m.total = time.Since(m.started)
	}
	total, graph := m.total, m.graph
	m.mu.Unlock()

	graphDuration.WithLabelValues(graph).Observe(total.Seconds())
	ctxlog.FromContext(ctx).Info("Graph run finished.", "graph", graph, "elapsed_ms", total.Milliseconds())
	return total
}

// Records returns a copy of every node duration recorded so far.
func (m *Monitor) Records() map[string]time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.records)
}

// TotalDuration returns the duration computed by RecordGraphFinish, or zero
// if the graph has not finished.
func (m *Monitor) TotalDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Threshold returns the configured warning threshold.
func (m *Monitor) Threshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
