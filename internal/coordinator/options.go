package coordinator

import (
	"log/slog"

	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/scope"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithExecutors dispatches the selected graph and every deferred node that
// has no executors of its own on e.
func WithExecutors(e *dag.Executors) Option {
	return func(c *Coordinator) { c.execs = e }
}

// WithLogger sets the logger used outside of a context, such as during
// registration.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// RunOption configures a deferred run request.
type RunOption func(*runOptions)

type runOptions struct {
	priority    int
	hasPriority bool
	scope       scope.Scope
	process     string
}

// WithPriority sets the node's priority when it is queued. Without it the
// node keeps its own priority.
func WithPriority(p int) RunOption {
	return func(o *runOptions) {
		o.priority = p
		o.hasPriority = true
	}
}

// ForScope drops the request unless the current process is in s.
func ForScope(s scope.Scope) RunOption {
	return func(o *runOptions) { o.scope = s }
}

// ForProcess drops the request unless the current process is named name.
// It takes precedence over ForScope.
func ForProcess(name string) RunOption {
	return func(o *runOptions) { o.process = name }
}

func newRunOptions(opts []RunOption) runOptions {
	o := runOptions{scope: scope.All}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o runOptions) applies(pred scope.Predicate) bool {
	if o.process != "" {
		return pred.Matches(o.process)
	}
	return scope.Matches(o.scope, pred)
}
