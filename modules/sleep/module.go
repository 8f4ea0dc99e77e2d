// Package sleep provides the "sleep" node, which waits for a fixed
// duration. It stands in for slow startup work.
package sleep

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/registry"
)

// DefaultDuration is used when the "duration" argument is absent.
const DefaultDuration = 100 * time.Millisecond

// Module implements the registry.Module interface for this package.
type Module struct{}

// New builds a sleep body from the "duration" argument, a Go duration
// string. The sleep ends early if the context is cancelled.
func New(spec registry.Spec) (dag.Body, error) {
	d := DefaultDuration
	if raw, ok := spec.Args["duration"]; ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("duration %q must not be negative", raw)
		}
		d = parsed
	}

	return func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Debug("Sleeping.", "node", spec.ID, "duration", d)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, nil
}

// Register registers the constructor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("sleep", New)
}
