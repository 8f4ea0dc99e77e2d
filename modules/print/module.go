// Package print provides the "print" node: it writes its arguments to the
// application's output.
package print

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// New builds a print body. The "message" argument is printed on its own
// line; every other argument follows as a sorted key = value line.
func New(spec registry.Spec) (dag.Body, error) {
	return func(ctx context.Context) error {
		ctxlog.FromContext(ctx).Info("Printing input.", "node", spec.ID)

		if msg, ok := spec.Args["message"]; ok {
			if _, err := fmt.Fprintf(spec.Out, "[%s] %s\n", spec.ID, msg); err != nil {
				return err
			}
		}
		for _, k := range slices.Sorted(maps.Keys(spec.Args)) {
			if k == "message" {
				continue
			}
			if _, err := fmt.Fprintf(spec.Out, "      %s = %q\n", k, spec.Args[k]); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// Register registers the constructor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("print", New)
}
