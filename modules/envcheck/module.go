// Package envcheck provides the "envcheck" node, which fails when required
// environment variables are missing.
package envcheck

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
	"github.com/vk/startgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// New builds a body that checks the comma separated "require" argument.
func New(spec registry.Spec) (dag.Body, error) {
	required := config.SplitIDs(spec.Arg("require", ""))
	return func(ctx context.Context) error {
		var missing []string
		for _, name := range required {
			if _, ok := os.LookupEnv(name); !ok {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
		}
		ctxlog.FromContext(ctx).Debug("Environment check passed.", "node", spec.ID, "count", len(required))
		return nil
	}, nil
}

// Register registers the constructor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("envcheck", New)
}
