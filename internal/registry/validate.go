package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
)

// Validate checks that every node of every declared graph uses a registered
// constructor and a known thread hint. All problems are reported at once.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	for _, g := range model.Graphs {
		for _, n := range g.Nodes {
			if _, ok := r.lookup(n.Uses); !ok {
				errs = append(errs, fmt.Sprintf("graph '%s', node '%s': uses '%s' which is not registered", g.Name, n.ID, n.Uses))
			}
			if _, ok := dag.ParseAffinity(n.Thread); !ok {
				errs = append(errs, fmt.Sprintf("graph '%s', node '%s': unknown thread '%s'", g.Name, n.ID, n.Thread))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: registry validation failed:\n- %s", ErrUnknownConstructor, strings.Join(errs, "\n- "))
	}
	logger.Debug("Registry validated against descriptors.", "graphs", len(model.Graphs), "constructors", len(r.Names()))
	return nil
}
