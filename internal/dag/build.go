package dag

import (
	"context"
	"fmt"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
)

// Resolver produces the node for one descriptor entry. Affinity is applied
// by the resolver since it is fixed at construction.
type Resolver interface {
	Resolve(ctx context.Context, decl *config.Node) (Node, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, decl *config.Node) (Node, error)

func (f ResolverFunc) Resolve(ctx context.Context, decl *config.Node) (Node, error) {
	return f(ctx, decl)
}

// Build assembles the declared graph with b. Nodes are added so that every
// predecessor precedes its dependents; among ready nodes the declaration
// order is kept.
func Build(ctx context.Context, decl *config.Graph, r Resolver, b *Builder) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	if err := decl.Validate(); err != nil {
		return nil, err
	}
	order, err := topoOrder(decl)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]Node, len(decl.Nodes))
	for _, n := range decl.Nodes {
		node, err := r.Resolve(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("graph %q: node %q: %w", decl.Name, n.ID, err)
		}
		if node == nil {
			return nil, fmt.Errorf("graph %q: node %q uses %q: %w", decl.Name, n.ID, n.Uses, ErrUnknownNode)
		}
		node.SetPriority(n.Priority)
		nodes[n.ID] = node
	}

	b.Named(decl.Name)
	for _, n := range order {
		preds := make([]Node, len(n.DependsOn))
		for i, dep := range n.DependsOn {
			preds[i] = nodes[dep]
		}
		b.Add(nodes[n.ID]).After(preds...)
	}
	g, err := b.Create()
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", decl.Name, err)
	}
	logger.Debug("Graph assembled from descriptor.", "graph", decl.Name, "nodes", len(decl.Nodes), "source", decl.Source)
	return g, nil
}

// topoOrder sorts the declared nodes with Kahn's algorithm, always taking
// the earliest declared ready node next.
func topoOrder(decl *config.Graph) ([]*config.Node, error) {
	pending := make(map[string]int, len(decl.Nodes))
	dependents := make(map[string][]string, len(decl.Nodes))
	for _, n := range decl.Nodes {
		seen := make(map[string]struct{}, len(n.DependsOn))
		for _, dep := range n.DependsOn {
			if dep == n.ID {
				return nil, fmt.Errorf("graph %q: node %q: %w", decl.Name, n.ID, ErrSelfDependency)
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			pending[n.ID]++
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	order := make([]*config.Node, 0, len(decl.Nodes))
	done := make(map[string]bool, len(decl.Nodes))
	for len(order) < len(decl.Nodes) {
		var next *config.Node
		for _, n := range decl.Nodes {
			if !done[n.ID] && pending[n.ID] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("graph %q: %w", decl.Name, ErrCycle)
		}
		done[next.ID] = true
		order = append(order, next)
		for _, d := range dependents[next.ID] {
			pending[d]--
		}
	}
	return order, nil
}
