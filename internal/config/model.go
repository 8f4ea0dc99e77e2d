package config

import (
	"errors"
	"fmt"
	"strings"
)

// Scope strings accepted on a graph declaration.
const (
	ScopeAll       = "all"
	ScopePrimary   = "primary"
	ScopeSecondary = "secondary"
)

var (
	// ErrMissingField is returned when a required descriptor field is empty.
	ErrMissingField = errors.New("missing required field")
	// ErrDuplicateID is returned when two nodes of one graph share an id.
	ErrDuplicateID = errors.New("duplicate node id")
	// ErrUnknownPredecessor is returned when depends_on names an id that is
	// not declared in the same graph.
	ErrUnknownPredecessor = errors.New("unknown predecessor id")
	// ErrInvalidScope is returned for a scope other than all, primary or
	// secondary.
	ErrInvalidScope = errors.New("invalid scope")
)

// Model is every graph declared across the loaded descriptor files.
type Model struct {
	Graphs []*Graph
}

// Graph is the format-agnostic representation of a `graph` declaration.
type Graph struct {
	Name string
	// Scope is one of ScopeAll, ScopePrimary or ScopeSecondary. Empty means
	// ScopeAll.
	Scope string
	// Process, when set, binds the graph to one process by name and takes
	// precedence over Scope.
	Process string
	Nodes   []*Node
	// Source is the file the graph was declared in.
	Source string
}

// Node is the format-agnostic representation of a `node` declaration.
type Node struct {
	ID string
	// Uses names the registered constructor that produces the node.
	Uses      string
	DependsOn []string
	// Thread is the affinity hint: "pool" (default) or "serial".
	Thread   string
	Priority int
	Args     map[string]string
}

// EffectiveScope returns the graph's scope with the default applied.
func (g *Graph) EffectiveScope() string {
	if g.Scope == "" {
		return ScopeAll
	}
	return g.Scope
}

// Validate checks required fields, id uniqueness and predecessor
// references. It does not look for cycles.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("graph in %s: name: %w", g.sourceOrUnknown(), ErrMissingField)
	}
	switch g.EffectiveScope() {
	case ScopeAll, ScopePrimary, ScopeSecondary:
	default:
		return fmt.Errorf("graph %q: %q: %w", g.Name, g.Scope, ErrInvalidScope)
	}

	ids := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("graph %q: node #%d: id: %w", g.Name, i, ErrMissingField)
		}
		if n.Uses == "" {
			return fmt.Errorf("graph %q: node %q: uses: %w", g.Name, n.ID, ErrMissingField)
		}
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("graph %q: node %q: %w", g.Name, n.ID, ErrDuplicateID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, n := range g.Nodes {
		for _, dep := range n.DependsOn {
			if _, ok := ids[dep]; !ok {
				return fmt.Errorf("graph %q: node %q depends on %q: %w", g.Name, n.ID, dep, ErrUnknownPredecessor)
			}
		}
	}
	return nil
}

func (g *Graph) sourceOrUnknown() string {
	if g.Source == "" {
		return "<unknown>"
	}
	return g.Source
}

// Validate validates every graph and rejects duplicate graph names.
func (m *Model) Validate() error {
	names := make(map[string]string, len(m.Graphs))
	for _, g := range m.Graphs {
		if err := g.Validate(); err != nil {
			return err
		}
		if prev, dup := names[g.Name]; dup {
			return fmt.Errorf("graph %q declared in %s and %s: %w", g.Name, prev, g.sourceOrUnknown(), ErrDuplicateID)
		}
		names[g.Name] = g.sourceOrUnknown()
	}
	return nil
}

// Merge appends the graphs of other to m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Graphs = append(m.Graphs, other.Graphs...)
}

// SplitIDs parses a comma separated id list. Whitespace is dropped and
// empty entries are skipped.
func SplitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.Join(strings.Fields(part), ""); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
