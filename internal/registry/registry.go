package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/dag"
)

// ErrUnknownConstructor is returned when a descriptor uses a name nothing
// registered.
var ErrUnknownConstructor = errors.New("no constructor registered")

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Spec is what a constructor knows about the node it builds.
type Spec struct {
	ID       string
	Affinity dag.Affinity
	Args     map[string]string
	// Out is where user-facing output goes.
	Out io.Writer
}

// Arg returns the named argument or def when it is absent.
func (s Spec) Arg(name, def string) string {
	if v, ok := s.Args[name]; ok {
		return v
	}
	return def
}

// Constructor builds the body of one node.
type Constructor func(spec Spec) (dag.Body, error)

// Registry holds the constructors of a single application instance.
type Registry struct {
	out io.Writer

	mu           sync.RWMutex
	constructors map[string]Constructor
}

// New creates an empty registry. Constructors receive out in their Spec.
func New(out io.Writer) *Registry {
	if out == nil {
		out = io.Discard
	}
	return &Registry{
		out:          out,
		constructors: make(map[string]Constructor),
	}
}

// Register adds a constructor under name. Registering a name twice is a
// programming error and panics.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.constructors[name]; exists {
		panic(fmt.Sprintf("constructor with name '%s' already registered", name))
	}
	r.constructors[name] = c
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.constructors))
}

func (r *Registry) lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[name]
	return c, ok
}

// Resolve builds the node declared by decl. It implements dag.Resolver.
func (r *Registry) Resolve(ctx context.Context, decl *config.Node) (dag.Node, error) {
	c, ok := r.lookup(decl.Uses)
	if !ok {
		return nil, fmt.Errorf("%q: %w", decl.Uses, ErrUnknownConstructor)
	}
	affinity, ok := dag.ParseAffinity(decl.Thread)
	if !ok {
		return nil, fmt.Errorf("unknown thread %q, expected pool or serial", decl.Thread)
	}

	body, err := c(Spec{ID: decl.ID, Affinity: affinity, Args: decl.Args, Out: r.out})
	if err != nil {
		return nil, fmt.Errorf("constructor %q: %w", decl.Uses, err)
	}
	ctxlog.FromContext(ctx).Debug("Node constructed.", "node", decl.ID, "uses", decl.Uses, "affinity", affinity)
	return dag.NewTask(decl.ID, body, dag.WithAffinity(affinity), dag.WithPriority(decl.Priority)), nil
}

// Creator exposes the registry to a dag.Factory: a node created by name
// runs the constructor of that name with no arguments.
func (r *Registry) Creator() dag.Creator {
	return dag.CreatorFunc(func(name string) (dag.Node, error) {
		c, ok := r.lookup(name)
		if !ok {
			return nil, nil
		}
		body, err := c(Spec{ID: name, Out: r.out})
		if err != nil {
			return nil, err
		}
		return dag.NewTask(name, body), nil
	})
}
