package dag

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Creator turns a name into a new node.
type Creator interface {
	Create(name string) (Node, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(name string) (Node, error)

func (f CreatorFunc) Create(name string) (Node, error) { return f(name) }

// Factory memoizes a Creator: every name maps to a single node instance.
// Concurrent first lookups of the same name call the Creator once.
type Factory struct {
	creator Creator

	mu    sync.RWMutex
	nodes map[string]Node
	group singleflight.Group
}

// NewFactory wraps creator.
func NewFactory(creator Creator) *Factory {
	return &Factory{
		creator: creator,
		nodes:   make(map[string]Node),
	}
}

// Get returns the node for name, creating it on first use. It fails with
// ErrUnknownNode when the creator produces nothing.
func (f *Factory) Get(name string) (Node, error) {
	if n, ok := f.cached(name); ok {
		return n, nil
	}

	v, err, _ := f.group.Do(name, func() (any, error) {
		if n, ok := f.cached(name); ok {
			return n, nil
		}
		if f.creator == nil {
			return nil, fmt.Errorf("node %q: %w", name, ErrNoFactory)
		}
		n, err := f.creator.Create(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create node %q: %w", name, err)
		}
		if n == nil {
			return nil, fmt.Errorf("node %q: %w", name, ErrUnknownNode)
		}
		f.mu.Lock()
		f.nodes[name] = n
		f.mu.Unlock()
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Node), nil
}

func (f *Factory) cached(name string) (Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.nodes[name]
	return n, ok
}
