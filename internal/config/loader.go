package config

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoLoader is returned when no loader accepts a path.
var ErrNoLoader = errors.New("no loader for file")

// Loader is the interface for a format-specific descriptor loader.
type Loader interface {
	// Load reads descriptors from the given files or directories and
	// translates them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Loaders runs several loaders over the same paths and merges their models.
// Each loader is expected to skip files that are not in its format.
type Loaders []Loader

// Load implements Loader. The merged model is validated as a whole.
func (ls Loaders) Load(ctx context.Context, paths ...string) (*Model, error) {
	if len(ls) == 0 {
		return nil, ErrNoLoader
	}
	model := &Model{}
	for _, l := range ls {
		m, err := l.Load(ctx, paths...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph descriptors: %w", err)
	}
	return model, nil
}
