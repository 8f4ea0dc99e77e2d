package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	process Process
}

// NewLoader creates a new HCL descriptor loader. p is exposed to
// expressions as the process variable.
func NewLoader(p Process) *Loader {
	return &Loader{process: p}
}

// Load parses every .hcl file under paths. Files in other formats are
// skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext(l.process)
	model := &config.Model{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, g := range root.Graphs {
			graph, err := translateGraph(ctx, g, file, evalCtx)
			if err != nil {
				return nil, err
			}
			model.Graphs = append(model.Graphs, graph)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "graphs", len(model.Graphs))
	return model, nil
}
