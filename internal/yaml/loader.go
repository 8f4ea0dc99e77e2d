// Package yaml loads graph descriptors written in YAML into the
// format-agnostic config model.
//
//	graphs:
//	  - name: boot
//	    scope: primary
//	    nodes:
//	      - id: config
//	        uses: print
//	        args: {message: loading config}
//	      - id: network
//	        uses: sleep
//	        depends_on: config
//	        thread: serial
//	        priority: 5
package yaml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/vk/startgrid/internal/fsutil"
	"gopkg.in/yaml.v3"
)

type fileRoot struct {
	Graphs []graphDoc `yaml:"graphs"`
}

type graphDoc struct {
	Name    string    `yaml:"name"`
	Scope   string    `yaml:"scope"`
	Process string    `yaml:"process"`
	Nodes   []nodeDoc `yaml:"nodes"`
}

type nodeDoc struct {
	ID        string            `yaml:"id"`
	Uses      string            `yaml:"uses"`
	DependsOn idList            `yaml:"depends_on"`
	Thread    string            `yaml:"thread"`
	Priority  int               `yaml:"priority"`
	Args      map[string]string `yaml:"args"`
}

// idList accepts a sequence of ids or one comma separated string.
type idList []string

func (l *idList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = config.SplitIDs(value.Value)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		var ids []string
		for _, s := range raw {
			ids = append(ids, config.SplitIDs(s)...)
		}
		*l = ids
		return nil
	default:
		return fmt.Errorf("line %d: depends_on must be a list of ids or a comma separated string", value.Line)
	}
}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML descriptor loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .yaml and .yml file under paths. Files in other formats
// are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		graphs, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		model.Graphs = append(model.Graphs, graphs...)
	}

	logger.Debug("YAML loading complete.", "files", len(files), "graphs", len(model.Graphs))
	return model, nil
}

func (l *Loader) loadFile(file string) ([]*config.Graph, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open YAML file %s: %w", file, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var root fileRoot
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
	}

	graphs := make([]*config.Graph, 0, len(root.Graphs))
	for _, g := range root.Graphs {
		graph := &config.Graph{
			Name:    g.Name,
			Scope:   g.Scope,
			Process: g.Process,
			Source:  file,
		}
		for _, n := range g.Nodes {
			graph.Nodes = append(graph.Nodes, &config.Node{
				ID:        n.ID,
				Uses:      n.Uses,
				DependsOn: []string(n.DependsOn),
				Thread:    n.Thread,
				Priority:  n.Priority,
				Args:      n.Args,
			})
		}
		graphs = append(graphs, graph)
	}
	return graphs, nil
}
