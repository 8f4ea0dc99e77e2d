package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all top-level blocks of a file.
type fileRoot struct {
	Graphs []*graphBlock `hcl:"graph,block"`
	Remain hcl.Body      `hcl:",remain"`
}

type graphBlock struct {
	Name    string       `hcl:"name,label"`
	Scope   *string      `hcl:"scope,optional"`
	Process *string      `hcl:"process,optional"`
	Nodes   []*nodeBlock `hcl:"node,block"`
}

type nodeBlock struct {
	ID       string `hcl:"id,label"`
	Uses     string `hcl:"uses"`
	Thread   string `hcl:"thread,optional"`
	Priority int    `hcl:"priority,optional"`
	// DependsOn accepts a list of ids or a comma separated string.
	DependsOn hcl.Expression `hcl:"depends_on,optional"`
	Args      hcl.Expression `hcl:"args,optional"`
}
