package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/startgrid/internal/config"
	"github.com/vk/startgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. Omitted optional attributes decode to zero-width placeholder
// expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// translateGraph converts a graph block into the agnostic model.
func translateGraph(ctx context.Context, g *graphBlock, file string, evalCtx *hcl.EvalContext) (*config.Graph, error) {
	out := &config.Graph{
		Name:   g.Name,
		Source: file,
	}
	if g.Scope != nil {
		out.Scope = *g.Scope
	}
	if g.Process != nil {
		out.Process = *g.Process
	}
	for _, n := range g.Nodes {
		node, err := translateNode(ctx, n, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: graph %q: node %q: %w", file, g.Name, n.ID, err)
		}
		out.Nodes = append(out.Nodes, node)
	}
	return out, nil
}

func translateNode(ctx context.Context, n *nodeBlock, evalCtx *hcl.EvalContext) (*config.Node, error) {
	out := &config.Node{
		ID:       n.ID,
		Uses:     n.Uses,
		Thread:   n.Thread,
		Priority: n.Priority,
	}

	if isExprDefined(ctx, n.DependsOn, "depends_on") {
		ids, err := decodeIDs(n.DependsOn, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("depends_on: %w", err)
		}
		out.DependsOn = ids
	}
	if isExprDefined(ctx, n.Args, "args") {
		args, err := decodeArgs(n.Args, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("args: %w", err)
		}
		out.Args = args
	}
	return out, nil
}

// decodeIDs accepts either a list of strings or one comma separated string.
func decodeIDs(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	if val.Type() == cty.String {
		return config.SplitIDs(val.AsString()), nil
	}

	listVal, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("expected a list of ids or a comma separated string, got %s", val.Type().FriendlyName())
	}
	var raw []string
	if err := gocty.FromCtyValue(listVal, &raw); err != nil {
		return nil, err
	}
	var ids []string
	for _, s := range raw {
		ids = append(ids, config.SplitIDs(s)...)
	}
	return ids, nil
}

// decodeArgs converts an object or map of primitives into string values.
func decodeArgs(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	mapVal, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to a map of strings: %w", val.Type().FriendlyName(), err)
	}
	args := make(map[string]string)
	if err := gocty.FromCtyValue(mapVal, &args); err != nil {
		return nil, err
	}
	return args, nil
}
