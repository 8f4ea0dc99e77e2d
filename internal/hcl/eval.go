package hcl

import (
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Process is what descriptors can see of the current process.
type Process struct {
	Name    string
	Primary bool
}

// envFunc returns the value of an environment variable, or an empty string.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func newEvalContext(p Process) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"process": cty.ObjectVal(map[string]cty.Value{
				"name":    cty.StringVal(p.Name),
				"primary": cty.BoolVal(p.Primary),
			}),
		},
		Functions: map[string]function.Function{
			"env":    envFunc,
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
		},
	}
}
