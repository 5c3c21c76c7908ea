package hclgraph

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Root names accepted in link endpoint traversals.
const (
	rootStart = "start"
	rootEnd   = "end"
	rootNode  = "node"
	rootScope = "scope"
)

// endpointRef parses `start`, `end`, `node.<id>` or `scope.<name>`. The name
// may also be given as a string index, e.g. node["a"].
func endpointRef(expr hcl.Expression) (EndpointRef, error) {
	t, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return EndpointRef{}, fmt.Errorf("endpoint must be start, end, node.<id> or scope.<name>: %w", diags)
	}

	switch t.RootName() {
	case rootStart, rootEnd:
		if len(t) != 1 {
			return EndpointRef{}, fmt.Errorf("endpoint %s: %s takes no name", traversalString(t), t.RootName())
		}
		if t.RootName() == rootStart {
			return EndpointRef{Kind: EndpointStart}, nil
		}
		return EndpointRef{Kind: EndpointEnd}, nil
	case rootNode, rootScope:
		if len(t) != 2 {
			return EndpointRef{}, fmt.Errorf("endpoint %s: expected %s.<name>", traversalString(t), t.RootName())
		}
		name, err := stepName(t[1])
		if err != nil {
			return EndpointRef{}, fmt.Errorf("endpoint %s: %w", traversalString(t), err)
		}
		if t.RootName() == rootNode {
			return EndpointRef{Kind: EndpointNode, Name: name}, nil
		}
		return EndpointRef{Kind: EndpointScope, Name: name}, nil
	default:
		return EndpointRef{}, fmt.Errorf("endpoint %s: unknown root %q", traversalString(t), t.RootName())
	}
}

func stepName(step hcl.Traverser) (string, error) {
	switch s := step.(type) {
	case hcl.TraverseAttr:
		return s.Name, nil
	case hcl.TraverseIndex:
		if s.Key.Type() != cty.String || s.Key.IsNull() {
			return "", fmt.Errorf("index must be a string")
		}
		return s.Key.AsString(), nil
	default:
		return "", fmt.Errorf("unsupported traversal step %T", step)
	}
}

// traversalString renders a traversal the way it was written.
func traversalString(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}
