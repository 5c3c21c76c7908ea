package builder

import (
	"maps"

	"github.com/zclconf/go-cty/cty"
)

// Persisted metadata keys.
const (
	MetaScopeID  = "framegraph.scope_id"
	MetaCompiled = "framegraph.compiled"
	MetaBoundary = "framegraph.boundary"
)

// NodeDeclaration is the intent for one node of the scope.
type NodeDeclaration struct {
	ID   string
	Kind string
	// Properties, InputDefaults and OutputDefaults are written on every
	// compile. Socket keys are names, or decimal indices for positional access.
	Properties     map[string]cty.Value
	InputDefaults  map[string]cty.Value
	OutputDefaults map[string]cty.Value
	// ForceProperties and ForceDefaults stop captured user state from being
	// restored over the declared values.
	ForceProperties bool
	ForceDefaults   bool
}

func (d NodeDeclaration) clone() NodeDeclaration {
	d.Properties = maps.Clone(d.Properties)
	d.InputDefaults = maps.Clone(d.InputDefaults)
	d.OutputDefaults = maps.Clone(d.OutputDefaults)
	return d
}

// EdgeDeclaration is the intent for one link.
type EdgeDeclaration struct {
	Source     Endpoint
	Target     Endpoint
	SourcePort PortRef
	TargetPort PortRef
	Force      bool

	gen int
}

func (e EdgeDeclaration) touches(ep Endpoint) bool {
	return e.Source == ep || e.Target == ep
}
