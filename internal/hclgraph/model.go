package hclgraph

import (
	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/memdoc"
	"github.com/zclconf/go-cty/cty"
)

// Model is the format-agnostic result of loading graph files.
type Model struct {
	Kinds  []memdoc.Schema
	Scopes []*Scope
}

// Scope is one declared scope and the scopes nested inside it.
type Scope struct {
	Name       string
	Adjustable bool
	// Color is cty.NilVal when the scope keeps the host default.
	Color  cty.Value
	Nodes  []Node
	Links  []Link
	Scopes []*Scope
}

// Node is one node declaration inside a scope.
type Node struct {
	ID              string
	Kind            string
	Properties      map[string]cty.Value
	Inputs          map[string]cty.Value
	Outputs         map[string]cty.Value
	ForceProperties bool
	ForceDefaults   bool
}

// EndpointKind tells link endpoint forms apart.
type EndpointKind int

const (
	// EndpointNode addresses a node by identifier.
	EndpointNode EndpointKind = iota
	// EndpointStart is the scope entry sentinel.
	EndpointStart
	// EndpointEnd is the scope exit sentinel.
	EndpointEnd
	// EndpointScope addresses a scope nested in the same scope.
	EndpointScope
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointStart:
		return "start"
	case EndpointEnd:
		return "end"
	case EndpointScope:
		return "scope"
	default:
		return "node"
	}
}

// EndpointRef is one side of a link as written in the file.
type EndpointRef struct {
	Kind EndpointKind
	// Name is the node identifier or nested scope name. Empty for sentinels.
	Name string
}

func (e EndpointRef) String() string {
	if e.Name == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + "." + e.Name
}

// Link is one link declaration inside a scope. The zero PortRef selects the
// default socket.
type Link struct {
	From     EndpointRef
	To       EndpointRef
	FromPort builder.PortRef
	ToPort   builder.PortRef
	Force    bool
}

// walk visits s and every scope nested in it, children first.
func (s *Scope) walk(visit func(*Scope) error) error {
	for _, child := range s.Scopes {
		if err := child.walk(visit); err != nil {
			return err
		}
	}
	return visit(s)
}
