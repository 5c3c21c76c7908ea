package builder

import (
	"strconv"
)

// DefaultPort is the port name that means "no port given".
const DefaultPort = "Default"

// Endpoint is one side of a link declaration: a NodeID, a Sentinel or a
// nested *GraphBuilder.
type Endpoint interface {
	endpoint() string
}

// NodeID refers to a node declared (or hydrated) in the same scope.
type NodeID string

func (id NodeID) endpoint() string { return string(id) }

// Sentinel refers to the scope's own boundary.
type Sentinel int

const (
	// Start is the scope's entry side. It can only be a link source.
	Start Sentinel = iota + 1
	// End is the scope's exit side. It can only be a link target.
	End
)

func (s Sentinel) endpoint() string { return s.String() }

func (s Sentinel) String() string {
	switch s {
	case Start:
		return entryPrefix
	case End:
		return exitPrefix
	default:
		return "Sentinel(" + strconv.Itoa(int(s)) + ")"
	}
}

func (b *GraphBuilder) endpoint() string { return "scope " + b.name }

func endpointName(e Endpoint) string {
	if e == nil {
		return "<nil>"
	}
	return e.endpoint()
}

// PortRef selects a socket on an endpoint. The zero value selects the default
// socket.
type PortRef struct {
	name     string
	index    int
	hasIndex bool
}

// Port selects a socket by exact name.
func Port(name string) PortRef { return PortRef{name: name} }

// PortIndex selects a socket by position. Negative values count from the end.
func PortIndex(i int) PortRef { return PortRef{index: i, hasIndex: true} }

// IsDefault reports whether the ref selects the default socket.
func (p PortRef) IsDefault() bool {
	return !p.hasIndex && (p.name == "" || p.name == DefaultPort)
}

// Name returns the port name, or DefaultPort for the default ref.
func (p PortRef) Name() string {
	if p.name == "" {
		return DefaultPort
	}
	return p.name
}

// Index returns the positional index and whether the ref is positional.
func (p PortRef) Index() (int, bool) { return p.index, p.hasIndex }

func (p PortRef) String() string {
	if p.hasIndex {
		return "[" + strconv.Itoa(p.index) + "]"
	}
	return strconv.Quote(p.Name())
}
