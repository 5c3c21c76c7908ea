package document

import (
	"errors"

	"github.com/zclconf/go-cty/cty"
)

// Built-in node kinds every host must support.
const (
	// KindFrame is the container kind used for scopes.
	KindFrame = "Frame"
	// KindPassthrough is a node with exactly one input and one output socket,
	// used for scope boundary ports.
	KindPassthrough = "Reroute"
)

var (
	// ErrUnknownProperty is returned when a node kind does not expose a property.
	ErrUnknownProperty = errors.New("unknown property")
	// ErrNoDefault is returned when a port does not carry a default value.
	ErrNoDefault = errors.New("port has no default value")
	// ErrStaleHandle is returned when a handle refers to a removed node or link.
	ErrStaleHandle = errors.New("stale handle")
)

// Vector is a 2D position or size.
type Vector struct {
	X float64
	Y float64
}

// Add returns v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

// Direction tells inputs and outputs apart.
type Direction int

const (
	// Input sockets receive links.
	Input Direction = iota
	// Output sockets originate links.
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Document is the host-owned, mutable graph storage.
type Document interface {
	// CreateNode creates a node of the given kind at the document root.
	CreateNode(kind string) (Node, error)
	// RemoveNode deletes a node together with every link attached to it.
	RemoveNode(n Node) error
	// CreateLink connects an output socket to an input socket.
	CreateLink(from, to Port) (Link, error)
	// RemoveLink deletes a single link.
	RemoveLink(l Link) error
	// Links lists every link in the document in creation order.
	Links() []Link
	// ListChildren lists the nodes directly parented to scope, in creation
	// order. A nil scope lists the root level.
	ListChildren(scope Node) []Node
	// FindScope returns the frame carrying the given label.
	FindScope(label string) (Node, bool)
}

// Node is a handle to one live node.
type Node interface {
	// Kind is the immutable kind tag chosen at creation.
	Kind() string
	// Label is the persisted string tag used as identity.
	Label() string
	SetLabel(label string)
	// Meta reads persisted opaque metadata attached to the node.
	Meta(key string) (string, bool)
	SetMeta(key, value string)

	Parent() Node
	SetParent(parent Node)

	Position() Vector
	SetPosition(pos Vector)
	// Dimensions is the node's width (X) and height (Y).
	Dimensions() Vector
	SetDimensions(size Vector)

	Property(name string) (cty.Value, error)
	SetProperty(name string, value cty.Value) error
	// MutableProperties lists, in schema order, every externally mutable,
	// non-identity property of this node's kind.
	MutableProperties() []string

	Inputs() []Port
	Outputs() []Port
}

// Port is a handle to one input or output socket of a node.
type Port interface {
	Node() Node
	Name() string
	SetName(name string)
	Direction() Direction
	// Index is the socket's position among the node's sockets of the same direction.
	Index() int
	Enabled() bool
	HasDefault() bool
	Default() (cty.Value, error)
	SetDefault(value cty.Value) error
}

// Link is a handle to one edge between an output socket and an input socket.
type Link interface {
	From() Port
	To() Port
}

// Ports returns the sockets of n in direction d.
func Ports(n Node, d Direction) []Port {
	if d == Output {
		return n.Outputs()
	}
	return n.Inputs()
}
