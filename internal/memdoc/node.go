package memdoc

import (
	"fmt"
	"strconv"

	"github.com/vk/framegraph/internal/document"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

type node struct {
	doc    *Document
	id     int
	kind   string
	schema Schema

	label  string
	meta   map[string]string
	parent *node
	pos    document.Vector
	size   document.Vector
	props  map[string]cty.Value

	inputs  []*port
	outputs []*port

	removed bool
}

var _ document.Node = (*node)(nil)

func newNode(d *Document, id int, s Schema) *node {
	n := &node{
		doc:    d,
		id:     id,
		kind:   s.Kind,
		schema: s,
		meta:   make(map[string]string),
		size:   document.Vector{X: s.Width, Y: s.Height},
		props:  make(map[string]cty.Value, len(s.Properties)),
	}
	for _, p := range s.Properties {
		n.props[p.Name] = p.Default
	}
	for i, spec := range s.Inputs {
		n.inputs = append(n.inputs, newPort(n, document.Input, i, spec))
	}
	for i, spec := range s.Outputs {
		n.outputs = append(n.outputs, newPort(n, document.Output, i, spec))
	}
	return n
}

func (n *node) Kind() string { return n.kind }

func (n *node) Label() string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.label
}

func (n *node) SetLabel(label string) {
	n.doc.mu.Lock()
	old := n.label
	n.label = label
	n.doc.mu.Unlock()

	if n.kind == document.KindFrame {
		n.doc.scopes.Remove(old)
		n.doc.scopes.Remove(label)
	}
}

func (n *node) Meta(key string) (string, bool) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	v, ok := n.meta[key]
	return v, ok
}

func (n *node) SetMeta(key, value string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.meta[key] = value
}

func (n *node) Parent() document.Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) SetParent(parent document.Node) {
	var p *node
	if parent != nil {
		var err error
		if p, err = asNode(parent); err != nil {
			return
		}
	}
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.parent = p
}

func (n *node) Position() document.Vector {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.pos
}

func (n *node) SetPosition(pos document.Vector) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.pos = pos
}

func (n *node) Dimensions() document.Vector {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.size
}

func (n *node) SetDimensions(size document.Vector) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.size = size
}

func (n *node) Property(name string) (cty.Value, error) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	v, ok := n.props[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %s has no property %q", document.ErrUnknownProperty, n.kind, name)
	}
	return v, nil
}

func (n *node) SetProperty(name string, value cty.Value) error {
	spec, ok := n.schema.property(name)
	if !ok {
		return fmt.Errorf("%w: %s has no property %q", document.ErrUnknownProperty, n.kind, name)
	}
	if spec.ReadOnly {
		return fmt.Errorf("memdoc: property %q of %s is read-only", name, n.kind)
	}
	converted, err := conform(value, spec.Default)
	if err != nil {
		return fmt.Errorf("memdoc: property %q of %s: %w", name, n.kind, err)
	}

	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.props[name] = converted
	return nil
}

func (n *node) MutableProperties() []string {
	var out []string
	for _, p := range n.schema.Properties {
		if !p.ReadOnly {
			out = append(out, p.Name)
		}
	}
	return out
}

func (n *node) Inputs() []document.Port {
	return portHandles(n.inputs)
}

func (n *node) Outputs() []document.Port {
	return portHandles(n.outputs)
}

func (n *node) describe() string {
	if n.label != "" {
		return n.label
	}
	return n.kind + "#" + strconv.Itoa(n.id)
}

func portHandles(ports []*port) []document.Port {
	out := make([]document.Port, len(ports))
	for i, p := range ports {
		out[i] = p
	}
	return out
}

type port struct {
	node     *node
	dir      document.Direction
	index    int
	name     string
	enabled  bool
	hasValue bool
	value    cty.Value
}

var _ document.Port = (*port)(nil)

func newPort(n *node, dir document.Direction, index int, spec SocketSpec) *port {
	return &port{
		node:     n,
		dir:      dir,
		index:    index,
		name:     spec.Name,
		enabled:  !spec.Disabled,
		hasValue: !spec.Default.IsNull(),
		value:    spec.Default,
	}
}

func (p *port) Node() document.Node { return p.node }

func (p *port) Name() string {
	p.node.doc.mu.RLock()
	defer p.node.doc.mu.RUnlock()
	return p.name
}

func (p *port) SetName(name string) {
	p.node.doc.mu.Lock()
	defer p.node.doc.mu.Unlock()
	p.name = name
}

func (p *port) Direction() document.Direction { return p.dir }

func (p *port) Index() int { return p.index }

func (p *port) Enabled() bool { return p.enabled }

func (p *port) HasDefault() bool { return p.hasValue }

func (p *port) Default() (cty.Value, error) {
	if !p.hasValue {
		return cty.NilVal, fmt.Errorf("%w: %s", document.ErrNoDefault, p.describe())
	}
	p.node.doc.mu.RLock()
	defer p.node.doc.mu.RUnlock()
	return p.value, nil
}

func (p *port) SetDefault(value cty.Value) error {
	if !p.hasValue {
		return fmt.Errorf("%w: %s", document.ErrNoDefault, p.describe())
	}
	converted, err := conform(value, p.value)
	if err != nil {
		return fmt.Errorf("memdoc: default of %s: %w", p.describe(), err)
	}
	p.node.doc.mu.Lock()
	defer p.node.doc.mu.Unlock()
	p.value = converted
	return nil
}

func (p *port) describe() string {
	return fmt.Sprintf("%s:%s[%d]", p.node.describe(), p.dir, p.index)
}

type link struct {
	from    *port
	to      *port
	removed bool
}

var _ document.Link = (*link)(nil)

func (l *link) From() document.Port { return l.from }
func (l *link) To() document.Port   { return l.to }

func (l *link) describe() string {
	return fmt.Sprintf("%s:%s->%s:%s", l.from.node.describe(), l.from.name, l.to.node.describe(), l.to.name)
}

// conform converts value to the type of the reference value, so that a tuple
// written in HCL can land in a list-typed property.
func conform(value, reference cty.Value) (cty.Value, error) {
	want := reference.Type()
	if want == cty.NilType || want == cty.DynamicPseudoType || value.Type().Equals(want) {
		return value, nil
	}
	return convert.Convert(value, want)
}
