package builder

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/nodeid"
)

const (
	entryPrefix = "START"
	exitPrefix  = "END"
)

// direction of a boundary port, seen from inside the scope.
type direction int

const (
	entry direction = iota
	exit
)

func (d direction) String() string {
	if d == exit {
		return "exit"
	}
	return "entry"
}

func (d direction) prefix() string {
	if d == exit {
		return exitPrefix
	}
	return entryPrefix
}

// boundaryPort is one passthrough node of a scope interface. The parent
// writes an entry port's input and the scope reads its output; exit ports
// work the other way round.
type boundaryPort struct {
	dir  direction
	name string
	node document.Node
}

func (p *boundaryPort) label() string { return nodeid.Join(p.dir.prefix(), p.name) }

// innerSocket is the socket used by links inside the scope.
func (p *boundaryPort) innerSocket() (document.Port, error) {
	if p.dir == entry {
		return singleSocket(p.node, document.Output)
	}
	return singleSocket(p.node, document.Input)
}

// outerSocket is the socket used by links in the parent scope.
func (p *boundaryPort) outerSocket() (document.Port, error) {
	if p.dir == entry {
		return singleSocket(p.node, document.Input)
	}
	return singleSocket(p.node, document.Output)
}

func singleSocket(n document.Node, d document.Direction) (document.Port, error) {
	ports := document.Ports(n, d)
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: passthrough %q has no %s socket", ErrUnknownPort, n.Label(), d)
	}
	return ports[0], nil
}

// boundaryRegistry keeps the boundary ports of a scope in creation order.
type boundaryRegistry struct {
	ports []*boundaryPort
}

func (r *boundaryRegistry) lookup(dir direction, name string) *boundaryPort {
	for _, p := range r.ports {
		if p.dir == dir && p.name == name {
			return p
		}
	}
	return nil
}

func (r *boundaryRegistry) byDirection(dir direction) []*boundaryPort {
	var out []*boundaryPort
	for _, p := range r.ports {
		if p.dir == dir {
			out = append(out, p)
		}
	}
	return out
}

func (r *boundaryRegistry) owns(n document.Node) (*boundaryPort, bool) {
	for _, p := range r.ports {
		if p.node == n {
			return p, true
		}
	}
	return nil, false
}

// parseBoundary recognizes a boundary port node by its metadata, falling back
// to the label prefix.
func parseBoundary(n document.Node) (direction, string, bool) {
	if n.Kind() != document.KindPassthrough {
		return 0, "", false
	}
	prefix, name, ok := nodeid.Split(n.Label())
	if !ok {
		return 0, "", false
	}
	var dir direction
	switch prefix {
	case entryPrefix:
		dir = entry
	case exitPrefix:
		dir = exit
	default:
		return 0, "", false
	}
	if meta, ok := n.Meta(MetaBoundary); ok && meta != dir.String() {
		return 0, "", false
	}
	return dir, name, true
}

// discoverBoundary rebuilds the registry from the passthrough children of the
// scope, so ports created in an earlier session are reused.
func (b *GraphBuilder) discoverBoundary(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	b.boundary = boundaryRegistry{}
	if b.scope == nil {
		return
	}
	for _, child := range b.doc.ListChildren(b.scope) {
		dir, name, ok := parseBoundary(child)
		if !ok {
			continue
		}
		if b.boundary.lookup(dir, name) != nil {
			logger.Warn("Boundary: duplicate port node ignored.", "scope", b.name, "direction", dir, "port", name)
			continue
		}
		b.boundary.ports = append(b.boundary.ports, &boundaryPort{dir: dir, name: name, node: child})
	}
	if len(b.boundary.ports) > 0 {
		logger.Debug("Boundary: discovered existing ports.", "scope", b.name, "count", len(b.boundary.ports))
	}
}

// boundaryPort returns the (dir, name) port, creating it on first use.
func (b *GraphBuilder) boundaryPort(ctx context.Context, dir direction, name string) (*boundaryPort, error) {
	if p := b.boundary.lookup(dir, name); p != nil {
		return p, nil
	}
	logger := ctxlog.FromContext(ctx)

	n, err := b.doc.CreateNode(document.KindPassthrough)
	if err != nil {
		return nil, &ResolutionError{Scope: b.name, Endpoint: dir.prefix(), Port: name, Kind: document.KindPassthrough, Err: err}
	}
	p := &boundaryPort{dir: dir, name: name, node: n}
	n.SetLabel(p.label())
	n.SetMeta(MetaBoundary, dir.String())
	n.SetParent(b.scope)
	size := n.Dimensions()
	n.SetDimensions(document.Vector{X: b.opts.boundaryWidth, Y: size.Y})
	for _, s := range n.Inputs() {
		s.SetName(name)
	}
	for _, s := range n.Outputs() {
		s.SetName(name)
	}

	b.boundary.ports = append(b.boundary.ports, p)
	logger.Debug("Boundary: created port.", "scope", b.name, "direction", dir, "port", name)
	return p, nil
}

// selectBoundary picks a port of dir for a link endpoint. A named ref is
// created on demand only when create is set; nested scopes must already
// expose the port.
func (b *GraphBuilder) selectBoundary(ctx context.Context, dir direction, ref PortRef, create bool) (*boundaryPort, error) {
	if i, ok := ref.Index(); ok {
		ports := b.boundary.byDirection(dir)
		if i < 0 {
			i += len(ports)
		}
		if i < 0 || i >= len(ports) {
			return nil, fmt.Errorf("%w: %s index %s out of %d ports", ErrUnknownPort, dir, ref, len(ports))
		}
		return ports[i], nil
	}
	if create {
		return b.boundaryPort(ctx, dir, ref.Name())
	}
	if ref.IsDefault() {
		ports := b.boundary.byDirection(dir)
		if len(ports) == 0 {
			return nil, ErrNoBoundaryPort
		}
		return ports[0], nil
	}
	if p := b.boundary.lookup(dir, ref.Name()); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: no %s port named %q", ErrUnknownPort, dir, ref.Name())
}
