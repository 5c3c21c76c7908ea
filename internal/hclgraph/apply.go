package hclgraph

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/memdoc"
	"github.com/vk/framegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Graph holds the builders created from a Model.
type Graph struct {
	top    []*builder.GraphBuilder
	order  []*builder.GraphBuilder // nested scopes before their parents
	byName map[string]*builder.GraphBuilder
}

// Apply registers the model's kinds on doc, creates one builder per scope,
// queues every declaration and compiles the result. opts are given to every
// builder, after the per-scope options taken from the model.
func Apply(ctx context.Context, doc *memdoc.Document, model *Model, opts ...builder.Option) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	for _, k := range model.Kinds {
		if err := doc.RegisterKind(k); err != nil {
			return nil, fmt.Errorf("registering kind %q: %w", k.Kind, err)
		}
	}
	logger.Debug("Apply: kinds registered.", "count", len(model.Kinds))

	g := &Graph{byName: make(map[string]*builder.GraphBuilder)}
	for _, top := range model.Scopes {
		err := top.walk(func(s *Scope) error {
			b, err := g.declare(ctx, doc, s, opts)
			if err != nil {
				return err
			}
			g.order = append(g.order, b)
			return nil
		})
		if err != nil {
			return nil, err
		}
		g.top = append(g.top, g.byName[top.Name])
	}
	logger.Debug("Apply: scopes declared.", "count", len(g.order))

	if err := g.Compile(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

// declare creates the builder for s. Nested scopes must already be declared.
func (g *Graph) declare(ctx context.Context, doc *memdoc.Document, s *Scope, common []builder.Option) (*builder.GraphBuilder, error) {
	var opts []builder.Option
	if s.Adjustable {
		opts = append(opts, builder.Adjustable())
	}
	if s.Color.Type() != cty.NilType {
		opts = append(opts, builder.WithColor(s.Color))
	}
	opts = append(opts, common...)

	b, err := builder.New(ctx, doc, s.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating scope %q: %w", s.Name, err)
	}
	g.byName[s.Name] = b

	for _, n := range s.Nodes {
		nopts := []builder.NodeOption{
			builder.WithProperties(n.Properties),
			builder.WithInputDefaults(n.Inputs),
			builder.WithOutputDefaults(n.Outputs),
		}
		if n.ForceProperties {
			nopts = append(nopts, builder.ForceProperties())
		}
		if n.ForceDefaults {
			nopts = append(nopts, builder.ForceDefaults())
		}
		if err := b.AddNode(n.ID, n.Kind, nopts...); err != nil {
			return nil, err
		}
	}

	for _, l := range s.Links {
		from, err := g.endpoint(l.From)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", s.Name, err)
		}
		to, err := g.endpoint(l.To)
		if err != nil {
			return nil, fmt.Errorf("scope %q: %w", s.Name, err)
		}
		lopts := []builder.LinkOption{withSourcePort(l.FromPort), withTargetPort(l.ToPort)}
		if l.Force {
			lopts = append(lopts, builder.Force())
		}
		if err := b.Link(from, to, lopts...); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (g *Graph) endpoint(ref EndpointRef) (builder.Endpoint, error) {
	switch ref.Kind {
	case EndpointStart:
		return builder.Start, nil
	case EndpointEnd:
		return builder.End, nil
	case EndpointScope:
		nb, ok := g.byName[ref.Name]
		if !ok {
			return nil, fmt.Errorf("%s is not declared", ref)
		}
		return nb, nil
	default:
		return builder.NodeID(ref.Name), nil
	}
}

func withSourcePort(ref builder.PortRef) builder.LinkOption {
	if i, ok := ref.Index(); ok {
		return builder.FromPortIndex(i)
	}
	return builder.FromPort(ref.Name())
}

func withTargetPort(ref builder.PortRef) builder.LinkOption {
	if i, ok := ref.Index(); ok {
		return builder.ToPortIndex(i)
	}
	return builder.ToPort(ref.Name())
}

// Compile compiles every scope, nested scopes first, so that each parent
// lays out compiled children.
func (g *Graph) Compile(ctx context.Context, opts ...builder.CompileOption) error {
	for _, b := range g.order {
		if err := b.Compile(ctx, opts...); err != nil {
			return fmt.Errorf("compiling scope %q: %w", b.Name(), err)
		}
	}
	return nil
}

// Roots returns the builders of top-level scopes in declaration order.
func (g *Graph) Roots() []*builder.GraphBuilder {
	return append([]*builder.GraphBuilder(nil), g.top...)
}

// Scopes returns every builder, nested scopes before their parents.
func (g *Graph) Scopes() []*builder.GraphBuilder {
	return append([]*builder.GraphBuilder(nil), g.order...)
}

// Scope looks up a builder by scope name.
func (g *Graph) Scope(name string) (*builder.GraphBuilder, bool) {
	b, ok := g.byName[name]
	return b, ok
}

// Find resolves a qualified address such as main.inner.N: the scope chain
// from a top-level scope down, then a node identifier. A trailing index
// selects one of the node's output sockets.
func (g *Graph) Find(address string) (document.Node, document.Port, error) {
	addr, err := nodeid.Parse(address)
	if err != nil {
		return nil, nil, err
	}
	if len(addr.Path) < 2 {
		return nil, nil, fmt.Errorf("address %q must name a scope and a node", address)
	}

	var scope *builder.GraphBuilder
	for i, seg := range addr.Path[:len(addr.Path)-1] {
		if seg.HasIndex() {
			return nil, nil, fmt.Errorf("address %q: scope segment %q cannot carry an index", address, seg.Name)
		}
		b, ok := g.byName[seg.Name]
		if !ok {
			return nil, nil, fmt.Errorf("address %q: unknown scope %q", address, seg.Name)
		}
		if !b.ScopeAddress().Equal(&nodeid.Address{Path: addr.Path[:i+1]}) {
			return nil, nil, fmt.Errorf("address %q: scope %q is not at this position", address, seg.Name)
		}
		scope = b
	}

	leaf := addr.Path[len(addr.Path)-1]
	n, ok := scope.Node(leaf.Name)
	if !ok {
		return nil, nil, fmt.Errorf("address %q: no node %q in scope %q", address, leaf.Name, scope.Name())
	}
	if !leaf.HasIndex() {
		return n, nil, nil
	}
	outputs := n.Outputs()
	i := leaf.Index
	if i < 0 {
		i += len(outputs)
	}
	if i < 0 || i >= len(outputs) {
		return nil, nil, fmt.Errorf("address %q: output index %d out of %d sockets", address, leaf.Index, len(outputs))
	}
	return n, outputs[i], nil
}
