package builder

import (
	"context"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
)

// deriveEdges reads the links the scope owns back into declarations. It is
// how adjustable scopes keep hand-made wiring: whatever is in the document is
// what gets recreated. Links that cannot be expressed, such as links into a
// nested scope whose builder is unknown, are dropped.
func (b *GraphBuilder) deriveEdges(ctx context.Context) []EdgeDeclaration {
	logger := ctxlog.FromContext(ctx)
	_, known := b.identities(ctx)

	var out []EdgeDeclaration
	dropped := 0
	for _, l := range b.doc.Links() {
		if !b.ownsLink(l, known) {
			continue
		}
		src, srcRef, okSrc := b.endpointFor(l.From(), document.Output, known)
		dst, dstRef, okDst := b.endpointFor(l.To(), document.Input, known)
		if !okSrc || !okDst {
			logger.Debug("Links: live link cannot be expressed as a declaration, dropped.",
				"scope", b.name, "from", l.From().Node().Label(), "to", l.To().Node().Label())
			dropped++
			continue
		}
		out = append(out, EdgeDeclaration{
			Source:     src,
			Target:     dst,
			SourcePort: srcRef,
			TargetPort: dstRef,
			gen:        b.gen,
		})
	}
	logger.Debug("Links: derived declarations from live links.", "scope", b.name, "count", len(out), "dropped", dropped)
	return out
}

// endpointFor maps a live socket back to an endpoint and port reference.
func (b *GraphBuilder) endpointFor(p document.Port, side document.Direction, known map[string]document.Node) (Endpoint, PortRef, bool) {
	n := p.Node()
	if n.Parent() == b.scope {
		if bp, ok := b.boundary.owns(n); ok {
			switch {
			case bp.dir == entry && side == document.Output:
				return Start, Port(bp.name), true
			case bp.dir == exit && side == document.Input:
				return End, Port(bp.name), true
			}
			return nil, PortRef{}, false
		}
		if known[n.Label()] != n {
			return nil, PortRef{}, false
		}
		if n.Kind() == document.KindPassthrough {
			return NodeID(n.Label()), PortRef{}, true
		}
		return NodeID(n.Label()), PortIndex(p.Index()), true
	}

	for _, nb := range b.nested {
		if nb.scope == nil || n.Parent() != nb.scope {
			continue
		}
		bp, ok := nb.boundary.owns(n)
		if !ok {
			return nil, PortRef{}, false
		}
		switch {
		case bp.dir == exit && side == document.Output:
			return nb, Port(bp.name), true
		case bp.dir == entry && side == document.Input:
			return nb, Port(bp.name), true
		}
		return nil, PortRef{}, false
	}
	return nil, PortRef{}, false
}

// mergeEdges adds the forced declarations of generation gen to the derived
// ones, skipping exact repeats.
func (b *GraphBuilder) mergeEdges(derived []EdgeDeclaration, gen int) []EdgeDeclaration {
	out := derived
	for _, e := range b.edges {
		if !e.Force || e.gen != gen {
			continue
		}
		dup := false
		for _, d := range out {
			if d.Source == e.Source && d.Target == e.Target && d.SourcePort == e.SourcePort && d.TargetPort == e.TargetPort {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}
