package builder

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/layout"
)

// ownsSide reports whether the given side of a link belongs to this scope.
// Boundary ports are shared with the parent: only their inner socket counts.
func (b *GraphBuilder) ownsSide(n document.Node, side document.Direction) bool {
	if n.Parent() != b.scope {
		return false
	}
	p, ok := b.boundary.owns(n)
	if !ok {
		return true
	}
	if p.dir == entry {
		return side == document.Output
	}
	return side == document.Input
}

// ownsLink reports whether l was made by this scope. On adjustable scopes
// links touching foreign nodes are left to the user.
func (b *GraphBuilder) ownsLink(l document.Link, known map[string]document.Node) bool {
	from, to := l.From().Node(), l.To().Node()
	if b.opts.adjustable && (b.isForeign(from, known) || b.isForeign(to, known)) {
		return false
	}
	return b.ownsSide(from, document.Output) || b.ownsSide(to, document.Input)
}

// detachLinks removes every link owned by the scope so the declared ones can
// be recreated without duplicates.
func (b *GraphBuilder) detachLinks(ctx context.Context, known map[string]document.Node) error {
	logger := ctxlog.FromContext(ctx)
	removed := 0
	for _, l := range b.doc.Links() {
		if !b.ownsLink(l, known) {
			continue
		}
		if err := b.doc.RemoveLink(l); err != nil {
			return fmt.Errorf("scope %q: detaching link: %w", b.name, err)
		}
		removed++
	}
	logger.Debug("Links: detached scope links.", "scope", b.name, "count", removed)
	return nil
}

// materializeLinks resolves and creates every link declaration in order. It
// returns the layout edges between item keys.
func (b *GraphBuilder) materializeLinks(ctx context.Context, live map[string]document.Node) ([]layout.Edge, error) {
	logger := ctxlog.FromContext(ctx)
	previous := b.nested
	b.nested = nil

	edges := make([]layout.Edge, 0, len(b.edges))
	for _, e := range b.edges {
		src, srcKey, err := b.resolveEndpoint(ctx, e.Source, e.SourcePort, document.Output, live)
		if err != nil {
			return edges, err
		}
		dst, dstKey, err := b.resolveEndpoint(ctx, e.Target, e.TargetPort, document.Input, live)
		if err != nil {
			return edges, err
		}
		if _, err := b.doc.CreateLink(src, dst); err != nil {
			return edges, &ResolutionError{
				Scope:    b.name,
				Endpoint: endpointName(e.Source) + " -> " + endpointName(e.Target),
				Port:     e.SourcePort.String() + " -> " + e.TargetPort.String(),
				Err:      err,
			}
		}
		b.opts.metrics.linkCreated(b.name)
		edges = append(edges, layout.Edge{From: srcKey, To: dstKey})
	}
	b.releaseNested(ctx, previous)
	logger.Debug("Links: materialized declarations.", "scope", b.name, "count", len(edges))
	return edges, nil
}

// releaseNested moves the scopes of builders that are no longer linked back
// to the root level.
func (b *GraphBuilder) releaseNested(ctx context.Context, previous []*GraphBuilder) {
	logger := ctxlog.FromContext(ctx)
	for _, nb := range previous {
		if slices.Contains(b.nested, nb) || nb.scope == nil || nb.scope.Parent() != b.scope {
			continue
		}
		nb.scope.SetParent(nil)
		logger.Debug("Links: nested scope no longer linked, detached.", "scope", b.name, "nested", nb.name)
	}
}

// resolveEndpoint turns one side of a declaration into a concrete socket and
// the layout key of the item it belongs to. side is Output for a link
// source and Input for a target.
func (b *GraphBuilder) resolveEndpoint(ctx context.Context, ep Endpoint, ref PortRef, side document.Direction, live map[string]document.Node) (document.Port, string, error) {
	switch v := ep.(type) {
	case NodeID:
		n, ok := live[string(v)]
		if !ok {
			return nil, "", &ResolutionError{Scope: b.name, Endpoint: string(v), Port: ref.String(), Err: ErrUnknownIdentifier}
		}
		p, err := selectPort(n, ref, side)
		if err != nil {
			return nil, "", &ResolutionError{Scope: b.name, Endpoint: string(v), Port: ref.String(), Kind: n.Kind(), Err: err}
		}
		return p, string(v), nil

	case Sentinel:
		dir := entry
		if v == End {
			dir = exit
		}
		if (dir == entry) != (side == document.Output) {
			return nil, "", &ResolutionError{Scope: b.name, Endpoint: v.String(), Port: ref.String(), Err: fmt.Errorf("%s cannot be used as a link %s", v, side)}
		}
		bp, err := b.selectBoundary(ctx, dir, ref, true)
		if err != nil {
			return nil, "", &ResolutionError{Scope: b.name, Endpoint: v.String(), Port: ref.String(), Kind: document.KindPassthrough, Err: err}
		}
		p, err := bp.innerSocket()
		if err != nil {
			return nil, "", &ResolutionError{Scope: b.name, Endpoint: v.String(), Port: ref.String(), Kind: document.KindPassthrough, Err: err}
		}
		return p, bp.label(), nil

	case *GraphBuilder:
		return b.resolveNested(ctx, v, ref, side)

	default:
		return nil, "", &ResolutionError{Scope: b.name, Endpoint: endpointName(ep), Port: ref.String(), Err: fmt.Errorf("unsupported endpoint type %T", ep)}
	}
}

// resolveNested compiles a nested builder if needed, moves its scope under
// this one and picks one of its boundary ports.
func (b *GraphBuilder) resolveNested(ctx context.Context, nb *GraphBuilder, ref PortRef, side document.Direction) (document.Port, string, error) {
	if nb == b {
		return nil, "", &ConfigurationError{Scope: b.name, Reason: "a builder cannot be nested in itself"}
	}
	if !nb.compiled {
		if err := nb.Compile(ctx); err != nil {
			return nil, "", fmt.Errorf("scope %q: compiling nested scope %q: %w", b.name, nb.name, err)
		}
	}
	if document.IsWithin(b.scope, nb.scope) {
		return nil, "", &ConfigurationError{Scope: b.name, Reason: fmt.Sprintf("scope %q already contains this scope", nb.name)}
	}
	if nb.scope.Parent() != b.scope {
		nb.scope.SetParent(b.scope)
	}
	if !slices.Contains(b.nested, nb) {
		b.nested = append(b.nested, nb)
	}

	// A link source reads the nested exit, a link target feeds the nested entry.
	dir := entry
	if side == document.Output {
		dir = exit
	}
	bp, err := nb.selectBoundary(ctx, dir, ref, false)
	if err != nil {
		return nil, "", &ResolutionError{Scope: b.name, Endpoint: nb.endpoint(), Port: ref.String(), Kind: document.KindFrame, Err: err}
	}
	p, err := bp.outerSocket()
	if err != nil {
		return nil, "", &ResolutionError{Scope: b.name, Endpoint: nb.endpoint(), Port: ref.String(), Kind: document.KindFrame, Err: err}
	}
	return p, nestedKey(nb), nil
}

func nestedKey(nb *GraphBuilder) string { return "@" + nb.scopeID }

// selectPort picks a socket of n on the given side. Passthrough nodes always
// use their single socket.
func selectPort(n document.Node, ref PortRef, side document.Direction) (document.Port, error) {
	ports := document.Ports(n, side)
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: node has no %s sockets", ErrUnknownPort, side)
	}
	if n.Kind() == document.KindPassthrough {
		return ports[0], nil
	}
	if i, ok := ref.Index(); ok {
		if i < 0 {
			i += len(ports)
		}
		if i < 0 || i >= len(ports) {
			return nil, fmt.Errorf("%w: %s index %s out of %d sockets", ErrUnknownPort, side, ref, len(ports))
		}
		return ports[i], nil
	}
	if ref.IsDefault() {
		for _, p := range ports {
			if p.Enabled() {
				return p, nil
			}
		}
		return ports[0], nil
	}
	for _, p := range ports {
		if p.Name() == ref.Name() {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s socket named %q", ErrUnknownPort, side, ref.Name())
}
