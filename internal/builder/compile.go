package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/layout"
	"github.com/vk/framegraph/internal/snapshot"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/vk/framegraph/internal/builder")

// Compile materializes the current declarations into the scope. Nested
// builders referenced by links are compiled first when needed.
func (b *GraphBuilder) Compile(ctx context.Context, opts ...CompileOption) (err error) {
	if b.compiling {
		return &ConfigurationError{Scope: b.name, Reason: "compile re-entered while already in progress"}
	}
	b.compiling = true
	defer func() { b.compiling = false }()

	co := compileOptions{arrange: true}
	for _, opt := range opts {
		opt(&co)
	}

	ctx, span := tracer.Start(ctx, "builder.Compile", trace.WithAttributes(
		attribute.String("framegraph.scope", b.name),
		attribute.Int("framegraph.declarations", len(b.decls)),
		attribute.Int("framegraph.edges", len(b.edges)),
		attribute.Bool("framegraph.adjustable", b.opts.adjustable),
	))
	started := time.Now()
	defer func() {
		b.opts.metrics.compiled(b.name, started, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := ctxlog.FromContext(ctx).With("scope", b.name)
	logger.Debug("Compile: starting.", "declarations", len(b.decls), "edges", len(b.edges))

	gen := b.gen
	b.gen++
	b.current = make(map[string]bool)

	if err := b.ensureScope(ctx); err != nil {
		return err
	}
	b.discoverBoundary(ctx)
	_, existing := b.identities(ctx)

	// Capture first: everything after this point may rewrite node state.
	var captured map[string]snapshot.State
	if b.compiled {
		captured = snapshot.Capture(ctx, existing)
		if b.opts.adjustable {
			b.edges = b.mergeEdges(b.deriveEdges(ctx), gen)
		}
		b.compiled = false
		b.scope.SetMeta(MetaCompiled, "false")
	}

	if err := b.detachLinks(ctx, existing); err != nil {
		return err
	}

	live, order, err := b.materializeNodes(ctx, existing)
	if err != nil {
		return err
	}
	logger.Debug("Compile: nodes materialized.", "count", len(order))

	if b.opts.adjustable {
		ids, current := b.identities(ctx)
		for _, id := range ids {
			if _, declared := live[id]; !declared {
				live[id] = current[id]
				order = append(order, id)
			}
		}
	} else if err := b.pruneStale(ctx, live); err != nil {
		return err
	}

	if failed := snapshot.Restore(ctx, captured, live, b.forcePolicy()); failed > 0 {
		logger.Debug("Compile: some captured fields were not restored.", "failed", failed)
	}

	edges, err := b.materializeLinks(ctx, live)
	if err != nil {
		return err
	}

	b.collectItems(order, live, edges)
	if co.arrange {
		if err := b.relayout(ctx); err != nil {
			return err
		}
	}

	b.compiled = true
	b.scope.SetMeta(MetaCompiled, "true")
	span.SetAttributes(attribute.Int("framegraph.nodes", len(order)), attribute.Int("framegraph.links", len(edges)))
	logger.Debug("Compile: scope compiled.", "nodes", len(order), "links", len(edges), "boundary_ports", len(b.boundary.ports), "nested", len(b.nested), "width", b.width, "height", b.height)
	return nil
}

func (b *GraphBuilder) forcePolicy() snapshot.Policy {
	return func(id string) (bool, bool) {
		i := b.declIndex(id)
		if i < 0 {
			return false, false
		}
		return b.decls[i].ForceProperties, b.decls[i].ForceDefaults
	}
}

// collectItems fixes the layout items: identities in order, then boundary
// ports in registry order, then nested scopes in first-reference order.
func (b *GraphBuilder) collectItems(order []string, live map[string]document.Node, edges []layout.Edge) {
	items := make([]layout.Item, 0, len(order)+len(b.boundary.ports)+len(b.nested))
	for _, id := range order {
		n := live[id]
		items = append(items, layout.Item{
			Key:         id,
			Width:       n.Dimensions().X,
			Passthrough: n.Kind() == document.KindPassthrough,
			Node:        n,
		})
	}
	for _, bp := range b.boundary.ports {
		items = append(items, layout.Item{
			Key:         bp.label(),
			Width:       b.opts.boundaryWidth,
			Passthrough: true,
			Node:        bp.node,
		})
	}
	for _, nb := range b.nested {
		items = append(items, layout.Item{Key: nestedKey(nb), Block: nb})
	}
	b.items = items
	b.edgesL = edges
}

// relayout plans the stored items again and moves them under the current
// offset. The frame is anchored at its top-left corner.
func (b *GraphBuilder) relayout(ctx context.Context) error {
	cfg := b.opts.layout
	b.plan = layout.Plan(ctx, b.items, b.edgesL, cfg)
	b.width = b.plan.Width
	b.height = b.plan.Height

	origin := b.offset.Add(document.Vector{X: cfg.ScopeMargin - b.plan.Left, Y: -cfg.ScopeMargin})
	if len(b.items) == 0 {
		origin = b.offset
	}
	if err := layout.Apply(ctx, b.items, b.plan, origin); err != nil {
		return fmt.Errorf("scope %q: %w", b.name, err)
	}
	if b.scope != nil {
		b.scope.SetPosition(b.offset)
		b.scope.SetDimensions(document.Vector{X: b.width, Y: b.height})
	}
	ctxlog.FromContext(ctx).Debug("Layout: scope arranged.", "scope", b.name, "items", len(b.items), "width", b.width, "height", b.height)
	return nil
}

// SetOffset moves the scope so its top-left corner sits at offset and lays
// out this scope again. Parents call it when placing a nested scope.
func (b *GraphBuilder) SetOffset(ctx context.Context, offset document.Vector) error {
	b.offset = offset
	if b.items == nil {
		if b.scope != nil {
			b.scope.SetPosition(offset)
		}
		return nil
	}
	return b.relayout(ctx)
}

// ClearScope removes the nodes and links owned by the builder. With clean
// set it also removes the boundary ports and the scope frame; link
// declarations keep their sentinel form, so a later Compile recreates both.
// Declarations are kept.
func (b *GraphBuilder) ClearScope(ctx context.Context, clean bool) error {
	logger := ctxlog.FromContext(ctx)
	if b.scope == nil {
		return nil
	}

	order, known := b.identities(ctx)
	if err := b.detachLinks(ctx, known); err != nil {
		return err
	}
	for _, id := range order {
		if err := b.removeNode(ctx, known[id]); err != nil {
			return err
		}
		b.opts.metrics.node(b.name, actionRemoved)
	}

	b.compiled = false
	b.items = nil
	b.edgesL = nil
	b.plan = layout.Result{}
	b.scope.SetMeta(MetaCompiled, "false")

	if clean {
		for _, bp := range b.boundary.ports {
			if err := b.removeNode(ctx, bp.node); err != nil {
				return err
			}
		}
		b.boundary = boundaryRegistry{}
		for _, nb := range b.nested {
			if nb.scope != nil && nb.scope.Parent() == b.scope {
				nb.scope.SetParent(nil)
			}
		}
		b.nested = nil
		if err := b.doc.RemoveNode(b.scope); err != nil {
			return fmt.Errorf("scope %q: removing scope frame: %w", b.name, err)
		}
		b.scope = nil
		b.width, b.height = 0, 0
	}

	logger.Debug("Builder: scope cleared.", "scope", b.name, "clean", clean, "nodes", len(order))
	return nil
}
