package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// childClass tells the children of a scope apart.
type childClass int

const (
	classIdentity childClass = iota
	classBoundary
	classScope
	classForeign
)

// classify sorts a child of the scope. Only frames carrying a scope id are
// nested scopes; any other frame is foreign.
func classify(n document.Node) childClass {
	if n.Kind() == document.KindFrame {
		if id, ok := n.Meta(MetaScopeID); ok && id != "" {
			return classScope
		}
		return classForeign
	}
	if _, _, ok := parseBoundary(n); ok {
		return classBoundary
	}
	if nodeid.IsIdentifier(n.Label()) {
		return classIdentity
	}
	return classForeign
}

// identities lists the identifier-labeled children of the scope in document
// order. When two children carry the same label the first one wins.
func (b *GraphBuilder) identities(ctx context.Context) ([]string, map[string]document.Node) {
	order, live, dups := b.scanIdentities()
	logger := ctxlog.FromContext(ctx)
	for _, id := range dups {
		logger.Warn("Identity: two nodes share an identifier, the later one is foreign.", "scope", b.name, "id", id)
	}
	return order, live
}

// scanIdentities is identities without logging. dups lists the labels seen
// more than once.
func (b *GraphBuilder) scanIdentities() (order []string, live map[string]document.Node, dups []string) {
	live = make(map[string]document.Node)
	if b.scope == nil {
		return order, live, nil
	}
	for _, child := range b.doc.ListChildren(b.scope) {
		if classify(child) != classIdentity {
			continue
		}
		id := child.Label()
		if _, dup := live[id]; dup {
			dups = append(dups, id)
			continue
		}
		live[id] = child
		order = append(order, id)
	}
	return order, live, dups
}

// isForeign reports whether n is a child of the scope that the builder does
// not recognize. known holds the identities of the scope.
func (b *GraphBuilder) isForeign(n document.Node, known map[string]document.Node) bool {
	if n.Parent() != b.scope {
		return false
	}
	switch classify(n) {
	case classForeign:
		return true
	case classIdentity:
		return known[n.Label()] != n
	default:
		return false
	}
}

// hydrate admits what an earlier session left in a compiled scope.
func (b *GraphBuilder) hydrate(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	ids, _ := b.identities(ctx)
	b.compiled = true
	if b.opts.adjustable {
		b.edges = b.deriveEdges(ctx)
	}
	logger.Debug("Identity: hydrated compiled scope.", "scope", b.name, "identities", len(ids), "edges", len(b.edges))
}

// materializeNodes resolves every declaration to a live node in declaration
// order and writes the declared values onto it.
func (b *GraphBuilder) materializeNodes(ctx context.Context, existing map[string]document.Node) (map[string]document.Node, []string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Identity: resolving declarations.", "scope", b.name, "count", len(b.decls))

	live := make(map[string]document.Node, len(b.decls))
	order := make([]string, 0, len(b.decls))
	for _, d := range b.decls {
		n, err := b.resolveIdentity(ctx, d, existing[d.ID])
		if err != nil {
			return live, order, err
		}
		b.applyDeclared(ctx, n, d)
		live[d.ID] = n
		order = append(order, d.ID)
	}
	return live, order, nil
}

// resolveIdentity reuses, replaces or creates the node backing d.
func (b *GraphBuilder) resolveIdentity(ctx context.Context, d NodeDeclaration, current document.Node) (document.Node, error) {
	logger := ctxlog.FromContext(ctx).With("scope", b.name, "id", d.ID)

	if current != nil && current.Kind() == d.Kind {
		logger.Debug("Identity: reusing node.")
		b.opts.metrics.node(b.name, actionReused)
		return current, nil
	}

	action := actionCreated
	if current != nil {
		logger.Debug("Identity: kind changed, replacing node.", "old_kind", current.Kind(), "new_kind", d.Kind)
		if err := b.removeNode(ctx, current); err != nil {
			return nil, err
		}
		action = actionReplaced
	}

	n, err := b.doc.CreateNode(d.Kind)
	if err != nil {
		return nil, &ResolutionError{Scope: b.name, Endpoint: d.ID, Kind: d.Kind, Err: err}
	}
	n.SetLabel(d.ID)
	n.SetParent(b.scope)
	logger.Debug("Identity: node materialized.", "kind", d.Kind, "action", action)
	b.opts.metrics.node(b.name, action)
	return n, nil
}

// applyDeclared writes the declared properties and socket defaults. Unknown
// keys are logged and skipped.
func (b *GraphBuilder) applyDeclared(ctx context.Context, n document.Node, d NodeDeclaration) {
	logger := ctxlog.FromContext(ctx).With("scope", b.name, "id", d.ID)

	for _, name := range slices.Sorted(maps.Keys(d.Properties)) {
		if err := n.SetProperty(name, d.Properties[name]); err != nil {
			if errors.Is(err, document.ErrUnknownProperty) {
				logger.Warn("Identity: declared property is unknown to the kind.", "property", name, "kind", d.Kind)
				continue
			}
			logger.Warn("Identity: declared property not applied.", "property", name, "error", err)
		}
	}
	applyDefaults(logger, n.Inputs(), d.InputDefaults)
	applyDefaults(logger, n.Outputs(), d.OutputDefaults)
}

func applyDefaults(logger *slog.Logger, ports []document.Port, values map[string]cty.Value) {
	for _, key := range slices.Sorted(maps.Keys(values)) {
		p := socketByKey(ports, key)
		if p == nil {
			logger.Warn("Identity: declared socket does not exist.", "socket", key)
			continue
		}
		if err := p.SetDefault(values[key]); err != nil {
			logger.Warn("Identity: declared socket default not applied.", "socket", key, "error", err)
		}
	}
}

// socketByKey finds a socket by exact name, then by decimal index.
func socketByKey(ports []document.Port, key string) document.Port {
	for _, p := range ports {
		if p.Name() == key {
			return p
		}
	}
	i, err := strconv.Atoi(key)
	if err != nil {
		return nil
	}
	if i < 0 {
		i += len(ports)
	}
	if i < 0 || i >= len(ports) {
		return nil
	}
	return ports[i]
}

// pruneStale removes, links first, every child of the scope that is neither
// declared, a boundary port nor a nested scope. Adjustable scopes never get
// here.
func (b *GraphBuilder) pruneStale(ctx context.Context, live map[string]document.Node) error {
	logger := ctxlog.FromContext(ctx)
	for _, child := range b.doc.ListChildren(b.scope) {
		switch classify(child) {
		case classBoundary, classScope:
			continue
		case classIdentity:
			if live[child.Label()] == child {
				continue
			}
		}
		logger.Debug("Identity: removing stale node.", "scope", b.name, "label", child.Label(), "kind", child.Kind())
		if err := b.removeNode(ctx, child); err != nil {
			return err
		}
		b.opts.metrics.node(b.name, actionRemoved)
	}
	return nil
}

// removeNode deletes the links of n, then n itself.
func (b *GraphBuilder) removeNode(ctx context.Context, n document.Node) error {
	logger := ctxlog.FromContext(ctx)
	for _, l := range document.LinksTouching(b.doc, func(x document.Node) bool { return x == n }) {
		if err := b.doc.RemoveLink(l); err != nil {
			return fmt.Errorf("scope %q: removing link of %q: %w", b.name, n.Label(), err)
		}
	}
	if err := b.doc.RemoveNode(n); err != nil {
		return fmt.Errorf("scope %q: removing node %q: %w", b.name, n.Label(), err)
	}
	logger.Debug("Identity: node removed.", "scope", b.name, "label", n.Label())
	return nil
}
