package builder

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/layout"
	"github.com/vk/framegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// GraphBuilder materializes the declarations of one scope into a document.
// It is not safe for concurrent use.
type GraphBuilder struct {
	doc     document.Document
	name    string
	scope   document.Node
	scopeID string
	opts    options

	decls   []NodeDeclaration
	edges   []EdgeDeclaration
	gen     int
	current map[string]bool

	boundary boundaryRegistry
	nested   []*GraphBuilder

	compiled  bool
	compiling bool
	skipped   int

	offset document.Vector
	items  []layout.Item
	edgesL []layout.Edge
	plan   layout.Result
	width  float64
	height float64
}

var _ layout.Block = (*GraphBuilder)(nil)

// New finds or creates the scope labeled name in doc. A scope left compiled
// by an earlier session is hydrated: its identifier-labeled children become
// known identities and, for adjustable scopes, its links become the edge
// declarations.
func New(ctx context.Context, doc document.Document, name string, opts ...Option) (*GraphBuilder, error) {
	logger := ctxlog.FromContext(ctx)

	if doc == nil {
		return nil, &ConfigurationError{Scope: name, Reason: "document is nil"}
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ConfigurationError{Scope: name, Reason: "scope name cannot be empty"}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b := &GraphBuilder{
		doc:     doc,
		name:    name,
		opts:    o,
		current: make(map[string]bool),
	}
	if err := b.ensureScope(ctx); err != nil {
		return nil, err
	}
	if o.hasColor {
		b.applyColor(ctx, o.color)
	}
	b.discoverBoundary(ctx)

	if o.clearOnInit {
		if err := b.ClearScope(ctx, false); err != nil {
			return nil, err
		}
	} else if v, _ := b.scope.Meta(MetaCompiled); v == "true" {
		b.hydrate(ctx)
	}

	logger.Debug("Builder: scope ready.", "scope", name, "scope_id", b.scopeID, "compiled", b.compiled, "adjustable", o.adjustable)
	return b, nil
}

// ensureScope finds or recreates the scope frame.
func (b *GraphBuilder) ensureScope(ctx context.Context) error {
	if b.scope != nil {
		return nil
	}
	logger := ctxlog.FromContext(ctx)

	scope, found := b.doc.FindScope(b.name)
	if !found {
		created, err := b.doc.CreateNode(document.KindFrame)
		if err != nil {
			return fmt.Errorf("creating scope %q: %w", b.name, err)
		}
		created.SetLabel(b.name)
		scope = created
		logger.Debug("Builder: created scope frame.", "scope", b.name)
	}

	id, ok := scope.Meta(MetaScopeID)
	if !ok || id == "" {
		id = b.scopeID
		if id == "" {
			id = uuid.NewString()
		}
		scope.SetMeta(MetaScopeID, id)
	}
	b.scopeID = id
	b.scope = scope
	return nil
}

func (b *GraphBuilder) applyColor(ctx context.Context, color cty.Value) {
	logger := ctxlog.FromContext(ctx)
	if err := b.scope.SetProperty("color", color); err != nil {
		logger.Warn("Builder: scope color not applied.", "scope", b.name, "error", err)
		return
	}
	if err := b.scope.SetProperty("use_custom_color", cty.True); err != nil {
		logger.Debug("Builder: scope has no custom color toggle.", "scope", b.name, "error", err)
	}
}

// AddNode queues a node declaration. Re-declaring an identifier from an
// earlier generation updates it; repeating one within the current generation
// is an error.
func (b *GraphBuilder) AddNode(id, kind string, opts ...NodeOption) error {
	if err := nodeid.Validate(id); err != nil {
		return &ConfigurationError{Scope: b.name, ID: id, Reason: err.Error()}
	}
	if strings.TrimSpace(kind) == "" {
		return &ConfigurationError{Scope: b.name, ID: id, Reason: "node kind cannot be empty"}
	}
	if kind == document.KindFrame {
		return &ConfigurationError{Scope: b.name, ID: id, Reason: "frames are scopes, link a nested builder instead"}
	}
	if b.current[id] {
		return &ConfigurationError{Scope: b.name, ID: id, Reason: "identifier declared twice in the same generation"}
	}

	decl := NodeDeclaration{ID: id, Kind: kind}
	for _, opt := range opts {
		opt(&decl)
	}
	decl = decl.clone()

	if i := b.declIndex(id); i >= 0 {
		b.decls[i] = decl
	} else {
		b.decls = append(b.decls, decl)
	}
	b.current[id] = true
	return nil
}

// RemoveNode drops the declaration of id together with every queued link
// declaration that references it. It reports whether id was declared.
func (b *GraphBuilder) RemoveNode(id string) bool {
	i := b.declIndex(id)
	if i < 0 {
		return false
	}
	b.decls = slices.Delete(b.decls, i, i+1)
	delete(b.current, id)
	b.edges = slices.DeleteFunc(b.edges, func(e EdgeDeclaration) bool {
		return e.touches(NodeID(id))
	})
	return true
}

func (b *GraphBuilder) declIndex(id string) int {
	return slices.IndexFunc(b.decls, func(d NodeDeclaration) bool { return d.ID == id })
}

// Link queues a link declaration from source to target. On a compiled
// adjustable scope the call is ignored unless Force is given.
func (b *GraphBuilder) Link(source, target Endpoint, opts ...LinkOption) error {
	if source == nil || target == nil {
		return &ConfigurationError{Scope: b.name, Reason: "link endpoints cannot be nil"}
	}
	if source == End {
		return &ConfigurationError{Scope: b.name, Reason: "END can only be a link target"}
	}
	if target == Start {
		return &ConfigurationError{Scope: b.name, Reason: "START can only be a link source"}
	}
	for _, ep := range []Endpoint{source, target} {
		switch v := ep.(type) {
		case NodeID:
			if err := nodeid.Validate(string(v)); err != nil {
				return &ConfigurationError{Scope: b.name, ID: string(v), Reason: err.Error()}
			}
		case Sentinel:
			if v != Start && v != End {
				return &ConfigurationError{Scope: b.name, Reason: fmt.Sprintf("unknown sentinel %s", v)}
			}
		case *GraphBuilder:
			if v == nil {
				return &ConfigurationError{Scope: b.name, Reason: "nested builder is nil"}
			}
			if v == b {
				return &ConfigurationError{Scope: b.name, Reason: "a builder cannot be nested in itself"}
			}
		}
	}

	e := EdgeDeclaration{Source: source, Target: target, gen: b.gen}
	for _, opt := range opts {
		opt(&e)
	}

	if b.opts.adjustable && b.compiled && !e.Force {
		b.skipped++
		b.opts.metrics.linkSkipped(b.name)
		return nil
	}
	b.edges = append(b.edges, e)
	return nil
}

// Unlink drops every queued link declaration from source to target and
// returns how many were dropped. Materialized links change on the next
// Compile.
func (b *GraphBuilder) Unlink(source, target Endpoint) int {
	before := len(b.edges)
	b.edges = slices.DeleteFunc(b.edges, func(e EdgeDeclaration) bool {
		return e.Source == source && e.Target == target
	})
	return before - len(b.edges)
}

// Name is the scope label.
func (b *GraphBuilder) Name() string { return b.name }

// ScopeID is the persisted scope id.
func (b *GraphBuilder) ScopeID() string { return b.scopeID }

// Scope is the scope frame, or nil after ClearScope with clean set.
func (b *GraphBuilder) Scope() document.Node { return b.scope }

// Compiled reports whether the last Compile succeeded.
func (b *GraphBuilder) Compiled() bool { return b.compiled }

// Width is the scope width computed by the last layout.
func (b *GraphBuilder) Width() float64 { return b.width }

// Height is the scope height computed by the last layout.
func (b *GraphBuilder) Height() float64 { return b.height }

// Levels returns the layout level of every item of the last layout.
func (b *GraphBuilder) Levels() map[string]int { return maps.Clone(b.plan.Levels) }

// SkippedLinks counts the Link calls ignored because the scope is adjustable
// and already compiled.
func (b *GraphBuilder) SkippedLinks() int { return b.skipped }

// Declarations returns a copy of the node declarations in declaration order.
func (b *GraphBuilder) Declarations() []NodeDeclaration {
	out := make([]NodeDeclaration, len(b.decls))
	for i, d := range b.decls {
		out[i] = d.clone()
	}
	return out
}

// Links returns a copy of the link declarations in declaration order.
func (b *GraphBuilder) Links() []EdgeDeclaration { return slices.Clone(b.edges) }

// Node returns the live node carrying identifier id in this scope.
func (b *GraphBuilder) Node(id string) (document.Node, bool) {
	_, live, _ := b.scanIdentities()
	n, ok := live[id]
	return n, ok
}

// ScopeAddress returns the labels of the scopes enclosing this builder's
// nodes, outermost first.
func (b *GraphBuilder) ScopeAddress() *nodeid.Address {
	var chain []string
	for n := b.scope; n != nil; n = n.Parent() {
		if n.Kind() == document.KindFrame {
			chain = append(chain, n.Label())
		}
	}
	addr := &nodeid.Address{}
	for i := len(chain) - 1; i >= 0; i-- {
		addr = addr.Child(chain[i])
	}
	return addr
}

// Address returns the qualified address of identifier id in this scope.
func (b *GraphBuilder) Address(id string) *nodeid.Address {
	return b.ScopeAddress().Child(id)
}

// GetInput returns the parent-side socket of the entry boundary port name,
// creating the port if needed. A parent links into it.
func (b *GraphBuilder) GetInput(ctx context.Context, name string) (document.Port, error) {
	if err := b.ensureScope(ctx); err != nil {
		return nil, err
	}
	bp, err := b.boundaryPort(ctx, entry, name)
	if err != nil {
		return nil, err
	}
	return bp.outerSocket()
}

// GetOutput returns the parent-side socket of the exit boundary port name,
// creating the port if needed. A parent links out of it.
func (b *GraphBuilder) GetOutput(ctx context.Context, name string) (document.Port, error) {
	if err := b.ensureScope(ctx); err != nil {
		return nil, err
	}
	bp, err := b.boundaryPort(ctx, exit, name)
	if err != nil {
		return nil, err
	}
	return bp.outerSocket()
}
