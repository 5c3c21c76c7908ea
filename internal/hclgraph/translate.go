// This file translates decoded HCL blocks into the format-agnostic Model.

package hclgraph

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/memdoc"
	"github.com/vk/framegraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Sizes given to kinds that do not declare one.
const (
	DefaultKindWidth  = 140
	DefaultKindHeight = 100
)

func translateKind(ctx context.Context, k *kindBlock) (memdoc.Schema, error) {
	ctx, logger := ctxlog.With(ctx, "kind", k.Name)
	logger.Debug("Translating HCL kind to schema.")

	s := memdoc.Schema{Kind: k.Name, Width: DefaultKindWidth, Height: DefaultKindHeight}
	if k.Width != nil {
		s.Width = *k.Width
	}
	if k.Height != nil {
		s.Height = *k.Height
	}
	if s.Width < 0 || s.Height < 0 {
		return memdoc.Schema{}, fmt.Errorf("kind %q: size cannot be negative", k.Name)
	}

	for _, p := range k.Properties {
		def := cty.NullVal(cty.DynamicPseudoType)
		if isExprDefined(ctx, p.Default, "default") {
			v, diags := p.Default.Value(nil)
			if diags.HasErrors() {
				return memdoc.Schema{}, fmt.Errorf("invalid default for property '%s' in kind '%s': %w", p.Name, k.Name, diags)
			}
			def = v
		}
		s.Properties = append(s.Properties, memdoc.PropertySpec{
			Name:     p.Name,
			Default:  def,
			ReadOnly: p.ReadOnly != nil && *p.ReadOnly,
		})
	}

	var err error
	if s.Inputs, err = translateSockets(ctx, k.Name, "input", k.Inputs); err != nil {
		return memdoc.Schema{}, err
	}
	if s.Outputs, err = translateSockets(ctx, k.Name, "output", k.Outputs); err != nil {
		return memdoc.Schema{}, err
	}
	return s, nil
}

func translateSockets(ctx context.Context, kind, side string, blocks []*socketBlock) ([]memdoc.SocketSpec, error) {
	var out []memdoc.SocketSpec
	for _, b := range blocks {
		spec := memdoc.SocketSpec{Name: b.Name, Default: cty.NilVal, Disabled: b.Disabled != nil && *b.Disabled}
		if isExprDefined(ctx, b.Default, "default") {
			v, diags := b.Default.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid default for %s '%s' in kind '%s': %w", side, b.Name, kind, diags)
			}
			spec.Default = v
		}
		out = append(out, spec)
	}
	return out, nil
}

func translateScope(ctx context.Context, s *scopeBlock) (*Scope, error) {
	ctx, logger := ctxlog.With(ctx, "scope", s.Name)
	logger.Debug("Translating HCL scope to graph model.", "nodes", len(s.Nodes), "links", len(s.Links), "scopes", len(s.Scopes))

	if err := nodeid.Validate(s.Name); err != nil {
		return nil, fmt.Errorf("scope name: %w", err)
	}
	scope := &Scope{Name: s.Name, Adjustable: s.Adjustable != nil && *s.Adjustable, Color: cty.NilVal}
	if isExprDefined(ctx, s.Color, "color") {
		v, diags := s.Color.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid color for scope '%s': %w", s.Name, diags)
		}
		scope.Color = v
	}

	children := make(map[string]struct{}, len(s.Scopes))
	for _, child := range s.Scopes {
		nested, err := translateScope(ctx, child)
		if err != nil {
			return nil, err
		}
		scope.Scopes = append(scope.Scopes, nested)
		children[nested.Name] = struct{}{}
	}

	for _, n := range s.Nodes {
		node, err := translateNode(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("scope '%s': %w", s.Name, err)
		}
		scope.Nodes = append(scope.Nodes, node)
	}

	for i, l := range s.Links {
		link, err := translateLink(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("scope '%s', link %d: %w", s.Name, i, err)
		}
		for _, ep := range []EndpointRef{link.From, link.To} {
			if ep.Kind != EndpointScope {
				continue
			}
			if _, ok := children[ep.Name]; !ok {
				return nil, fmt.Errorf("scope '%s', link %d: %s is not nested in this scope", s.Name, i, ep)
			}
		}
		scope.Links = append(scope.Links, link)
	}
	return scope, nil
}

func translateNode(ctx context.Context, n *nodeBlock) (Node, error) {
	node := Node{
		ID:              n.ID,
		Kind:            n.Kind,
		ForceProperties: n.ForceProperties != nil && *n.ForceProperties,
		ForceDefaults:   n.ForceDefaults != nil && *n.ForceDefaults,
	}
	var err error
	if node.Properties, err = valueMap(ctx, n.Properties, "properties"); err != nil {
		return Node{}, fmt.Errorf("node '%s': %w", n.ID, err)
	}
	if node.Inputs, err = valueMap(ctx, n.Inputs, "inputs"); err != nil {
		return Node{}, fmt.Errorf("node '%s': %w", n.ID, err)
	}
	if node.Outputs, err = valueMap(ctx, n.Outputs, "outputs"); err != nil {
		return Node{}, fmt.Errorf("node '%s': %w", n.ID, err)
	}
	return node, nil
}

func translateLink(ctx context.Context, l *linkBlock) (Link, error) {
	from, err := endpointRef(l.From)
	if err != nil {
		return Link{}, fmt.Errorf("from: %w", err)
	}
	to, err := endpointRef(l.To)
	if err != nil {
		return Link{}, fmt.Errorf("to: %w", err)
	}
	link := Link{From: from, To: to, Force: l.Force != nil && *l.Force}
	if link.FromPort, err = portRef(ctx, l.FromPort, "from_port"); err != nil {
		return Link{}, err
	}
	if link.ToPort, err = portRef(ctx, l.ToPort, "to_port"); err != nil {
		return Link{}, err
	}
	return link, nil
}

// valueMap evaluates an object or map expression into a name-keyed map.
func valueMap(ctx context.Context, expr hcl.Expression, attrName string) (map[string]cty.Value, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s: %w", attrName, diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%s must be an object, got %s", attrName, ty.FriendlyName())
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("%s must be known when the file is loaded", attrName)
	}
	out := make(map[string]cty.Value, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, val := it.Element()
		out[k.AsString()] = val
	}
	return out, nil
}

// portRef evaluates a port attribute: a string selects by name, a number by
// index. An absent attribute selects the default socket.
func portRef(ctx context.Context, expr hcl.Expression, attrName string) (builder.PortRef, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return builder.PortRef{}, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return builder.PortRef{}, fmt.Errorf("invalid %s: %w", attrName, diags)
	}
	if v.IsNull() {
		return builder.PortRef{}, nil
	}
	switch v.Type() {
	case cty.String:
		return builder.Port(v.AsString()), nil
	case cty.Number:
		var i int
		if err := gocty.FromCtyValue(v, &i); err != nil {
			return builder.PortRef{}, fmt.Errorf("%s must be a whole number: %w", attrName, err)
		}
		return builder.PortIndex(i), nil
	default:
		return builder.PortRef{}, fmt.Errorf("%s must be a string or a number, got %s", attrName, v.Type().FriendlyName())
	}
}

// isExprDefined checks if an HCL expression was actually present in the
// source. Omitted optional attributes are decoded as zero-width static null
// expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}
