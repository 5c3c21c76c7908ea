// Package snapshot captures the user-editable state of live nodes before a
// rebuild and puts it back afterwards.
package snapshot

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/document"
	"github.com/zclconf/go-cty/cty"
)

// PortValue is the captured default of one socket.
type PortValue struct {
	Index int
	Name  string
	Value cty.Value
}

// State is the captured, non-identity state of one node.
type State struct {
	Kind       string
	Properties map[string]cty.Value
	Inputs     []PortValue
	Outputs    []PortValue
}

// Policy reports which fields the current declaration of id pins. Pinned
// fields are never restored.
type Policy func(id string) (forceProperties, forceDefaults bool)

// Capture records the state of every live node keyed by identity. Passthrough
// and frame nodes are skipped: they carry no user state of their own.
func Capture(ctx context.Context, live map[string]document.Node) map[string]State {
	logger := ctxlog.FromContext(ctx)
	out := make(map[string]State, len(live))
	for _, id := range slices.Sorted(maps.Keys(live)) {
		n := live[id]
		if n == nil || n.Kind() == document.KindPassthrough || n.Kind() == document.KindFrame {
			continue
		}
		out[id] = CaptureNode(ctx, n)
	}
	logger.Debug("Snapshot: captured node state.", "nodes", len(out))
	return out
}

// CaptureNode records the mutable properties and the socket defaults of n.
// cty values are immutable, so holding on to them is a full copy.
func CaptureNode(ctx context.Context, n document.Node) State {
	logger := ctxlog.FromContext(ctx)
	st := State{
		Kind:       n.Kind(),
		Properties: make(map[string]cty.Value),
	}
	for _, name := range n.MutableProperties() {
		v, err := n.Property(name)
		if err != nil {
			logger.Debug("Snapshot: property not readable, skipping.", "node", n.Label(), "property", name, "error", err)
			continue
		}
		st.Properties[name] = v
	}
	st.Inputs = capturePorts(n.Inputs())
	st.Outputs = capturePorts(n.Outputs())
	return st
}

func capturePorts(ports []document.Port) []PortValue {
	var out []PortValue
	for _, p := range ports {
		if !p.Enabled() || !p.HasDefault() {
			continue
		}
		v, err := p.Default()
		if err != nil {
			continue
		}
		out = append(out, PortValue{Index: p.Index(), Name: p.Name(), Value: v})
	}
	return out
}

// Restore writes captured state back onto the live nodes that still carry the
// same kind. Every field is restored on its own; failures are logged and
// counted, never returned.
func Restore(ctx context.Context, captured map[string]State, live map[string]document.Node, policy Policy) (failed int) {
	logger := ctxlog.FromContext(ctx)

	for _, id := range slices.Sorted(maps.Keys(captured)) {
		st := captured[id]
		n, ok := live[id]
		if !ok || n == nil {
			continue
		}
		if n.Kind() != st.Kind {
			logger.Debug("Snapshot: kind changed, state dropped.", "node", id, "was", st.Kind, "now", n.Kind())
			continue
		}

		var forceProps, forceDefaults bool
		if policy != nil {
			forceProps, forceDefaults = policy(id)
		}

		if !forceProps {
			for _, name := range slices.Sorted(maps.Keys(st.Properties)) {
				if err := n.SetProperty(name, st.Properties[name]); err != nil {
					logger.Warn("Snapshot: failed to restore property.", "node", id, "property", name, "error", err)
					failed++
				}
			}
		}
		if !forceDefaults {
			failed += restorePorts(ctx, id, n.Inputs(), st.Inputs)
			failed += restorePorts(ctx, id, n.Outputs(), st.Outputs)
		}
	}
	return failed
}

func restorePorts(ctx context.Context, id string, ports []document.Port, values []PortValue) (failed int) {
	logger := ctxlog.FromContext(ctx)
	for _, pv := range values {
		p := matchPort(ports, pv)
		if p == nil {
			logger.Warn("Snapshot: socket no longer exists, default not restored.", "node", id, "socket", pv.Name, "index", pv.Index)
			failed++
			continue
		}
		if err := p.SetDefault(pv.Value); err != nil {
			logger.Warn("Snapshot: failed to restore socket default.", "node", id, "socket", pv.Name, "error", err)
			failed++
		}
	}
	return failed
}

// matchPort finds the socket for a captured value by name first, then by index.
func matchPort(ports []document.Port, pv PortValue) document.Port {
	for _, p := range ports {
		if p.Name() == pv.Name && p.HasDefault() {
			return p
		}
	}
	for _, p := range ports {
		if p.Index() == pv.Index && p.HasDefault() {
			return p
		}
	}
	return nil
}
