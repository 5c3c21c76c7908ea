package memdoc

import (
	"github.com/vk/framegraph/internal/document"
	"github.com/zclconf/go-cty/cty"
)

// PropertySpec describes one named property of a kind.
type PropertySpec struct {
	Name    string
	Default cty.Value
	// ReadOnly properties can be read but never set, and are not captured.
	ReadOnly bool
}

// SocketSpec describes one input or output socket of a kind. A cty.NilVal
// Default means the socket does not carry a default value.
type SocketSpec struct {
	Name     string
	Default  cty.Value
	Disabled bool
}

// Schema is the explicit description of a node kind. It replaces runtime
// introspection: MutableProperties is derived from it.
type Schema struct {
	Kind       string
	Width      float64
	Height     float64
	Properties []PropertySpec
	Inputs     []SocketSpec
	Outputs    []SocketSpec
}

func (s Schema) property(name string) (PropertySpec, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertySpec{}, false
}

// FrameSchema is the built-in scope container kind.
func FrameSchema() Schema {
	return Schema{
		Kind:   document.KindFrame,
		Width:  0,
		Height: 0,
		Properties: []PropertySpec{
			{Name: "color", Default: cty.ListVal([]cty.Value{
				cty.NumberFloatVal(0.6), cty.NumberFloatVal(0.6), cty.NumberFloatVal(0.6), cty.NumberFloatVal(1),
			})},
			{Name: "use_custom_color", Default: cty.False},
			{Name: "label_size", Default: cty.NumberIntVal(20)},
			{Name: "shrink", Default: cty.True},
		},
	}
}

// PassthroughSchema is the built-in single-socket reroute kind.
func PassthroughSchema() Schema {
	return Schema{
		Kind:    document.KindPassthrough,
		Width:   16,
		Height:  16,
		Inputs:  []SocketSpec{{Name: "Input", Default: cty.NilVal}},
		Outputs: []SocketSpec{{Name: "Output", Default: cty.NilVal}},
	}
}
