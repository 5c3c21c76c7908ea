package builder

import (
	"github.com/vk/framegraph/internal/layout"
	"github.com/zclconf/go-cty/cty"
)

// DefaultBoundaryNodeWidth is the width given to boundary port nodes.
const DefaultBoundaryNodeWidth = 16

type options struct {
	color         cty.Value
	hasColor      bool
	adjustable    bool
	boundaryWidth float64
	clearOnInit   bool
	layout        layout.Config
	metrics       *Metrics
}

func defaultOptions() options {
	return options{
		boundaryWidth: DefaultBoundaryNodeWidth,
		layout:        layout.DefaultConfig(),
	}
}

// Option configures a GraphBuilder.
type Option func(*options)

// WithColor sets the scope frame color.
func WithColor(color cty.Value) Option {
	return func(o *options) {
		o.color = color
		o.hasColor = true
	}
}

// Adjustable marks the scope as hand-editable after its first compile.
func Adjustable() Option {
	return func(o *options) { o.adjustable = true }
}

// WithBoundaryNodeWidth overrides DefaultBoundaryNodeWidth.
func WithBoundaryNodeWidth(width float64) Option {
	return func(o *options) { o.boundaryWidth = width }
}

// ClearOnInit empties the scope when the builder is created.
func ClearOnInit() Option {
	return func(o *options) { o.clearOnInit = true }
}

// WithLayout overrides the layout spacing.
func WithLayout(cfg layout.Config) Option {
	return func(o *options) { o.layout = cfg }
}

// WithMetrics records compile metrics. A nil *Metrics records nothing.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// NodeOption configures a NodeDeclaration.
type NodeOption func(*NodeDeclaration)

// WithProperties sets the declared property values.
func WithProperties(props map[string]cty.Value) NodeOption {
	return func(d *NodeDeclaration) { d.Properties = props }
}

// WithInputDefaults sets declared input socket defaults.
func WithInputDefaults(defaults map[string]cty.Value) NodeOption {
	return func(d *NodeDeclaration) { d.InputDefaults = defaults }
}

// WithOutputDefaults sets declared output socket defaults.
func WithOutputDefaults(defaults map[string]cty.Value) NodeOption {
	return func(d *NodeDeclaration) { d.OutputDefaults = defaults }
}

// ForceProperties pins the declared properties on every compile.
func ForceProperties() NodeOption {
	return func(d *NodeDeclaration) { d.ForceProperties = true }
}

// ForceDefaults pins the declared socket defaults on every compile.
func ForceDefaults() NodeOption {
	return func(d *NodeDeclaration) { d.ForceDefaults = true }
}

// LinkOption configures an EdgeDeclaration.
type LinkOption func(*EdgeDeclaration)

// FromPort selects the source socket by name.
func FromPort(name string) LinkOption {
	return func(e *EdgeDeclaration) { e.SourcePort = Port(name) }
}

// FromPortIndex selects the source socket by index.
func FromPortIndex(i int) LinkOption {
	return func(e *EdgeDeclaration) { e.SourcePort = PortIndex(i) }
}

// ToPort selects the target socket by name.
func ToPort(name string) LinkOption {
	return func(e *EdgeDeclaration) { e.TargetPort = Port(name) }
}

// ToPortIndex selects the target socket by index.
func ToPortIndex(i int) LinkOption {
	return func(e *EdgeDeclaration) { e.TargetPort = PortIndex(i) }
}

// Force records the link even on a compiled adjustable scope.
func Force() LinkOption {
	return func(e *EdgeDeclaration) { e.Force = true }
}

// CompileOption configures a single Compile call.
type CompileOption func(*compileOptions)

type compileOptions struct {
	arrange bool
}

// WithoutLayout skips the layout step.
func WithoutLayout() CompileOption {
	return func(o *compileOptions) { o.arrange = false }
}
