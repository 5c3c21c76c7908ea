package hclgraph

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a graph file may contain.
type fileRoot struct {
	Kinds  []*kindBlock  `hcl:"kind,block"`
	Scopes []*scopeBlock `hcl:"scope,block"`
	Remain hcl.Body      `hcl:",remain"`
}

type kindBlock struct {
	Name       string           `hcl:"name,label"`
	Width      *float64         `hcl:"width,optional"`
	Height     *float64         `hcl:"height,optional"`
	Properties []*propertyBlock `hcl:"property,block"`
	Inputs     []*socketBlock   `hcl:"input,block"`
	Outputs    []*socketBlock   `hcl:"output,block"`
}

type propertyBlock struct {
	Name     string         `hcl:"name,label"`
	Default  hcl.Expression `hcl:"default,optional"`
	ReadOnly *bool          `hcl:"read_only,optional"`
}

type socketBlock struct {
	Name     string         `hcl:"name,label"`
	Default  hcl.Expression `hcl:"default,optional"`
	Disabled *bool          `hcl:"disabled,optional"`
}

type scopeBlock struct {
	Name       string         `hcl:"name,label"`
	Adjustable *bool          `hcl:"adjustable,optional"`
	Color      hcl.Expression `hcl:"color,optional"`
	Nodes      []*nodeBlock   `hcl:"node,block"`
	Links      []*linkBlock   `hcl:"link,block"`
	Scopes     []*scopeBlock  `hcl:"scope,block"`
}

type nodeBlock struct {
	ID              string         `hcl:"id,label"`
	Kind            string         `hcl:"kind"`
	Properties      hcl.Expression `hcl:"properties,optional"`
	Inputs          hcl.Expression `hcl:"inputs,optional"`
	Outputs         hcl.Expression `hcl:"outputs,optional"`
	ForceProperties *bool          `hcl:"force_properties,optional"`
	ForceDefaults   *bool          `hcl:"force_defaults,optional"`
}

type linkBlock struct {
	From     hcl.Expression `hcl:"from"`
	To       hcl.Expression `hcl:"to"`
	FromPort hcl.Expression `hcl:"from_port,optional"`
	ToPort   hcl.Expression `hcl:"to_port,optional"`
	Force    *bool          `hcl:"force,optional"`
}
