package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/common/expfmt"
	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/hclgraph"
	"github.com/vk/framegraph/internal/nodeid"
)

// Report describes every compiled scope of a document.
type Report struct {
	Scopes []ScopeReport `json:"scopes"`
}

// ScopeReport is one scope: its frame, its children and the links leaving them.
type ScopeReport struct {
	Name     string          `json:"name"`
	ID       string          `json:"id"`
	Parent   string          `json:"parent,omitempty"`
	Position document.Vector `json:"position"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Skipped  int             `json:"skipped_links,omitempty"`
	Nodes    []NodeReport    `json:"nodes"`
	Links    []string        `json:"links"`
}

// NodeReport is one direct child of a scope.
type NodeReport struct {
	Label    string          `json:"label"`
	Address  string          `json:"address,omitempty"`
	Kind     string          `json:"kind"`
	Level    *int            `json:"level,omitempty"`
	Position document.Vector `json:"position"`
}

// buildReport walks the scopes nested-first, the order they were compiled in.
func buildReport(doc document.Document, graph *hclgraph.Graph) Report {
	var r Report
	for _, b := range graph.Scopes() {
		r.Scopes = append(r.Scopes, scopeReport(doc, b))
	}
	return r
}

func scopeReport(doc document.Document, b *builder.GraphBuilder) ScopeReport {
	sr := ScopeReport{
		Name:    b.Name(),
		ID:      b.ScopeID(),
		Width:   b.Width(),
		Height:  b.Height(),
		Skipped: b.SkippedLinks(),
		Nodes:   []NodeReport{},
		Links:   []string{},
	}
	scope := b.Scope()
	if scope == nil {
		return sr
	}
	sr.Position = scope.Position()
	if p := scope.Parent(); p != nil {
		sr.Parent = p.Label()
	}

	levels := b.Levels()
	for _, n := range doc.ListChildren(scope) {
		nr := NodeReport{Label: n.Label(), Kind: n.Kind(), Position: n.Position()}
		key := n.Label()
		switch {
		case n.Kind() == document.KindFrame:
			if id, ok := n.Meta(builder.MetaScopeID); ok {
				key = "@" + id
			}
		case nodeid.IsIdentifier(n.Label()):
			nr.Address = b.Address(n.Label()).String()
		}
		if lvl, ok := levels[key]; ok {
			nr.Level = &lvl
		}
		sr.Nodes = append(sr.Nodes, nr)
	}

	for _, l := range doc.Links() {
		if l.From().Node().Parent() != scope {
			continue
		}
		sr.Links = append(sr.Links, fmt.Sprintf("%s:%s -> %s:%s",
			l.From().Node().Label(), l.From().Name(),
			l.To().Node().Label(), l.To().Name()))
	}
	return sr
}

func writeReport(w io.Writer, format string, r Report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, s := range r.Scopes {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "scope %s\tid=%s\tparent=%s\tsize=%gx%g\n", s.Name, s.ID, orDash(s.Parent), s.Width, s.Height)
		for _, n := range s.Nodes {
			level := "-"
			if n.Level != nil {
				level = fmt.Sprint(*n.Level)
			}
			fmt.Fprintf(tw, "  node %s\t%s\tlevel=%s\tat=(%g, %g)\n", n.Label, n.Kind, level, n.Position.X, n.Position.Y)
		}
		for _, l := range s.Links {
			fmt.Fprintf(tw, "  link %s\n", l)
		}
		if s.Skipped > 0 {
			fmt.Fprintf(tw, "  skipped %d link declarations\n", s.Skipped)
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// writeMetrics appends the builder metrics in the Prometheus text format.
func (a *App) writeMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.outW)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(a.outW, mf); err != nil {
			return err
		}
	}
	return nil
}
