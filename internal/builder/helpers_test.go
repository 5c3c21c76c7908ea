package builder

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/memdoc"
	"github.com/zclconf/go-cty/cty"
)

func testKinds() []memdoc.Schema {
	return []memdoc.Schema{
		{
			Kind:  "K1",
			Width: 140,
			Properties: []memdoc.PropertySpec{
				{Name: "P", Default: cty.StringVal("initial")},
				{Name: "tint", Default: cty.ListVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(0), cty.NumberIntVal(0)})},
			},
			Inputs:  []memdoc.SocketSpec{{Name: "in", Default: cty.NumberIntVal(0)}},
			Outputs: []memdoc.SocketSpec{{Name: "out"}, {Name: "extra"}},
		},
		{
			Kind:       "K2",
			Width:      100,
			Properties: []memdoc.PropertySpec{{Name: "Q", Default: cty.NumberIntVal(1)}},
			Inputs: []memdoc.SocketSpec{
				{Name: "in", Default: cty.NumberIntVal(0)},
				{Name: "aux", Default: cty.NumberIntVal(1)},
			},
			Outputs: []memdoc.SocketSpec{{Name: "out"}},
		},
		{
			Kind:   "Sink",
			Width:  80,
			Inputs: []memdoc.SocketSpec{{Name: "in", Default: cty.NumberIntVal(0)}},
		},
		{
			Kind:    "Multi",
			Width:   120,
			Inputs:  []memdoc.SocketSpec{{Name: "in", Default: cty.NumberIntVal(0)}},
			Outputs: []memdoc.SocketSpec{{Name: "o0"}, {Name: "o1"}, {Name: "o2"}},
		},
	}
}

func newTestDoc(t *testing.T) *memdoc.Document {
	t.Helper()
	d, err := memdoc.New(memdoc.WithKinds(testKinds()...))
	require.NoError(t, err)
	return d
}

func newTestBuilder(t *testing.T, doc document.Document, name string, opts ...Option) *GraphBuilder {
	t.Helper()
	b, err := New(context.Background(), doc, name, opts...)
	require.NoError(t, err)
	return b
}

// linkStrings renders every link of the document as from:socket->to:socket.
func linkStrings(doc document.Document) []string {
	var out []string
	for _, l := range doc.Links() {
		out = append(out, fmt.Sprintf("%s:%s->%s:%s",
			l.From().Node().Label(), l.From().Name(),
			l.To().Node().Label(), l.To().Name()))
	}
	return out
}

// childLabels lists the labels of the direct children of scope.
func childLabels(doc document.Document, scope document.Node) []string {
	var out []string
	for _, n := range doc.ListChildren(scope) {
		out = append(out, n.Label())
	}
	return out
}

func mustNode(t *testing.T, b *GraphBuilder, id string) document.Node {
	t.Helper()
	n, ok := b.Node(id)
	require.True(t, ok, "node %q not found", id)
	return n
}

func mustProperty(t *testing.T, n document.Node, name string) cty.Value {
	t.Helper()
	v, err := n.Property(name)
	require.NoError(t, err)
	return v
}
