package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/document"
	"github.com/vk/framegraph/internal/memdoc"
	"github.com/zclconf/go-cty/cty"
)

func TestCompile_Scenario(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")

	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.AddNode("B", "K2"))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B"), FromPort("out"), ToPort("in")))
	require.NoError(t, b.Compile(ctx))

	assert.True(t, b.Compiled())
	assert.Equal(t, []string{"A", "B"}, childLabels(doc, b.Scope()))
	assert.Equal(t, []string{"A:out->B:in"}, linkStrings(doc))
	if diff := cmp.Diff(map[string]int{"A": 1, "B": 0}, b.Levels()); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	compiled, _ := b.Scope().Meta(MetaCompiled)
	assert.Equal(t, "true", compiled)

	// A user edits A; the rebuild keeps the edit.
	a := mustNode(t, b, "A")
	require.NoError(t, a.SetProperty("P", cty.StringVal("user value")))
	require.NoError(t, b.Compile(ctx))
	assert.Equal(t, a, mustNode(t, b, "A"), "identity keeps its live node")
	assert.Equal(t, "user value", mustProperty(t, a, "P").AsString())

	// B leaves the declarations: its link goes first, then the node.
	require.True(t, b.RemoveNode("B"))
	doc.ResetJournal()
	require.NoError(t, b.Compile(ctx))

	_, ok := b.Node("B")
	assert.False(t, ok)
	assert.Empty(t, doc.Links())
	want := []memdoc.Event{
		{Op: memdoc.OpRemoveLink, Subject: "A:out->B:in"},
		{Op: memdoc.OpRemoveNode, Subject: "B"},
	}
	if diff := cmp.Diff(want, doc.Journal()); diff != "" {
		t.Errorf("journal mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"A": 0}, b.Levels())
}

func TestCompile_Idempotent(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")
	require.NoError(t, b.AddNode("A", "K1", WithProperties(map[string]cty.Value{"P": cty.StringVal("declared")})))
	require.NoError(t, b.AddNode("B", "K2", WithInputDefaults(map[string]cty.Value{"aux": cty.NumberIntVal(5)})))
	require.NoError(t, b.AddNode("C", "Sink"))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B")))
	require.NoError(t, b.Link(NodeID("B"), NodeID("C")))
	require.NoError(t, b.Compile(ctx))

	type snapshotOf struct {
		nodes     map[string]document.Node
		positions map[string]document.Vector
		links     []string
		p         string
	}
	take := func() snapshotOf {
		s := snapshotOf{nodes: map[string]document.Node{}, positions: map[string]document.Vector{}}
		for _, id := range []string{"A", "B", "C"} {
			n := mustNode(t, b, id)
			s.nodes[id] = n
			s.positions[id] = n.Position()
		}
		s.links = linkStrings(doc)
		s.p = mustProperty(t, s.nodes["A"], "P").AsString()
		return s
	}

	first := take()
	require.NoError(t, b.Compile(ctx))
	second := take()

	assert.Equal(t, first.nodes, second.nodes)
	assert.Equal(t, first.positions, second.positions)
	assert.Equal(t, first.links, second.links)
	assert.Equal(t, first.p, second.p)
	assert.Len(t, doc.ListChildren(b.Scope()), 3)
}

func TestCompile_ForcedFields(t *testing.T) {
	testCases := []struct {
		name      string
		opts      []NodeOption
		wantP     string
		wantInput int64
	}{
		{
			name:      "user edits survive",
			opts:      nil,
			wantP:     "user",
			wantInput: 42,
		},
		{
			name:      "forced properties reset",
			opts:      []NodeOption{ForceProperties()},
			wantP:     "declared",
			wantInput: 42,
		},
		{
			name:      "forced defaults reset",
			opts:      []NodeOption{ForceDefaults()},
			wantP:     "user",
			wantInput: 7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			b := newTestBuilder(t, newTestDoc(t), "main")
			opts := append([]NodeOption{
				WithProperties(map[string]cty.Value{"P": cty.StringVal("declared")}),
				WithInputDefaults(map[string]cty.Value{"in": cty.NumberIntVal(7)}),
			}, tc.opts...)
			require.NoError(t, b.AddNode("A", "K1", opts...))
			require.NoError(t, b.Compile(ctx))

			a := mustNode(t, b, "A")
			assert.Equal(t, "declared", mustProperty(t, a, "P").AsString())
			require.NoError(t, a.SetProperty("P", cty.StringVal("user")))
			require.NoError(t, a.Inputs()[0].SetDefault(cty.NumberIntVal(42)))

			require.NoError(t, b.Compile(ctx))

			assert.Equal(t, tc.wantP, mustProperty(t, a, "P").AsString())
			v, err := a.Inputs()[0].Default()
			require.NoError(t, err)
			got, _ := v.AsBigFloat().Int64()
			assert.Equal(t, tc.wantInput, got)
		})
	}
}

func TestCompile_KindChangeReplacesNode(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.Compile(ctx))
	before := mustNode(t, b, "A")

	require.NoError(t, b.AddNode("A", "K2"))
	require.NoError(t, b.Compile(ctx))

	after := mustNode(t, b, "A")
	assert.NotEqual(t, before, after)
	assert.Equal(t, "K2", after.Kind())
	assert.Equal(t, []string{"A"}, childLabels(b.doc, b.Scope()))
}

func TestCompile_PrunesForeignNodes(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.Compile(ctx))

	stray, err := doc.CreateNode("K2")
	require.NoError(t, err)
	stray.SetLabel("K2.001")
	stray.SetParent(b.Scope())

	require.NoError(t, b.Compile(ctx))
	assert.Equal(t, []string{"A"}, childLabels(doc, b.Scope()))
}

func TestCompile_UnscopedFrameIsForeign(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")
	require.NoError(t, b.AddNode("A", "K1"))

	frame, err := doc.CreateNode(document.KindFrame)
	require.NoError(t, err)
	frame.SetLabel("F")
	frame.SetParent(b.Scope())

	for range 3 {
		require.NoError(t, b.Compile(ctx))
		assert.Equal(t, []string{"A"}, childLabels(doc, b.Scope()))
	}
	_, ok := b.Node("F")
	assert.False(t, ok)
}

func TestCompile_PortSelection(t *testing.T) {
	testCases := []struct {
		name string
		opts []LinkOption
		want string
	}{
		{name: "defaults pick the first sockets", want: "M:o0->S:in"},
		{name: "negative index picks the last output", opts: []LinkOption{FromPortIndex(-1)}, want: "M:o2->S:in"},
		{name: "by name", opts: []LinkOption{FromPort("o1"), ToPort("in")}, want: "M:o1->S:in"},
		{name: "explicit default name", opts: []LinkOption{FromPort(DefaultPort), ToPort(DefaultPort)}, want: "M:o0->S:in"},
		{name: "by index", opts: []LinkOption{FromPortIndex(1), ToPortIndex(0)}, want: "M:o1->S:in"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := newTestDoc(t)
			b := newTestBuilder(t, doc, "main")
			require.NoError(t, b.AddNode("M", "Multi"))
			require.NoError(t, b.AddNode("S", "Sink"))
			require.NoError(t, b.Link(NodeID("M"), NodeID("S"), tc.opts...))
			require.NoError(t, b.Compile(context.Background()))
			assert.Equal(t, []string{tc.want}, linkStrings(doc))
		})
	}
}

func TestCompile_PassthroughUsesSingleSocket(t *testing.T) {
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.AddNode("R", document.KindPassthrough))
	require.NoError(t, b.Link(NodeID("A"), NodeID("R"), ToPort("whatever")))
	require.NoError(t, b.Compile(context.Background()))
	assert.Equal(t, []string{"A:out->R:Input"}, linkStrings(doc))
}

func TestCompile_ResolutionErrors(t *testing.T) {
	testCases := []struct {
		name     string
		link     func(b *GraphBuilder) error
		wantErr  error
		wantKind string
	}{
		{
			name:    "unknown identifier",
			link:    func(b *GraphBuilder) error { return b.Link(NodeID("A"), NodeID("ghost")) },
			wantErr: ErrUnknownIdentifier,
		},
		{
			name:     "unknown port name",
			link:     func(b *GraphBuilder) error { return b.Link(NodeID("A"), NodeID("B"), ToPort("nope")) },
			wantErr:  ErrUnknownPort,
			wantKind: "K2",
		},
		{
			name:     "index out of range",
			link:     func(b *GraphBuilder) error { return b.Link(NodeID("A"), NodeID("B"), FromPortIndex(5)) },
			wantErr:  ErrUnknownPort,
			wantKind: "K1",
		},
		{
			name:     "node without outputs",
			link:     func(b *GraphBuilder) error { return b.Link(NodeID("S"), NodeID("B")) },
			wantErr:  ErrUnknownPort,
			wantKind: "Sink",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBuilder(t, newTestDoc(t), "main")
			require.NoError(t, b.AddNode("A", "K1"))
			require.NoError(t, b.AddNode("B", "K2"))
			require.NoError(t, b.AddNode("S", "Sink"))
			require.NoError(t, tc.link(b))

			err := b.Compile(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrResolution)
			assert.ErrorIs(t, err, tc.wantErr)

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, "main", resErr.Scope)
			assert.Equal(t, tc.wantKind, resErr.Kind)
			assert.False(t, b.Compiled())
		})
	}
}

func TestCompile_UnknownKindIsResolutionError(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("X", "NoSuchKind"))

	err := b.Compile(context.Background())
	assert.ErrorIs(t, err, ErrResolution)
	assert.ErrorIs(t, err, memdoc.ErrUnknownKind)
}

func TestCompile_PartialFailureConverges(t *testing.T) {
	ctx := context.Background()
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.AddNode("B", "K2"))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B")))
	require.NoError(t, b.Link(NodeID("A"), NodeID("ghost")))

	require.Error(t, b.Compile(ctx))
	assert.False(t, b.Compiled())
	assert.Equal(t, []string{"A:out->B:in"}, linkStrings(doc), "links made before the failure stay")

	assert.Equal(t, 1, b.Unlink(NodeID("A"), NodeID("ghost")))
	require.NoError(t, b.Compile(ctx))
	assert.True(t, b.Compiled())
	assert.Equal(t, []string{"A:out->B:in"}, linkStrings(doc))
}

func TestCompile_UnknownDeclaredKeysAreSkipped(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("A", "K2",
		WithProperties(map[string]cty.Value{"nope": cty.True, "Q": cty.NumberIntVal(3)}),
		WithInputDefaults(map[string]cty.Value{"missing": cty.NumberIntVal(1), "1": cty.NumberIntVal(9)}),
	))
	require.NoError(t, b.Compile(context.Background()))

	a := mustNode(t, b, "A")
	assert.True(t, mustProperty(t, a, "Q").RawEquals(cty.NumberIntVal(3)))
	v, err := a.Inputs()[1].Default()
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.NumberIntVal(9)), "decimal keys address sockets by index")
}

func TestCompile_Layout(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.AddNode("B", "K2"))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B")))
	require.NoError(t, b.Compile(context.Background()))

	// Levels {A:1, B:0}: B spans [-100, 0], A spans [-280, -140].
	assert.Equal(t, 340.0, b.Width())
	assert.Equal(t, 260.0, b.Height())
	assert.Equal(t, document.Vector{X: 30, Y: -30}, mustNode(t, b, "A").Position())
	assert.Equal(t, document.Vector{X: 210, Y: -30}, mustNode(t, b, "B").Position())
	assert.Equal(t, document.Vector{X: 340, Y: 260}, b.Scope().Dimensions())
}

func TestCompile_WithoutLayout(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.Compile(context.Background(), WithoutLayout()))

	assert.True(t, b.Compiled())
	assert.Empty(t, b.Levels())
	assert.Zero(t, b.Width())
	assert.Equal(t, document.Vector{}, mustNode(t, b, "A").Position())
}

func TestCompile_ReentrancyIsConfigurationError(t *testing.T) {
	doc := newTestDoc(t)
	a := newTestBuilder(t, doc, "a")
	c := newTestBuilder(t, doc, "c")

	require.NoError(t, a.AddNode("X", "K1"))
	require.NoError(t, a.Link(Start, NodeID("X")))
	require.NoError(t, a.Link(NodeID("X"), c))

	require.NoError(t, c.AddNode("Y", "K1"))
	require.NoError(t, c.Link(Start, NodeID("Y")))
	require.NoError(t, c.Link(NodeID("Y"), a))

	err := a.Compile(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.False(t, a.Compiled())
}
