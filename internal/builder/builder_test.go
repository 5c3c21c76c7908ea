package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/document"
	"github.com/zclconf/go-cty/cty"
)

func TestNew_CreatesScope(t *testing.T) {
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")

	scope, ok := doc.FindScope("main")
	require.True(t, ok)
	assert.Equal(t, scope, b.Scope())
	assert.Equal(t, document.KindFrame, scope.Kind())
	assert.NotEmpty(t, b.ScopeID())
	id, _ := scope.Meta(MetaScopeID)
	assert.Equal(t, b.ScopeID(), id)
	assert.False(t, b.Compiled())
}

func TestNew_ReusesScopeAndID(t *testing.T) {
	doc := newTestDoc(t)
	first := newTestBuilder(t, doc, "main")
	second := newTestBuilder(t, doc, "main")

	assert.Equal(t, first.Scope(), second.Scope())
	assert.Equal(t, first.ScopeID(), second.ScopeID())
}

func TestNew_Errors(t *testing.T) {
	doc := newTestDoc(t)

	_, err := New(context.Background(), doc, "  ")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(context.Background(), nil, "main")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNew_WithColor(t *testing.T) {
	doc := newTestDoc(t)
	color := cty.TupleVal([]cty.Value{cty.NumberFloatVal(0.2), cty.NumberFloatVal(0.4), cty.NumberFloatVal(0.8), cty.NumberIntVal(1)})
	b := newTestBuilder(t, doc, "main", WithColor(color))

	got := mustProperty(t, b.Scope(), "color")
	assert.True(t, got.Type().IsListType())
	assert.Equal(t, 4, got.LengthInt())
	assert.True(t, mustProperty(t, b.Scope(), "use_custom_color").True())
}

func TestAddNode(t *testing.T) {
	testCases := []struct {
		name    string
		id      string
		kind    string
		wantErr bool
	}{
		{name: "valid", id: "A", kind: "K1"},
		{name: "empty identifier", id: "", kind: "K1", wantErr: true},
		{name: "blank identifier", id: "   ", kind: "K1", wantErr: true},
		{name: "identifier with separator", id: "a.b", kind: "K1", wantErr: true},
		{name: "empty kind", id: "A", kind: "", wantErr: true},
		{name: "frame kind", id: "F", kind: document.KindFrame, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBuilder(t, newTestDoc(t), "main")
			err := b.AddNode(tc.id, tc.kind)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "main", cfgErr.Scope)
		})
	}
}

func TestAddNode_Generations(t *testing.T) {
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")

	require.NoError(t, b.AddNode("A", "K1"))
	err := b.AddNode("A", "K2")
	require.Error(t, err, "same identifier twice in one generation")
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "A", cfgErr.ID)

	require.NoError(t, b.Compile(context.Background()))

	require.NoError(t, b.AddNode("A", "K2"), "a new generation may update the declaration")
	decls := b.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, "K2", decls[0].Kind)
}

func TestAddNode_CopiesMaps(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	props := map[string]cty.Value{"P": cty.StringVal("x")}
	require.NoError(t, b.AddNode("A", "K1", WithProperties(props)))

	props["P"] = cty.StringVal("mutated")
	assert.Equal(t, "x", b.Declarations()[0].Properties["P"].AsString())
}

func TestRemoveNode(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.AddNode("A", "K1"))
	require.NoError(t, b.AddNode("B", "K2"))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B")))
	require.NoError(t, b.Link(Start, NodeID("A"), FromPort("x")))

	assert.True(t, b.RemoveNode("B"))
	assert.False(t, b.RemoveNode("B"))
	assert.Len(t, b.Declarations(), 1)
	require.Len(t, b.Links(), 1, "links referencing the removed node go with it")
	assert.Equal(t, Start, b.Links()[0].Source)

	require.NoError(t, b.AddNode("B", "K2"), "a removed identifier can be declared again")
}

func TestLink_Errors(t *testing.T) {
	doc := newTestDoc(t)
	b := newTestBuilder(t, doc, "main")

	testCases := []struct {
		name   string
		source Endpoint
		target Endpoint
	}{
		{name: "END as source", source: End, target: NodeID("A")},
		{name: "START as target", source: NodeID("A"), target: Start},
		{name: "nil source", source: nil, target: NodeID("A")},
		{name: "invalid identifier", source: NodeID("a.b"), target: NodeID("A")},
		{name: "unknown sentinel", source: Sentinel(42), target: NodeID("A")},
		{name: "builder nested in itself", source: NodeID("A"), target: b},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := b.Link(tc.source, tc.target)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
	assert.Empty(t, b.Links(), "rejected links are not queued")
	assert.Empty(t, doc.Links(), "declaration errors never touch the document")
}

func TestUnlink(t *testing.T) {
	b := newTestBuilder(t, newTestDoc(t), "main")
	require.NoError(t, b.Link(NodeID("A"), NodeID("B")))
	require.NoError(t, b.Link(NodeID("A"), NodeID("B"), ToPort("aux")))
	require.NoError(t, b.Link(NodeID("B"), NodeID("A")))

	assert.Equal(t, 2, b.Unlink(NodeID("A"), NodeID("B")))
	assert.Equal(t, 0, b.Unlink(NodeID("A"), NodeID("B")))
	require.Len(t, b.Links(), 1)
	assert.Equal(t, NodeID("B"), b.Links()[0].Source)
}

func TestPortRef(t *testing.T) {
	assert.True(t, PortRef{}.IsDefault())
	assert.True(t, Port(DefaultPort).IsDefault())
	assert.False(t, Port("in").IsDefault())
	assert.False(t, PortIndex(0).IsDefault())

	i, ok := PortIndex(-1).Index()
	assert.True(t, ok)
	assert.Equal(t, -1, i)

	assert.Equal(t, `"Default"`, PortRef{}.String())
	assert.Equal(t, "[-1]", PortIndex(-1).String())
	assert.Equal(t, "START", Start.String())
	assert.Equal(t, "END", End.String())
}
