package memdoc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/framegraph/internal/document"
	"github.com/zclconf/go-cty/cty"
)

func mathSchema() Schema {
	return Schema{
		Kind:  "Math",
		Width: 140,
		Properties: []PropertySpec{
			{Name: "operation", Default: cty.StringVal("ADD")},
			{Name: "type_id", Default: cty.StringVal("math"), ReadOnly: true},
		},
		Inputs: []SocketSpec{
			{Name: "a", Default: cty.NumberIntVal(0)},
			{Name: "b", Default: cty.NumberIntVal(0)},
		},
		Outputs: []SocketSpec{{Name: "value"}},
	}
}

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	d, err := New(WithKinds(mathSchema()))
	require.NoError(t, err)
	return d
}

func TestCreateNode(t *testing.T) {
	d := newTestDocument(t)

	n, err := d.CreateNode("Math")
	require.NoError(t, err)
	assert.Equal(t, "Math", n.Kind())
	assert.Equal(t, document.Vector{X: 140}, n.Dimensions())
	assert.Len(t, n.Inputs(), 2)
	assert.Len(t, n.Outputs(), 1)
	assert.Equal(t, []string{"operation"}, n.MutableProperties())

	_, err = d.CreateNode("Nope")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegisterKind_RejectsBuiltins(t *testing.T) {
	d := newTestDocument(t)
	assert.Error(t, d.RegisterKind(Schema{Kind: document.KindFrame}))
	assert.Error(t, d.RegisterKind(Schema{}))
	assert.Contains(t, d.Kinds(), "Math")
}

func TestProperties(t *testing.T) {
	d := newTestDocument(t)
	n, err := d.CreateNode("Math")
	require.NoError(t, err)

	v, err := n.Property("operation")
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.StringVal("ADD")))

	require.NoError(t, n.SetProperty("operation", cty.StringVal("MULTIPLY")))
	v, _ = n.Property("operation")
	assert.True(t, v.RawEquals(cty.StringVal("MULTIPLY")))

	assert.ErrorIs(t, n.SetProperty("missing", cty.True), document.ErrUnknownProperty)
	assert.Error(t, n.SetProperty("type_id", cty.StringVal("x")))
	assert.Error(t, n.SetProperty("operation", cty.EmptyObjectVal), "objects do not convert to string")
}

func TestFrameColorAcceptsTuple(t *testing.T) {
	d := newTestDocument(t)
	frame, err := d.CreateNode(document.KindFrame)
	require.NoError(t, err)

	tuple := cty.TupleVal([]cty.Value{cty.NumberFloatVal(0.1), cty.NumberFloatVal(0.2), cty.NumberFloatVal(0.3), cty.NumberFloatVal(1)})
	require.NoError(t, frame.SetProperty("color", tuple))

	got, err := frame.Property("color")
	require.NoError(t, err)
	assert.True(t, got.Type().Equals(cty.List(cty.Number)))
	assert.Equal(t, 4, got.LengthInt())
}

func TestPortDefaults(t *testing.T) {
	d := newTestDocument(t)
	n, _ := d.CreateNode("Math")

	in := n.Inputs()[1]
	assert.True(t, in.HasDefault())
	require.NoError(t, in.SetDefault(cty.NumberIntVal(7)))
	v, err := in.Default()
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.NumberIntVal(7)))

	require.NoError(t, in.SetDefault(cty.StringVal("3")), "numeric strings convert")
	v, _ = in.Default()
	assert.True(t, v.RawEquals(cty.NumberIntVal(3)))

	out := n.Outputs()[0]
	assert.False(t, out.HasDefault())
	assert.ErrorIs(t, out.SetDefault(cty.True), document.ErrNoDefault)
	_, err = out.Default()
	assert.ErrorIs(t, err, document.ErrNoDefault)
}

func TestLinks(t *testing.T) {
	d := newTestDocument(t)
	a, _ := d.CreateNode("Math")
	a.SetLabel("A")
	b, _ := d.CreateNode("Math")
	b.SetLabel("B")
	c, _ := d.CreateNode("Math")
	c.SetLabel("C")

	t.Run("direction is enforced", func(t *testing.T) {
		_, err := d.CreateLink(a.Inputs()[0], b.Inputs()[0])
		assert.Error(t, err)
		_, err = d.CreateLink(a.Outputs()[0], b.Outputs()[0])
		assert.Error(t, err)
	})

	t.Run("input holds a single link", func(t *testing.T) {
		d.ResetJournal()
		_, err := d.CreateLink(a.Outputs()[0], c.Inputs()[0])
		require.NoError(t, err)
		_, err = d.CreateLink(b.Outputs()[0], c.Inputs()[0])
		require.NoError(t, err)

		links := d.Links()
		require.Len(t, links, 1)
		assert.Equal(t, "B", links[0].From().Node().Label())

		want := []Event{
			{Op: OpCreateLink, Subject: "A:value->C:a"},
			{Op: OpRemoveLink, Subject: "A:value->C:a"},
			{Op: OpCreateLink, Subject: "B:value->C:a"},
		}
		if diff := cmp.Diff(want, d.Journal()); diff != "" {
			t.Errorf("journal mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("removing a node removes its links first", func(t *testing.T) {
		d.ResetJournal()
		require.NoError(t, d.RemoveNode(c))
		assert.Empty(t, d.Links())
		want := []Event{
			{Op: OpRemoveLink, Subject: "B:value->C:a"},
			{Op: OpRemoveNode, Subject: "C"},
		}
		if diff := cmp.Diff(want, d.Journal()); diff != "" {
			t.Errorf("journal mismatch (-want +got):\n%s", diff)
		}
		assert.ErrorIs(t, d.RemoveNode(c), document.ErrStaleHandle)
		_, err := d.CreateLink(a.Outputs()[0], c.Inputs()[0])
		assert.ErrorIs(t, err, document.ErrStaleHandle)
	})

	t.Run("remove link", func(t *testing.T) {
		l, err := d.CreateLink(a.Outputs()[0], b.Inputs()[1])
		require.NoError(t, err)
		require.NoError(t, d.RemoveLink(l))
		assert.ErrorIs(t, d.RemoveLink(l), document.ErrStaleHandle)
	})
}

func TestHierarchy(t *testing.T) {
	d := newTestDocument(t)
	frame, _ := d.CreateNode(document.KindFrame)
	frame.SetLabel("main")
	child, _ := d.CreateNode("Math")
	child.SetLabel("A")
	child.SetParent(frame)

	assert.Nil(t, frame.Parent())
	assert.Equal(t, frame, child.Parent())
	assert.Equal(t, []document.Node{child}, d.ListChildren(frame))
	assert.Equal(t, []document.Node{frame}, d.ListChildren(nil))

	found, ok := d.Lookup(frame, "A")
	require.True(t, ok)
	assert.Equal(t, child, found)

	require.NoError(t, d.RemoveNode(frame))
	assert.Nil(t, child.Parent(), "children of a removed frame move to the root")
}

func TestFindScope_CacheInvalidation(t *testing.T) {
	d := newTestDocument(t)
	frame, _ := d.CreateNode(document.KindFrame)
	frame.SetLabel("main")

	found, ok := d.FindScope("main")
	require.True(t, ok)
	assert.Equal(t, frame, found)

	frame.SetLabel("renamed")
	_, ok = d.FindScope("main")
	assert.False(t, ok, "relabeling must invalidate the cached entry")
	found, ok = d.FindScope("renamed")
	require.True(t, ok)
	assert.Equal(t, frame, found)

	require.NoError(t, d.RemoveNode(frame))
	_, ok = d.FindScope("renamed")
	assert.False(t, ok)

	other, _ := d.CreateNode("Math")
	other.SetLabel("renamed")
	_, ok = d.FindScope("renamed")
	assert.False(t, ok, "only frames are scopes")
}

func TestMeta(t *testing.T) {
	d := newTestDocument(t)
	n, _ := d.CreateNode(document.KindFrame)
	_, ok := n.Meta("id")
	assert.False(t, ok)
	n.SetMeta("id", "abc")
	v, ok := n.Meta("id")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
}

func TestNew_InvalidCacheSize(t *testing.T) {
	_, err := New(WithScopeCacheSize(0))
	assert.Error(t, err)
}
