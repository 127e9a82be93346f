package databind

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/formtree"
)

const packet = `
customer:
  name: Ada
items:
  - price: "10"
    qty: "2"
  - price: "5"
    qty: ~
note: hello
`

func TestDecodeYAML_BuildsOrderedTree(t *testing.T) {
	t.Parallel()

	// --- Act ---
	tr, err := DecodeYAML(strings.NewReader(packet), "data")

	// --- Assert ---
	require.NoError(t, err)
	kids := tr.Children(tr.Root())
	require.Len(t, kids, 4)
	assert.Equal(t, "customer", tr.Node(kids[0]).Name)
	assert.Equal(t, "items", tr.Node(kids[1]).Name)
	assert.Equal(t, "items", tr.Node(kids[2]).Name)
	assert.Equal(t, "note", tr.Node(kids[3]).Name)

	second := tr.FindChild(tr.Root(), "items", 1)
	require.Equal(t, kids[2], second)
	qty := tr.FindChild(second, "qty", 0)
	assert.Equal(t, KindValue, tr.Node(qty).Kind)
	assert.Empty(t, tr.Node(qty).Value, "null scalars decode as empty values")
	assert.Equal(t, "items[1].qty[0]", tr.Path(qty))
	assert.True(t, tr.Attached(qty))
}

func TestDecodeYAML_RejectsNonMapping(t *testing.T) {
	t.Parallel()

	_, err := DecodeYAML(strings.NewReader("- a\n- b\n"), "data")
	assert.Error(t, err)

	tr, err := DecodeYAML(strings.NewReader(""), "data")
	require.NoError(t, err)
	assert.Empty(t, tr.Children(tr.Root()))
}

func TestEncodeYAML_GroupsSameNamedSiblings(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tr, err := DecodeYAML(strings.NewReader(packet), "data")
	require.NoError(t, err)
	first := tr.FindChild(tr.Root(), "items", 0)
	tr.Detach(first)
	require.NoError(t, tr.Append(tr.Root(), first))

	// --- Act ---
	var buf bytes.Buffer
	require.NoError(t, tr.EncodeYAML(&buf))

	// --- Assert ---
	again, err := DecodeYAML(&buf, "data")
	require.NoError(t, err)
	items := again.FindChild(again.Root(), "items", 0)
	assert.Equal(t, "5", again.Node(again.FindChild(items, "price", 0)).Value)
	items = again.FindChild(again.Root(), "items", 1)
	assert.Equal(t, "10", again.Node(again.FindChild(items, "price", 0)).Value)
}

func TestTree_InsertBeforeAndDetach(t *testing.T) {
	t.Parallel()

	tr := NewTree("data")
	a := tr.Add(KindValue, "a", "1")
	b := tr.Add(KindValue, "b", "2")
	c := tr.Add(KindValue, "c", "3")
	require.NoError(t, tr.Append(tr.Root(), a))
	require.NoError(t, tr.Append(tr.Root(), c))
	require.NoError(t, tr.InsertBefore(tr.Root(), b, c))

	assert.Equal(t, []DataID{a, b, c}, tr.Children(tr.Root()))
	assert.Equal(t, c, tr.NextSibling(b))
	assert.Error(t, tr.Append(tr.Root(), b), "attached nodes cannot be inserted twice")

	tr.Detach(b)
	assert.False(t, tr.Attached(b))
	assert.Equal(t, None, tr.NextSibling(c))
	assert.ErrorIs(t, tr.Append(tr.Root(), DataID(42)), ErrNoSuchData)
}

func TestIndex_UnbindReportsOrphans(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	x := NewIndex()
	shared, own := DataID(1), DataID(2)
	f1, f2 := formtree.NodeID(10), formtree.NodeID(11)
	x.Bind(f1, shared)
	x.Bind(f1, shared)
	x.Bind(f1, own)
	x.Bind(f2, shared)

	// --- Act ---
	orphans := x.Unbind(f1)

	// --- Assert ---
	assert.Equal(t, []DataID{own}, orphans)
	assert.Equal(t, []formtree.NodeID{f2}, x.BindItems(shared))
	assert.Equal(t, None, x.BoundData(f1))
	assert.Equal(t, shared, x.BoundData(f2))

	assert.Equal(t, []DataID{shared}, x.Unbind(f2))
	assert.Empty(t, x.BindItems(shared))
}
