package instancemgr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/testutil"
)

type hookRecorder struct {
	initialized []formtree.NodeID
	reindexed   []formtree.NodeID
}

func (h *hookRecorder) RunNodeInitialize(_ context.Context, node formtree.NodeID) {
	h.initialized = append(h.initialized, node)
}

func (h *hookRecorder) RunSubformIndexChange(_ context.Context, node formtree.NodeID) {
	h.reindexed = append(h.reindexed, node)
}

type fixture struct {
	ctx    context.Context
	doc    *formdoc.Document
	mgr    *Manager
	im     formtree.NodeID
	hooks  *hookRecorder
	layout *host.Recorder
}

// newFixture merges a form with a repeatable "items" subform holding a
// "price" field against one data group per price.
func newFixture(t *testing.T, occur *formtree.Occur, prices ...string) *fixture {
	t.Helper()
	ctx, _ := testutil.Context(t)

	b := testutil.NewTemplate("order")
	items := b.Subform(b.Root, "items", occur)
	b.Field(items, "price", "")
	b.Field(b.Root, "total", "")

	var sb strings.Builder
	if len(prices) > 0 {
		sb.WriteString("items:\n")
		for _, p := range prices {
			sb.WriteString("  - price: \"" + p + "\"\n")
		}
	}
	sb.WriteString("total: \"\"\n")
	data, err := databind.DecodeYAML(strings.NewReader(sb.String()), "order")
	require.NoError(t, err)

	doc, err := formdoc.Merge(ctx, b.Tree, b.Root, data)
	require.NoError(t, err)
	im, err := doc.InstanceManager(doc.Root, "items")
	require.NoError(t, err)

	f := &fixture{ctx: ctx, doc: doc, im: im, hooks: &hookRecorder{}, layout: &host.Recorder{}}
	f.mgr = New(doc, WithInitializer(f.hooks), WithIndexChanger(f.hooks), WithLayout(f.layout))
	return f
}

// formPrices lists the price of every instance in run order.
func (f *fixture) formPrices() []string {
	var out []string
	for _, it := range f.mgr.Items(f.im) {
		out = append(out, f.doc.RawValue(f.doc.Form.FindChild(it, "price", 0)))
	}
	return out
}

// dataPrices lists the price of every "items" data group in data order.
func (f *fixture) dataPrices() []string {
	var out []string
	root := f.doc.Data.Root()
	for _, c := range f.doc.Data.Children(root) {
		if f.doc.Data.Node(c).Name != "items" {
			continue
		}
		p := f.doc.Data.FindChild(c, "price", 0)
		out = append(out, f.doc.Data.Node(p).Value)
	}
	return out
}

func (f *fixture) setPrice(t *testing.T, inst formtree.NodeID, v string) {
	t.Helper()
	price := f.doc.Form.FindChild(inst, "price", 0)
	require.NotEqual(t, formtree.None, price)
	f.doc.SetValue(price, v)
}

func TestManager_AddInstanceRespectsMax(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, testutil.Occur(1, 3, 1))
	require.Equal(t, 1, f.mgr.Count(f.im))

	// --- Act ---
	first, err := f.mgr.AddInstance(f.ctx, f.im, true)
	require.NoError(t, err)
	_, err = f.mgr.AddInstance(f.ctx, f.im, true)
	require.NoError(t, err)
	_, err = f.mgr.AddInstance(f.ctx, f.im, true)

	// --- Assert ---
	assert.ErrorIs(t, err, ErrTooManyOccurrences)
	var occErr *OccurrenceError
	require.ErrorAs(t, err, &occErr)
	assert.Equal(t, BoundMax, occErr.Bound)
	assert.Equal(t, 3, f.mgr.Count(f.im))
	assert.Equal(t, first, f.mgr.Item(f.im, 1))
	assert.Len(t, f.hooks.initialized, 2)
	assert.Len(t, f.layout.Signals(), 2, "failed operations emit no signal")
	assert.Len(t, f.dataPrices(), 3)
}

func TestManager_AddUnboundInstanceCreatesNoData(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Occur(0, -1, 0), "1")

	inst, err := f.mgr.AddInstance(f.ctx, f.im, false)
	require.NoError(t, err)

	assert.Equal(t, databind.None, f.doc.Bind.BoundData(inst))
	assert.Equal(t, []string{"1"}, f.dataPrices())
	assert.Equal(t, 2, f.mgr.Count(f.im))
}

func TestManager_InsertInstanceReordersData(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, testutil.Occur(0, -1, 0), "a", "b")

	// --- Act ---
	inst, err := f.mgr.InsertInstance(f.ctx, f.im, 0, true)
	require.NoError(t, err)
	f.setPrice(t, inst, "new")

	// --- Assert ---
	assert.Equal(t, []string{"new", "a", "b"}, f.formPrices())
	assert.Equal(t, []string{"new", "a", "b"}, f.dataPrices())
	signals := f.layout.Signals()
	require.NotEmpty(t, signals)
	assert.Equal(t, host.SignalDataReordered, signals[0].Kind)
	assert.Equal(t, host.SignalContainerChanged, signals[len(signals)-1].Kind)
}

func TestManager_InsertInstanceRejectsBadIndex(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Occur(0, -1, 0), "a")

	_, err := f.mgr.InsertInstance(f.ctx, f.im, 2, true)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	_, err = f.mgr.InsertInstance(f.ctx, f.im, -1, true)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)

	_, err = f.mgr.InsertInstance(f.ctx, f.im, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ""}, f.formPrices())
}

func TestManager_MoveInstanceKeepsDataInStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "first to last", from: 0, to: 2, want: []string{"b", "c", "a"}},
		{name: "last to first", from: 2, to: 0, want: []string{"c", "a", "b"}},
		{name: "middle down", from: 1, to: 2, want: []string{"a", "c", "b"}},
		{name: "same index", from: 1, to: 1, want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			f := newFixture(t, testutil.Occur(0, -1, 0), "a", "b", "c")

			// --- Act ---
			err := f.mgr.MoveInstance(f.ctx, f.im, tt.from, tt.to)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.formPrices())
			assert.Equal(t, tt.want, f.dataPrices())
		})
	}
}

func TestManager_MoveInstanceReindexesBothEnds(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Occur(0, -1, 0), "a", "b", "c")

	require.NoError(t, f.mgr.MoveInstance(f.ctx, f.im, 0, 2))

	assert.Equal(t, []formtree.NodeID{f.mgr.Item(f.im, 2), f.mgr.Item(f.im, 0)}, f.hooks.reindexed)

	err := f.mgr.MoveInstance(f.ctx, f.im, 0, 3)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestManager_RemoveInstance(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, testutil.Occur(1, -1, 0), "a", "b", "c")
	removed := f.mgr.Item(f.im, 1)
	removedData := f.doc.Bind.BoundData(removed)

	// --- Act ---
	require.NoError(t, f.mgr.RemoveInstance(f.ctx, f.im, 1))

	// --- Assert ---
	assert.Equal(t, []string{"a", "c"}, f.formPrices())
	assert.Equal(t, []string{"a", "c"}, f.dataPrices())
	assert.False(t, f.doc.Alive(removed))
	assert.False(t, f.doc.Data.Attached(removedData))
	assert.Equal(t, []formtree.NodeID{f.mgr.Item(f.im, 1)}, f.hooks.reindexed)

	require.NoError(t, f.mgr.RemoveInstance(f.ctx, f.im, 1))
	err := f.mgr.RemoveInstance(f.ctx, f.im, 0)
	assert.ErrorIs(t, err, ErrTooManyOccurrences)
	assert.Equal(t, 1, f.mgr.Count(f.im))

	err = f.mgr.RemoveInstance(f.ctx, f.im, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
}

func TestManager_SetInstances(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t, testutil.Occur(0, 5, 0), "a", "b", "c")

	// --- Act / Assert: shrink ---
	require.NoError(t, f.mgr.SetInstances(f.ctx, f.im, 1))
	assert.Equal(t, []string{"a"}, f.formPrices())
	assert.Equal(t, []string{"a"}, f.dataPrices())

	// --- Act / Assert: grow ---
	require.NoError(t, f.mgr.SetInstances(f.ctx, f.im, 4))
	assert.Equal(t, 4, f.mgr.Count(f.im))
	assert.Len(t, f.dataPrices(), 4)
	assert.Len(t, f.hooks.initialized, 3)

	// --- Act / Assert: bounds ---
	err := f.mgr.SetInstances(f.ctx, f.im, 6)
	var occErr *OccurrenceError
	require.ErrorAs(t, err, &occErr)
	assert.Equal(t, BoundMax, occErr.Bound)
	assert.Equal(t, 4, f.mgr.Count(f.im))

	signals := len(f.layout.Signals())
	require.NoError(t, f.mgr.SetInstances(f.ctx, f.im, 4))
	assert.Len(t, f.layout.Signals(), signals, "no-op emits no signal")

	require.NoError(t, f.mgr.SetInstances(f.ctx, f.im, 0))
	assert.Zero(t, f.mgr.Count(f.im))
	assert.Empty(t, f.dataPrices())
}

func TestManager_CountStopsAtForeignRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testutil.Occur(0, -1, 0), "a", "b")
	other := f.doc.Form.Add(formtree.Node{Element: formtree.ElementSubform, Name: "rows"})
	require.NoError(t, f.doc.Form.InsertAfter(f.doc.Root, other, f.mgr.Item(f.im, 0)))

	assert.Equal(t, 1, f.mgr.Count(f.im), "a differently named subform ends the run")

	lone := f.doc.Form.Add(formtree.Node{Element: formtree.ElementInstanceManager, Name: "_rows"})
	require.NoError(t, f.doc.Form.InsertAfter(f.doc.Root, lone, f.im))
	assert.Zero(t, f.mgr.Count(lone), "the first instance must carry the manager's name")
}
