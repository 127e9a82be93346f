package docview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/hclscript"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/script"
	"github.com/vk/formrun/internal/testutil"
)

type fixture struct {
	ctx    context.Context
	view   *View
	doc    *formdoc.Document
	policy *host.AutoPolicy
	layout *host.Recorder
	funcs  *registry.Registry
}

// newFixture builds a purchase form:
//
//	form purchase
//	  subform items[1..5]  (indexChange bumps hits)
//	    field price
//	    field total  = coalesce(price, 0) * 2
//	  field grand    = sum("items[*].total")
//	  field count    = instance_count("items")
//	  field name     (null test: error)
//	  field hits
//	  field note     (docClose writes "closed")
//
// merged with two items priced 10 and 5, and runs StartLayout.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, _ := testutil.Context(t)

	b := testutil.NewTemplate("purchase")
	items := b.Subform(b.Root, "items", testutil.Occur(1, 5, 1))
	b.Event(items, activity.IndexChange, hclscript.Language, `set_value("hits", coalesce(hits, 0) + 1)`)
	b.Field(items, "price", "")
	total := b.Field(items, "total", "")
	b.Calc(total, hclscript.Language, "coalesce(price, 0) * 2")
	grand := b.Field(b.Root, "grand", "")
	b.Calc(grand, hclscript.Language, `sum("items[*].total")`)
	count := b.Field(b.Root, "count", "")
	b.Calc(count, hclscript.Language, `instance_count("items")`)
	name := b.Field(b.Root, "name", "")
	b.Validate(name).NullTest = formtree.TestError
	b.Field(b.Root, "hits", "")
	b.Field(b.Root, "note", "")
	b.Event(b.Root, activity.DocClose, hclscript.Language, `set_value("note", "closed")`)

	data, err := databind.DecodeYAML(strings.NewReader("items:\n  - price: \"10\"\n  - price: \"5\"\n"), "purchase")
	require.NoError(t, err)
	doc, err := formdoc.Merge(ctx, b.Tree, b.Root, data)
	require.NoError(t, err)

	f := &fixture{
		ctx:    ctx,
		doc:    doc,
		policy: host.NewAutoPolicy(),
		layout: &host.Recorder{},
		funcs:  registry.New(),
	}
	f.view = New(doc, hclscript.New(), f.policy, WithLayout(f.layout), WithRegistry(f.funcs), WithTitle("Purchase"))
	f.view.StartLayout(ctx)
	return f
}

func (f *fixture) node(t *testing.T, ref string) formtree.NodeID {
	t.Helper()
	id, err := f.doc.Resolve(f.doc.Root, ref)
	require.NoError(t, err)
	return id
}

func (f *fixture) value(t *testing.T, ref string) string {
	t.Helper()
	return f.doc.RawValue(f.node(t, ref))
}

func (f *fixture) items(t *testing.T) formtree.NodeID {
	t.Helper()
	im, err := f.doc.InstanceManager(f.doc.Root, "items")
	require.NoError(t, err)
	return im
}

func TestStartLayout(t *testing.T) {
	t.Parallel()

	// --- Arrange & Act ---
	f := newFixture(t)

	// --- Assert ---
	assert.True(t, f.view.IsReady())
	assert.Equal(t, "20", f.value(t, "items[0].total"))
	assert.Equal(t, "10", f.value(t, "items[1].total"))
	assert.Equal(t, "30", f.value(t, "grand"))
	assert.Equal(t, "2", f.value(t, "count"))
	assert.Equal(t, "2", f.value(t, "hits"), "one index change per initial instance")
	assert.Empty(t, f.policy.Messages(), "the first validation pass reports nothing")
	assert.NotEmpty(t, f.layout.Signals())
	assert.False(t, f.view.IsUpdateLocked())
}

func TestSetValue_PropagatesThroughDependencies(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)

	// --- Act ---
	err := f.view.SetValue(f.ctx, f.node(t, "items[1].price"), "7")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "14", f.value(t, "items[1].total"))
	assert.Equal(t, "34", f.value(t, "grand"))
	assert.Equal(t, "7", f.doc.Data.Node(f.doc.Bind.BoundData(f.node(t, "items[1].price"))).Value)
}

// countingEngine counts evaluations per source text.
type countingEngine struct {
	inner script.Engine
	calls map[string]int
}

func (c *countingEngine) Evaluate(ctx context.Context, src formtree.Script, scope script.Scope) (script.Value, error) {
	c.calls[src.Source]++
	return c.inner.Evaluate(ctx, src, scope)
}

func TestSetValue_EvaluatesDependentOnce(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	b := testutil.NewTemplate("f")
	b.Calc(b.Field(b.Root, "a", ""), hclscript.Language, "coalesce(b, 0) * 2")
	b.Field(b.Root, "b", "")
	doc, err := formdoc.Merge(ctx, b.Tree, b.Root, databind.NewTree("f"))
	require.NoError(t, err)
	a, err := doc.Resolve(doc.Root, "a")
	require.NoError(t, err)
	bNode, err := doc.Resolve(doc.Root, "b")
	require.NoError(t, err)
	scripts := &countingEngine{inner: hclscript.New(), calls: map[string]int{}}
	view := New(doc, scripts, host.NewAutoPolicy())
	view.StartLayout(ctx)
	before := scripts.calls["coalesce(b, 0) * 2"]

	// --- Act ---
	err = view.SetValue(ctx, bNode, "5")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "10", doc.RawValue(a))
	assert.Equal(t, 1, scripts.calls["coalesce(b, 0) * 2"]-before)
}

func TestSetValue_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	assert.ErrorIs(t, f.view.SetValue(f.ctx, formtree.NodeID(9999), "x"), formtree.ErrNoSuchNode)
	assert.Error(t, f.view.SetValue(f.ctx, f.node(t, "items[0]"), "x"), "subforms hold no value")
}

func TestInstanceOperations_RefreshCalculations(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	im := f.items(t)

	// --- Act ---
	inst, err := f.view.AddInstance(f.ctx, im, true)
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, 3, f.view.Instances().Count(im))
	assert.Equal(t, "0", f.doc.RawValue(f.doc.Form.FindChild(inst, "total", 0)), "new instance is initialized")
	assert.Equal(t, "3", f.value(t, "count"))
	assert.Equal(t, "30", f.value(t, "grand"))
	assert.Equal(t, "3", f.value(t, "hits"))

	// The grand total now reads the new instance too.
	require.NoError(t, f.view.SetValue(f.ctx, f.doc.Form.FindChild(inst, "price", 0), "1"))
	assert.Equal(t, "32", f.value(t, "grand"))

	require.NoError(t, f.view.MoveInstance(f.ctx, im, 0, 2))
	assert.Equal(t, "5", f.value(t, "hits"), "both moved positions report an index change")

	require.NoError(t, f.view.RemoveInstance(f.ctx, im, 0))
	assert.Equal(t, "22", f.value(t, "grand"))
	assert.Equal(t, "2", f.value(t, "count"))

	require.NoError(t, f.view.SetInstances(f.ctx, im, 1))
	assert.Equal(t, "1", f.value(t, "count"))
}

func TestHostFunctions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.doc.Root
	call := func(name string, args ...script.Value) (script.Value, error) {
		return f.funcs.Call(f.ctx, root, name, args)
	}

	v, err := call("instance_count", script.Text("items"))
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())

	v, err = call("add_instance", script.Text("items"))
	require.NoError(t, err)
	assert.Equal(t, "2", v.String(), "index of the new instance")

	v, err = call("insert_instance", script.Text("items"), script.Number(0))
	require.NoError(t, err)
	assert.Equal(t, "0", v.String())
	assert.Equal(t, "4", f.value(t, "count"))
	assert.Equal(t, databind.None, f.doc.Bind.BoundData(f.node(t, "items[0]")), "insert_instance does not bind by default")

	_, err = call("remove_instance", script.Text("items"), script.Number(0))
	require.NoError(t, err)
	_, err = call("move_instance", script.Text("items"), script.Number(0), script.Number(1))
	require.NoError(t, err)
	assert.Equal(t, "10", f.value(t, "items[0].total"))

	_, err = call("set_value", script.Text("items[0].price"), script.Number(4))
	require.NoError(t, err)
	assert.Equal(t, "8", f.value(t, "items[0].total"))

	v, err = call("values", script.Text("items[*].price"), script.Text("|"))
	require.NoError(t, err)
	assert.Equal(t, "4|10|", v.String())

	v, err = call("sum", script.Text("items[*].price"), script.Text("grand"))
	require.NoError(t, err)
	assert.Equal(t, "42", v.String())

	v, err = call("exec_validate", script.Text("name"))
	require.NoError(t, err)
	assert.Equal(t, "0", v.String(), "blank name fails its null test")

	_, err = call("set_instances", script.Text("items"), script.Number(9))
	assert.Error(t, err)
}

func TestHostFunctions_ParamCount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.funcs.Call(f.ctx, f.doc.Root, "add_instance", nil)
	assert.ErrorIs(t, err, registry.ErrParamCountMismatch)

	_, err = f.funcs.Call(f.ctx, f.doc.Root, "move_instance", []script.Value{script.Text("items"), script.Number(0)})
	assert.ErrorIs(t, err, registry.ErrParamCountMismatch)
}

func TestLockUpdate_DefersFlush(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	price := f.node(t, "items[0].price")

	// --- Act ---
	f.view.LockUpdate()
	f.view.LockUpdate()
	require.NoError(t, f.view.SetValue(f.ctx, price, "1"))
	assert.Equal(t, "20", f.value(t, "items[0].total"), "flush deferred while locked")

	f.view.UnlockUpdate(f.ctx)
	assert.Equal(t, "20", f.value(t, "items[0].total"), "inner unlock does not flush")

	f.view.UnlockUpdate(f.ctx)

	// --- Assert ---
	assert.False(t, f.view.IsUpdateLocked())
	assert.Equal(t, "2", f.value(t, "items[0].total"))
	assert.Equal(t, "12", f.value(t, "grand"))
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	tr := &captureTransport{}

	// --- Act ---
	err := f.view.Submit(f.ctx, tr)

	// --- Assert ---
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Nil(t, tr.packet)
	msgs := f.policy.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "name cannot be blank.\n", msgs[0].Text)
	assert.Equal(t, host.SeverityStatus, msgs[0].Severity)
	assert.Equal(t, "Purchase", msgs[0].Title)

	require.NoError(t, f.view.SetValue(f.ctx, f.node(t, "name"), "Ann"))
	require.NoError(t, f.view.Submit(f.ctx, tr))
	assert.Equal(t, DataContentType, tr.contentType)
	assert.Contains(t, string(tr.packet), "name: Ann")
	assert.Contains(t, string(tr.packet), "30")
}

func TestRunDocClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	status := f.view.RunDocClose(f.ctx)

	assert.Equal(t, activity.Success, status)
	assert.Equal(t, "closed", f.value(t, "note"))
}

func TestResetData(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.view.SetValue(f.ctx, f.node(t, "note"), "typed"))

	f.view.ResetData(f.ctx, f.node(t, "items[1]"))
	assert.Equal(t, "", f.value(t, "items[1].price"))
	assert.Equal(t, "0", f.value(t, "items[1].total"))
	assert.Equal(t, "20", f.value(t, "grand"))
	assert.Equal(t, "typed", f.value(t, "note"), "outside the reset subtree")

	f.view.ResetData(f.ctx, formtree.None)
	assert.Equal(t, "", f.value(t, "note"))
}

func TestFindSplitPoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	note := f.node(t, "note")
	n := f.doc.Form.Node(note)
	n.Value = "a\nb\nc\nd"
	n.LineHeight = 10

	h, more := f.view.FindSplitPoint(note, 0, 25)
	assert.Equal(t, 20.0, h)
	assert.True(t, more)

	h, more = f.view.FindSplitPoint(note, 1, 100)
	assert.Equal(t, 20.0, h, "two lines remain")
	assert.False(t, more)

	h, more = f.view.FindSplitPoint(note, 0, 5)
	assert.Equal(t, 0.0, h)
	assert.True(t, more, "not even one line fits")

	h, more = f.view.FindSplitPoint(f.node(t, "items[0]"), 0, 50)
	assert.Equal(t, 50.0, h)
	assert.False(t, more)

	n.UI = formtree.UICheckButton
	h, more = f.view.FindSplitPoint(note, 0, 50)
	assert.Equal(t, 0.0, h)
	assert.True(t, more)
}

type captureTransport struct {
	contentType string
	packet      []byte
}

func (c *captureTransport) Submit(_ context.Context, contentType string, packet []byte) error {
	c.contentType = contentType
	c.packet = packet
	return nil
}
