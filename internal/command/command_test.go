package command

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/databind"
	"github.com/vk/formrun/internal/docview"
	"github.com/vk/formrun/internal/event"
	"github.com/vk/formrun/internal/formdoc"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/hclscript"
	"github.com/vk/formrun/internal/host"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/testutil"
)

type capture struct {
	packet []byte
}

func (c *capture) Submit(_ context.Context, _ string, packet []byte) error {
	c.packet = packet
	return nil
}

type fixture struct {
	ctx    context.Context
	view   *docview.View
	policy *host.AutoPolicy
	out    *bytes.Buffer
	runner *Runner
	sent   *capture
}

// newFixture loads a small order form with two items priced 10 and 5. Each
// total doubles its price and grand sums the totals.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, _ := testutil.Context(t)

	b := testutil.NewTemplate("order")
	items := b.Subform(b.Root, "items", testutil.Occur(1, 5, 1))
	b.Field(items, "price", "")
	total := b.Field(items, "total", "")
	b.Calc(total, hclscript.Language, "coalesce(price, 0) * 2")
	grand := b.Field(b.Root, "grand", "")
	b.Calc(grand, hclscript.Language, `sum("items[*].total")`)
	name := b.Field(b.Root, "name", "")
	b.Validate(name).NullTest = formtree.TestError
	b.Field(b.Root, "note", "")
	b.Event(b.Root, activity.DocClose, hclscript.Language, `set_value("note", "closed")`)

	data, err := databind.DecodeYAML(strings.NewReader("items:\n  - price: \"10\"\n  - price: \"5\"\n"), "order")
	require.NoError(t, err)
	doc, err := formdoc.Merge(ctx, b.Tree, b.Root, data)
	require.NoError(t, err)

	f := &fixture{ctx: ctx, policy: host.NewAutoPolicy(), out: &bytes.Buffer{}, sent: &capture{}}
	f.view = docview.New(doc, hclscript.New(), f.policy, docview.WithRegistry(registry.New()))
	f.view.StartLayout(ctx)
	f.runner = New(f.view, f.out, WithTransport(f.sent))
	return f
}

func (f *fixture) value(t *testing.T, ref string) string {
	t.Helper()
	doc := f.view.Doc()
	id, err := doc.Resolve(doc.Root, ref)
	require.NoError(t, err)
	return doc.RawValue(id)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		line string
		want []string
	}{
		{"empty", "   ", []string{}},
		{"words", "set items[0].price 7", []string{"set", "items[0].price", "7"}},
		{"double quotes", `set name "Ann Lee"`, []string{"set", "name", "Ann Lee"}},
		{"single quotes", `set name 'say "hi"'`, []string{"set", "name", `say "hi"`}},
		{"empty quoted", `set name ""`, []string{"set", "name", ""}},
		{"escape", `set name Ann\ Lee`, []string{"set", "name", "Ann Lee"}},
		{"tabs", "count\titems", []string{"count", "items"}},
		{"comment", "show items # all of them", []string{"show", "items"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Split(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := Split(`set name "Ann`)
	assert.ErrorIs(t, err, ErrUnterminatedQuote)
	_, err = Split(`set name Ann\`)
	assert.ErrorIs(t, err, ErrUnterminatedQuote)
}

func TestExec_SetAndCount(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)

	// --- Act ---
	require.NoError(t, f.runner.Exec(f.ctx, "set items[1].price 7"))
	require.NoError(t, f.runner.Exec(f.ctx, "count items"))

	// --- Assert ---
	assert.Equal(t, "14", f.value(t, "items[1].total"))
	assert.Equal(t, "34", f.value(t, "grand"))
	assert.Equal(t, "2\n", f.out.String())
}

func TestExec_InstanceCommands(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)

	// --- Act & Assert ---
	require.NoError(t, f.runner.Exec(f.ctx, "add items"))
	assert.Equal(t, "items: 3 instances\n", f.out.String())
	assert.Equal(t, "0", f.value(t, "items[2].total"))

	require.NoError(t, f.runner.Exec(f.ctx, "remove items 0"))
	assert.Equal(t, "10", f.value(t, "grand"))

	require.NoError(t, f.runner.Exec(f.ctx, "insert items 0"))
	require.NoError(t, f.runner.Exec(f.ctx, "move items 1 0"))
	assert.Equal(t, "5", f.value(t, "items[0].price"))

	require.NoError(t, f.runner.Exec(f.ctx, "setcount items 1"))
	f.out.Reset()
	require.NoError(t, f.runner.Exec(f.ctx, "count items"))
	assert.Equal(t, "1\n", f.out.String())
}

func TestExec_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	testCases := []struct {
		name string
		line string
		want error
	}{
		{"unknown command", "explode", ErrUnknownCommand},
		{"too few args", "set name", registry.ErrParamCountMismatch},
		{"too many args", "calc now", registry.ErrParamCountMismatch},
		{"unknown activity", "event name explode", event.ErrUnknownActivity},
		{"open quote", `set name "Ann`, ErrUnterminatedQuote},
	}
	for _, tc := range testCases {
		assert.ErrorIs(t, f.runner.Exec(f.ctx, tc.line), tc.want, tc.name)
	}

	assert.ErrorContains(t, f.runner.Exec(f.ctx, "remove items first"), "not an integer")
	assert.ErrorContains(t, f.runner.Exec(f.ctx, "add items maybe"), "not a boolean")
	assert.Error(t, f.runner.Exec(f.ctx, "set missing 1"))
}

func TestExec_ValidateShowsNullMessages(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)

	// --- Act ---
	err := f.runner.Exec(f.ctx, "validate name")

	// --- Assert ---
	require.NoError(t, err)
	msgs := f.policy.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "name cannot be blank.\n", msgs[0].Text)
}

func TestExec_Show(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.runner.Exec(f.ctx, "show"))

	out := f.out.String()
	assert.True(t, strings.HasPrefix(out, "form order\n"), out)
	assert.Contains(t, out, "(count=2)")
	assert.Contains(t, out, `field total = "20"`)
	assert.Contains(t, out, `field grand = "30"`)
}

func TestExec_Submit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)

	// --- Act & Assert ---
	require.ErrorIs(t, f.runner.Exec(f.ctx, "submit"), docview.ErrValidationFailed)
	assert.Nil(t, f.sent.packet)

	require.NoError(t, f.runner.Exec(f.ctx, `set name "Ann Lee"`))
	require.NoError(t, f.runner.Exec(f.ctx, "submit"))
	assert.Contains(t, string(f.sent.packet), "Ann Lee")
	assert.Contains(t, f.out.String(), "submitted\n")

	bare := New(f.view, &bytes.Buffer{})
	assert.ErrorIs(t, bare.Exec(f.ctx, "submit"), ErrNoTransport)
}

func TestRunScript(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	src := `
# raise the second price
set items[1].price 20

close
set items[0].price 99
`

	// --- Act ---
	err := f.runner.RunScript(f.ctx, strings.NewReader(src))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "60", f.value(t, "grand"))
	assert.Equal(t, "closed", f.value(t, "note"))
	assert.Equal(t, "10", f.value(t, "items[0].price"), "lines after close do not run")
	assert.True(t, f.runner.Closed())
}

func TestWithAfterCommand(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	f := newFixture(t)
	calls := 0
	r := New(f.view, f.out, WithAfterCommand(func(context.Context) { calls++ }))

	// --- Act ---
	require.NoError(t, r.Exec(f.ctx, "count items"))
	require.Error(t, r.Exec(f.ctx, "count nothing"))
	require.NoError(t, r.Exec(f.ctx, "# comment"))

	// --- Assert ---
	assert.Equal(t, 1, calls, "only successful commands are followed by the hook")
}

func TestRunScript_ReportsLine(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.runner.RunScript(f.ctx, strings.NewReader("count items\n\nexplode\n"))

	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.ErrorContains(t, err, "line 3")
}

func TestHelp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.NoError(t, f.runner.Exec(f.ctx, "help"))

	assert.Contains(t, Names(), "help")
	for _, name := range Names() {
		assert.Contains(t, f.out.String(), commands[name].usage)
	}
}
