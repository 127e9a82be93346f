package starscript

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/nodeid"
	"github.com/vk/formrun/internal/script"
)

type fakeScope struct {
	vars  map[string]any
	asked []string
}

func (f *fakeScope) Materialize(_ context.Context, refs []*nodeid.Address) (map[string]any, error) {
	out := map[string]any{}
	for _, r := range refs {
		f.asked = append(f.asked, r.String())
		if v, ok := f.vars[script.RootKey(r)]; ok {
			out[script.RootKey(r)] = v
		}
	}
	return out, nil
}

func (f *fakeScope) Call(_ context.Context, name string, args []script.Value) (script.Value, error) {
	return script.Number(float64(len(args))), nil
}

func (f *fakeScope) Functions() []string { return []string{"count_args"} }

func eval(t *testing.T, src string, scope *fakeScope) (script.Value, error) {
	t.Helper()
	return New().Evaluate(context.Background(), formtree.Script{Language: Language, Source: src}, scope)
}

func TestEngine_EvaluatesOverReferences(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	scope := &fakeScope{vars: map[string]any{
		"order": map[string]any{
			"items": []any{
				map[string]any{"price": script.Number(1.5)},
				map[string]any{"price": script.Number(2)},
			},
		},
	}}

	// --- Act ---
	v, err := eval(t, "order.items[0].price + order.items[1].price", scope)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, script.Number(3.5), v)
	assert.Equal(t, []string{"order.items[0].price", "order.items[1].price"}, scope.asked)
}

func TestEngine_ComprehensionsAndHostFunctions(t *testing.T) {
	t.Parallel()

	scope := &fakeScope{vars: map[string]any{
		"items": []any{
			map[string]any{"price": script.Number(1)},
			map[string]any{"price": script.Number(2)},
			map[string]any{"price": script.Null()},
		},
	}}

	v, err := eval(t, "count_args([i.price for i in items])", scope)
	require.NoError(t, err)
	assert.Equal(t, script.Number(3), v)
	assert.Contains(t, scope.asked, "items")
	assert.NotContains(t, scope.asked, "count_args")
}

func TestEngine_ResultKinds(t *testing.T) {
	t.Parallel()

	scope := &fakeScope{vars: map[string]any{
		"self": script.Text("abc"),
		"qty":  script.Null(),
	}}

	v, err := eval(t, "self.upper()", scope)
	require.NoError(t, err)
	assert.Equal(t, script.Text("ABC"), v)

	v, err = eval(t, "qty", scope)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = eval(t, "len(self) == 3", scope)
	require.NoError(t, err)
	assert.Equal(t, script.Bool(true), v)

	_, err = eval(t, "[1]", scope)
	assert.ErrorIs(t, err, script.ErrEvaluationFailed)

	_, err = eval(t, "missing + 1", scope)
	assert.ErrorIs(t, err, script.ErrEvaluationFailed)

	_, err = eval(t, "1 +", scope)
	assert.ErrorIs(t, err, script.ErrEvaluationFailed)
}

func TestReferences_SkipsBuiltins(t *testing.T) {
	t.Parallel()

	expr, err := fileOptions.ParseExpr("t.star", "len(form.items) + max(a.b[2], x[y]) + True", 0)
	require.NoError(t, err)

	var got []string
	for _, r := range References(expr, nil) {
		got = append(got, r.String())
	}
	assert.Equal(t, []string{"$form.items", "a.b[2]", "x", "y"}, got)
}
