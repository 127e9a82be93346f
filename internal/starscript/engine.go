// Package starscript evaluates form scripts written as Starlark expressions.
package starscript

import (
	"context"
	"fmt"

	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/nodeid"
	"github.com/vk/formrun/internal/script"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// Language is the name scripts use to select this engine.
const Language = "starlark"

var fileOptions = &syntax.FileOptions{
	Set: true,
}

// Engine evaluates single Starlark expressions.
type Engine struct{}

// New returns a Starlark engine.
func New() *Engine {
	return &Engine{}
}

// Evaluate parses src as an expression and evaluates it with the references
// it makes bound as globals.
func (e *Engine) Evaluate(ctx context.Context, src formtree.Script, scope script.Scope) (script.Value, error) {
	fail := func(err error) (script.Value, error) {
		return script.Undefined(), &script.EvalError{Language: Language, Source: src.Source, Err: err}
	}

	expr, err := fileOptions.ParseExpr("script.star", src.Source, 0)
	if err != nil {
		return fail(err)
	}

	hostNames := scope.Functions()
	skip := make(map[string]bool, len(hostNames))
	for _, name := range hostNames {
		skip[name] = true
	}
	vars, err := scope.Materialize(ctx, References(expr, skip))
	if err != nil {
		return fail(err)
	}

	env := make(starlark.StringDict, len(vars)+len(hostNames))
	for name, v := range vars {
		env[name] = toStarlark(v)
	}
	for _, name := range hostNames {
		env[name] = hostBuiltin(ctx, scope, name)
	}

	thread := &starlark.Thread{Name: "formrun"}
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	val, err := starlark.EvalExprOptions(fileOptions, thread, expr, env)
	if err != nil {
		return fail(err)
	}
	out, err := fromStarlark(val)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

// References returns the form references made by expr. Names in skip and
// Starlark built-ins are not references.
func References(expr syntax.Expr, skip map[string]bool) []*nodeid.Address {
	seen := map[string]bool{}
	var out []*nodeid.Address
	syntax.Walk(expr, func(n syntax.Node) bool {
		switch n.(type) {
		case *syntax.Ident, *syntax.DotExpr, *syntax.IndexExpr:
		default:
			return true
		}
		addr, ok := chain(n.(syntax.Expr))
		if !ok {
			return true
		}
		root := script.RootKey(addr)
		if _, builtin := starlark.Universe[root]; builtin || skip[root] {
			return false
		}
		if key := addr.String(); !seen[key] {
			seen[key] = true
			out = append(out, addr)
		}
		return false
	})
	return out
}

func chain(e syntax.Expr) (*nodeid.Address, bool) {
	switch e := e.(type) {
	case *syntax.Ident:
		return script.NewAddress(e.Name), true
	case *syntax.DotExpr:
		addr, ok := chain(e.X)
		if !ok {
			return nil, false
		}
		addr.Path = append(addr.Path, nodeid.NewPathSegment(e.Name.Name))
		return addr, true
	case *syntax.IndexExpr:
		lit, isLit := e.Y.(*syntax.Literal)
		if !isLit || lit.Token != syntax.INT {
			return nil, false
		}
		idx, isInt := lit.Value.(int64)
		addr, ok := chain(e.X)
		if !ok || !isInt || idx < 0 || len(addr.Path) == 0 {
			return nil, false
		}
		last := &addr.Path[len(addr.Path)-1]
		if last.Index != nodeid.NoIndex {
			return nil, false
		}
		last.Index = int(idx)
		return addr, true
	}
	return nil, false
}

func hostBuiltin(ctx context.Context, scope script.Scope, name string) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
		}
		vals, err := flatten(args, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		v, err := scope.Call(ctx, name, vals)
		if err != nil {
			return nil, err
		}
		return valueToStarlark(v), nil
	})
}

func toStarlark(data any) starlark.Value {
	switch v := data.(type) {
	case script.Value:
		return valueToStarlark(v)
	case map[string]any:
		d := make(starlark.StringDict, len(v))
		for k, val := range v {
			d[k] = toStarlark(val)
		}
		return starlarkstruct.FromStringDict(starlarkstruct.Default, d)
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlark(e)
		}
		return starlark.NewList(elems)
	}
	return starlark.None
}

func valueToStarlark(v script.Value) starlark.Value {
	switch v.Kind() {
	case script.KindBool:
		return starlark.Bool(v.Truthy())
	case script.KindNumber:
		n, _ := v.AsNumber()
		if n == float64(int64(n)) {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	case script.KindText:
		return starlark.String(v.String())
	}
	return starlark.None
}

func fromStarlark(v starlark.Value) (script.Value, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return script.Null(), nil
	case starlark.Bool:
		return script.Bool(bool(v)), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return script.Number(float64(i)), nil
		}
		return script.Number(float64(v.Float())), nil
	case starlark.Float:
		return script.Number(float64(v)), nil
	case starlark.String:
		return script.Text(string(v)), nil
	}
	return script.Undefined(), fmt.Errorf("script returned a %s, want a string, number or bool", v.Type())
}

func flatten(args []starlark.Value, out []script.Value) ([]script.Value, error) {
	for _, a := range args {
		if it, ok := a.(starlark.Iterable); ok {
			if _, isStr := a.(starlark.String); !isStr {
				var elems []starlark.Value
				iter := it.Iterate()
				var x starlark.Value
				for iter.Next(&x) {
					elems = append(elems, x)
				}
				iter.Done()
				var err error
				if out, err = flatten(elems, out); err != nil {
					return nil, err
				}
				continue
			}
		}
		v, err := fromStarlark(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
