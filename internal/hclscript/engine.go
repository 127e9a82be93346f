package hclscript

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/script"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Language is the name scripts use to select this engine.
const Language = "hcl"

// Engine evaluates HCL expressions. Host functions shadow the built-in
// functions of the same name.
type Engine struct {
	builtins map[string]function.Function
}

// New returns an engine with the built-in function library loaded.
func New() *Engine {
	return &Engine{builtins: map[string]function.Function{
		"abs":       stdlib.AbsoluteFunc,
		"ceil":      stdlib.CeilFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"concat":    stdlib.ConcatFunc,
		"floor":     stdlib.FloorFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"length":    stdlib.LengthFunc,
		"lower":     stdlib.LowerFunc,
		"max":       stdlib.MaxFunc,
		"min":       stdlib.MinFunc,
		"parseint":  stdlib.ParseIntFunc,
		"strlen":    stdlib.StrlenFunc,
		"substr":    stdlib.SubstrFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
	}}
}

// Evaluate parses src as a single expression and evaluates it over the
// references it makes.
func (e *Engine) Evaluate(ctx context.Context, src formtree.Script, scope script.Scope) (script.Value, error) {
	fail := func(err error) (script.Value, error) {
		return script.Undefined(), &script.EvalError{Language: Language, Source: src.Source, Err: err}
	}

	expr, diags := hclsyntax.ParseExpression([]byte(src.Source), "script.hcl", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return fail(diags)
	}

	vars, err := scope.Materialize(ctx, References(expr))
	if err != nil {
		return fail(err)
	}
	evalCtx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(vars)),
		Functions: e.functions(ctx, scope),
	}
	for name, v := range vars {
		cv, err := toCty(v)
		if err != nil {
			return fail(fmt.Errorf("reference %q: %w", name, err))
		}
		evalCtx.Variables[name] = cv
	}

	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return fail(diags)
	}
	out, err := fromCty(val)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

func (e *Engine) functions(ctx context.Context, scope script.Scope) map[string]function.Function {
	fns := make(map[string]function.Function, len(e.builtins))
	for name, fn := range e.builtins {
		fns[name] = fn
	}
	for _, name := range scope.Functions() {
		fns[name] = hostFunction(ctx, scope, name)
	}
	return fns
}

func hostFunction(ctx context.Context, scope script.Scope, name string) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			vals, err := flatten(args, nil)
			if err != nil {
				return cty.NilVal, err
			}
			v, err := scope.Call(ctx, name, vals)
			if err != nil {
				return cty.NilVal, err
			}
			return valueToCty(v), nil
		},
	})
}
