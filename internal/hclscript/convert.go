package hclscript

import (
	"fmt"

	"github.com/vk/formrun/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// toCty converts a materialized value tree into a cty value.
func toCty(data any) (cty.Value, error) {
	switch v := data.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case script.Value:
		return valueToCty(v), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(v))
		for key, val := range v {
			cv, err := toCty(val)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[key] = cv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(v) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(v))
		for _, val := range v {
			cv, err := toCty(val)
			if err != nil {
				return cty.NilVal, err
			}
			elems = append(elems, cv)
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported type for conversion to cty.Value: %T", v)
	}
}

func valueToCty(v script.Value) cty.Value {
	switch v.Kind() {
	case script.KindBool:
		return cty.BoolVal(v.Truthy())
	case script.KindNumber:
		n, _ := v.AsNumber()
		return cty.NumberFloatVal(n)
	case script.KindText:
		return cty.StringVal(v.String())
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

// fromCty converts a script result. Unknown values are Undefined.
func fromCty(val cty.Value) (script.Value, error) {
	if !val.IsKnown() {
		return script.Undefined(), nil
	}
	if val.IsNull() {
		return script.Null(), nil
	}
	switch val.Type() {
	case cty.String:
		return script.Text(val.AsString()), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return script.Number(f), nil
	case cty.Bool:
		return script.Bool(val.True()), nil
	}
	return script.Undefined(), fmt.Errorf("script returned a %s, want a string, number or bool", val.Type().FriendlyName())
}

// flatten converts host function arguments, expanding collections in place.
func flatten(args []cty.Value, out []script.Value) ([]script.Value, error) {
	for _, a := range args {
		switch {
		case !a.IsKnown():
			out = append(out, script.Undefined())
		case a.IsNull():
			out = append(out, script.Null())
		case a.Type().IsPrimitiveType():
			v, err := fromCty(a)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		case a.CanIterateElements():
			var elems []cty.Value
			for it := a.ElementIterator(); it.Next(); {
				_, ev := it.Element()
				elems = append(elems, ev)
			}
			var err error
			if out, err = flatten(elems, out); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported argument of type %s", a.Type().FriendlyName())
		}
	}
	return out, nil
}
