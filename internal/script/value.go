package script

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	}
	return "undefined"
}

// Value is the result of a script or a value read by one. The zero Value is
// Undefined.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Undefined is the result of a script that produced no value.
func Undefined() Value { return Value{} }

// Null is an explicitly empty value.
func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func Text(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

func (v Value) IsNull() bool { return v.kind == KindNull }

// FromRaw maps a raw form value to a Value: empty is Null, numeric text is a
// Number and anything else is Text.
func FromRaw(raw string) Value {
	if raw == "" {
		return Null()
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return Number(n)
	}
	return Text(raw)
}

// AsNumber returns the numeric reading of v and whether it has one.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return n, err == nil
	}
	return 0, false
}

// Truthy reports whether v counts as true in a validation script.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "", "0", "false":
			return false
		}
		return true
	}
	return false
}

// String renders v as a raw form value. Null and Undefined render empty.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindText:
		return v.s
	}
	return ""
}
