// Package expr implements the condition language used by game content:
// a small LL(1) expression grammar over the live game state. No statements,
// no assignment, no I/O. Missing state paths resolve to a null sentinel so
// author expressions never throw.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Value is the only runtime type: a tagged union of the four author-visible
// kinds plus the null sentinel for missing paths.
type Value struct {
	Kind Kind
	B    bool
	N    float64
	S    string
	L    []Value
}

var Null = Value{Kind: KindNull}

func Bool(b bool) Value      { return Value{Kind: KindBool, B: b} }
func Number(n float64) Value { return Value{Kind: KindNumber, N: n} }
func String(s string) Value  { return Value{Kind: KindString, S: s} }
func List(vs ...Value) Value { return Value{Kind: KindList, L: vs} }

// StringList builds a list value from plain strings. Convenience for
// context bindings like present-character lists.
func StringList(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs...)
}

// Truthy reports author-facing truthiness: false, 0, "", [] and null are falsey.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.B
	case KindNumber:
		return v.N != 0
	case KindString:
		return v.S != ""
	case KindList:
		return len(v.L) > 0
	}
	return false
}

// Equal is the == semantics. Values of different kinds are unequal, except
// that null only equals null.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.B == o.B
	case KindNumber:
		return v.N == o.N
	case KindString:
		return v.S == o.S
	case KindList:
		if len(v.L) != len(o.L) {
			return false
		}
		for i := range v.L {
			if !v.L[i].Equal(o.L[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindNumber:
		return strconv.FormatFloat(v.N, 'f', -1, 64)
	case KindString:
		return v.S
	case KindList:
		parts := make([]string, len(v.L))
		for i, e := range v.L {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "?"
}

// Of converts a plain Go value (as produced by YAML or JSON decoding) into a
// Value. Unsupported types map to null.
func Of(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []any:
		vs := make([]Value, len(t))
		for i, e := range t {
			vs[i] = Of(e)
		}
		return List(vs...)
	case Value:
		return t
	default:
		return Null
	}
}

// Native converts a Value back into a plain Go value for JSON envelopes.
func (v Value) Native() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.B
	case KindNumber:
		return v.N
	case KindString:
		return v.S
	case KindList:
		out := make([]any, len(v.L))
		for i, e := range v.L {
			out[i] = e.Native()
		}
		return out
	}
	return nil
}

type typeError struct {
	msg string
}

func (e typeError) Error() string { return e.msg }

func typeErrf(format string, args ...any) error {
	return typeError{msg: fmt.Sprintf(format, args...)}
}
