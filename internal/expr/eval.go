package expr

import (
	"strings"
)

// Env binds an expression to the world it reads. Lookup resolves a dotted
// path; missing paths return (Null, false) and evaluate as the null sentinel.
// Call dispatches non-pure functions (has, npc_present, rand, knows_outfit,
// can_wear_outfit). Warnf receives evaluation diagnostics; implementations
// decide deduplication.
type Env interface {
	Lookup(segs []string) (Value, bool)
	Call(name string, args []Value) (Value, error)
	Warnf(format string, args ...any)
}

// Eval evaluates the expression. Type errors, division by zero and failed
// calls make the whole expression false, with a warning through env. Eval
// never panics on author input.
func (e *Expr) Eval(env Env) Value {
	v, err := eval(e.root, env)
	if err != nil {
		env.Warnf("expr %q: %v", e.src, err)
		return Bool(false)
	}
	return v
}

// EvalBool is Eval followed by truthiness.
func (e *Expr) EvalBool(env Env) bool {
	return e.Eval(env).Truthy()
}

func eval(n node, env Env) (Value, error) {
	switch t := n.(type) {
	case litNode:
		return t.val, nil

	case listNode:
		vs := make([]Value, len(t.elems))
		for i, el := range t.elems {
			v, err := eval(el, env)
			if err != nil {
				return Null, err
			}
			vs[i] = v
		}
		return List(vs...), nil

	case pathNode:
		v, ok := env.Lookup(t.segs)
		if !ok {
			env.Warnf("unknown path %q", strings.Join(t.segs, "."))
			return Null, nil
		}
		return v, nil

	case callNode:
		return evalCall(t, env)

	case unaryNode:
		v, err := eval(t.operand, env)
		if err != nil {
			return Null, err
		}
		switch t.op {
		case tokNot:
			return Bool(!v.Truthy()), nil
		case tokMinus:
			if v.Kind != KindNumber {
				return Null, typeErrf("unary '-' on %s", v.Kind)
			}
			return Number(-v.N), nil
		}
		return Null, typeErrf("bad unary op")

	case binaryNode:
		return evalBinary(t, env)
	}
	return Null, typeErrf("bad node")
}

func evalBinary(n binaryNode, env Env) (Value, error) {
	// and/or short-circuit left to right and return the deciding operand's
	// truth, not the operand itself.
	switch n.op {
	case tokAnd:
		l, err := eval(n.lhs, env)
		if err != nil {
			return Null, err
		}
		if !l.Truthy() {
			return Bool(false), nil
		}
		r, err := eval(n.rhs, env)
		if err != nil {
			return Null, err
		}
		return Bool(r.Truthy()), nil
	case tokOr:
		l, err := eval(n.lhs, env)
		if err != nil {
			return Null, err
		}
		if l.Truthy() {
			return Bool(true), nil
		}
		r, err := eval(n.rhs, env)
		if err != nil {
			return Null, err
		}
		return Bool(r.Truthy()), nil
	}

	l, err := eval(n.lhs, env)
	if err != nil {
		return Null, err
	}
	r, err := eval(n.rhs, env)
	if err != nil {
		return Null, err
	}

	switch n.op {
	case tokEq:
		return Bool(l.Equal(r)), nil
	case tokNe:
		return Bool(!l.Equal(r)), nil
	case tokLt, tokLe, tokGt, tokGe:
		return compare(n.op, l, r)
	case tokIn:
		return evalIn(l, r)
	case tokPlus:
		if l.Kind == KindString && r.Kind == KindString {
			return String(l.S + r.S), nil
		}
		if l.Kind == KindNumber && r.Kind == KindNumber {
			return Number(l.N + r.N), nil
		}
		return Null, typeErrf("'+' needs two numbers or two strings, got %s and %s", l.Kind, r.Kind)
	case tokMinus, tokStar, tokSlash:
		if l.Kind != KindNumber || r.Kind != KindNumber {
			return Null, typeErrf("arithmetic on %s and %s", l.Kind, r.Kind)
		}
		switch n.op {
		case tokMinus:
			return Number(l.N - r.N), nil
		case tokStar:
			return Number(l.N * r.N), nil
		default:
			if r.N == 0 {
				return Null, typeErrf("division by zero")
			}
			return Number(l.N / r.N), nil
		}
	}
	return Null, typeErrf("bad binary op")
}

func compare(op tokenKind, l, r Value) (Value, error) {
	var c int
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		switch {
		case l.N < r.N:
			c = -1
		case l.N > r.N:
			c = 1
		}
	case l.Kind == KindString && r.Kind == KindString:
		c = strings.Compare(l.S, r.S)
	default:
		return Null, typeErrf("ordered comparison on %s and %s", l.Kind, r.Kind)
	}
	switch op {
	case tokLt:
		return Bool(c < 0), nil
	case tokLe:
		return Bool(c <= 0), nil
	case tokGt:
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

// evalIn: element in list, or substring in string.
func evalIn(l, r Value) (Value, error) {
	switch r.Kind {
	case KindList:
		for _, e := range r.L {
			if e.Equal(l) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case KindString:
		if l.Kind != KindString {
			return Null, typeErrf("'in' needs a string on the left of a string, got %s", l.Kind)
		}
		return Bool(strings.Contains(r.S, l.S)), nil
	case KindNull:
		return Bool(false), nil
	default:
		return Null, typeErrf("'in' needs a list or string on the right, got %s", r.Kind)
	}
}

func evalCall(n callNode, env Env) (Value, error) {
	args := make([]Value, len(n.args))
	for i, a := range n.args {
		// get() takes its path argument as written, resolved lazily below.
		v, err := eval(a, env)
		if err != nil {
			return Null, err
		}
		args[i] = v
	}

	switch n.name {
	case "min":
		if err := wantArgs(n.name, args, 2); err != nil {
			return Null, err
		}
		a, b, err := twoNumbers(n.name, args)
		if err != nil {
			return Null, err
		}
		if a < b {
			return Number(a), nil
		}
		return Number(b), nil
	case "max":
		if err := wantArgs(n.name, args, 2); err != nil {
			return Null, err
		}
		a, b, err := twoNumbers(n.name, args)
		if err != nil {
			return Null, err
		}
		if a > b {
			return Number(a), nil
		}
		return Number(b), nil
	case "abs":
		if err := wantArgs(n.name, args, 1); err != nil {
			return Null, err
		}
		if args[0].Kind != KindNumber {
			return Null, typeErrf("abs() needs a number, got %s", args[0].Kind)
		}
		if args[0].N < 0 {
			return Number(-args[0].N), nil
		}
		return args[0], nil
	case "clamp":
		if err := wantArgs(n.name, args, 3); err != nil {
			return Null, err
		}
		for _, a := range args {
			if a.Kind != KindNumber {
				return Null, typeErrf("clamp() needs numbers, got %s", a.Kind)
			}
		}
		x, lo, hi := args[0].N, args[1].N, args[2].N
		if x < lo {
			x = lo
		}
		if x > hi {
			x = hi
		}
		return Number(x), nil
	case "get":
		if err := wantArgs(n.name, args, 2); err != nil {
			return Null, err
		}
		if args[0].Kind != KindString {
			return Null, typeErrf("get() path must be a string, got %s", args[0].Kind)
		}
		segs := strings.Split(args[0].S, ".")
		v, ok := env.Lookup(segs)
		if !ok || v.Kind == KindNull {
			return args[1], nil
		}
		return v, nil
	default:
		v, err := env.Call(n.name, args)
		if err != nil {
			return Null, err
		}
		return v, nil
	}
}

func wantArgs(name string, args []Value, n int) error {
	if len(args) != n {
		return typeErrf("%s() needs %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func twoNumbers(name string, args []Value) (float64, float64, error) {
	if args[0].Kind != KindNumber || args[1].Kind != KindNumber {
		return 0, 0, typeErrf("%s() needs numbers, got %s and %s", name, args[0].Kind, args[1].Kind)
	}
	return args[0].N, args[1].N, nil
}
