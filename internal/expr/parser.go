package expr

import (
	"fmt"
)

// Hard caps. Exceeding any of them rejects the expression outright.
const (
	MaxSourceLen = 512
	MaxDepth     = 16
	MaxArgs      = 4
)

type node interface {
	depth() int
}

type litNode struct{ val Value }

type listNode struct{ elems []node }

type pathNode struct{ segs []string }

type callNode struct {
	name string
	args []node
}

type unaryNode struct {
	op      tokenKind // tokNot or tokMinus
	operand node
}

type binaryNode struct {
	op       tokenKind
	lhs, rhs node
}

func (n litNode) depth() int  { return 1 }
func (n pathNode) depth() int { return 1 }

func (n listNode) depth() int {
	d := 0
	for _, e := range n.elems {
		if ed := e.depth(); ed > d {
			d = ed
		}
	}
	return d + 1
}

func (n callNode) depth() int {
	d := 0
	for _, a := range n.args {
		if ad := a.depth(); ad > d {
			d = ad
		}
	}
	return d + 1
}

func (n unaryNode) depth() int { return n.operand.depth() + 1 }

func (n binaryNode) depth() int {
	l, r := n.lhs.depth(), n.rhs.depth()
	if r > l {
		l = r
	}
	return l + 1
}

// Expr is a compiled expression. Compile once, evaluate many times; an Expr
// is immutable and safe for concurrent use.
type Expr struct {
	src  string
	root node
}

func (e *Expr) Source() string { return e.src }

// Compile parses src and enforces the source-length, tree-depth and
// argument-count caps.
func Compile(src string) (*Expr, error) {
	if len(src) > MaxSourceLen {
		return nil, fmt.Errorf("expression exceeds %d chars (%d)", MaxSourceLen, len(src))
	}
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("lex %q: %w", src, err)
	}
	p := &parser{toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("parse %q: trailing %s at pos %d", src, p.peek(), p.peek().pos)
	}
	if d := root.depth(); d > MaxDepth {
		return nil, fmt.Errorf("expression %q exceeds depth %d (%d)", src, MaxDepth, d)
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is Compile for static expressions; it panics on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return t, fmt.Errorf("expected %s at pos %d, got %s", what, t.pos, t)
	}
	return p.next(), nil
}

// or := and ("or" and)*
func (p *parser) parseOr() (node, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = binaryNode{op: tokOr, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

// and := not ("and" not)*
func (p *parser) parseAnd() (node, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = binaryNode{op: tokAnd, lhs: lhs, rhs: rhs}
	}
	return lhs, nil
}

// not := "not" not | cmp
func (p *parser) parseNot() (node, error) {
	if p.accept(tokNot) {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tokNot, operand: operand}, nil
	}
	return p.parseCmp()
}

// cmp := sum (cmpop sum)?  (non-associative)
func (p *parser) parseCmp() (node, error) {
	lhs, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe, tokIn:
		op := p.next().kind
		rhs, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: op, lhs: lhs, rhs: rhs}, nil
	}
	return lhs, nil
}

// sum := term (("+"|"-") term)*
func (p *parser) parseSum() (node, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus, tokMinus:
			op := p.next().kind
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			lhs = binaryNode{op: op, lhs: lhs, rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

// term := factor (("*"|"/") factor)*
func (p *parser) parseTerm() (node, error) {
	lhs, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokStar, tokSlash:
			op := p.next().kind
			rhs, err := p.parseFactor()
			if err != nil {
				return nil, err
			}
			lhs = binaryNode{op: op, lhs: lhs, rhs: rhs}
		default:
			return lhs, nil
		}
	}
}

func (p *parser) parseFactor() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokMinus:
		p.next()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: tokMinus, operand: operand}, nil
	case tokNumber:
		p.next()
		return litNode{val: Number(t.num)}, nil
	case tokString:
		p.next()
		return litNode{val: String(t.text)}, nil
	case tokTrue:
		p.next()
		return litNode{val: Bool(true)}, nil
	case tokFalse:
		p.next()
		return litNode{val: Bool(false)}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokLBracket:
		return p.parseList()
	case tokIdent:
		return p.parsePathOrCall()
	default:
		return nil, fmt.Errorf("unexpected %s at pos %d", t, t.pos)
	}
}

// list := "[" (or ("," or)*)? "]"
func (p *parser) parseList() (node, error) {
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, err
	}
	var elems []node
	if p.peek().kind != tokRBracket {
		for {
			e, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if !p.accept(tokComma) {
				break
			}
		}
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return listNode{elems: elems}, nil
}

// path := ident (("." ident) | ("[" string "]"))*
// call := ident "(" (or ("," or)*)? ")"
func (p *parser) parsePathOrCall() (node, error) {
	first, err := p.expect(tokIdent, "identifier")
	if err != nil {
		return nil, err
	}
	if p.peek().kind == tokLParen {
		p.next()
		var args []node
		if p.peek().kind != tokRParen {
			for {
				a, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if len(args) > MaxArgs {
					return nil, fmt.Errorf("%s() exceeds %d arguments", first.text, MaxArgs)
				}
				if !p.accept(tokComma) {
					break
				}
			}
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return callNode{name: first.text, args: args}, nil
	}

	segs := []string{first.text}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			seg, err := p.expect(tokIdent, "path segment")
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg.text)
		case tokLBracket:
			p.next()
			key, err := p.expect(tokString, "string key")
			if err != nil {
				return nil, err
			}
			segs = append(segs, key.text)
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
		default:
			return pathNode{segs: segs}, nil
		}
	}
}
