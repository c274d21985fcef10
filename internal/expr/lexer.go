package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokEq  // ==
	tokNe  // !=
	tokLt  // <
	tokLe  // <=
	tokGt  // >
	tokGe  // >=
	tokAnd // keyword
	tokOr
	tokNot
	tokIn
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	pos  int
	text string  // ident / string literal value
	num  float64 // number literal value
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return fmt.Sprintf("%q", t.text)
	case tokNumber:
		return strconv.FormatFloat(t.num, 'f', -1, 64)
	case tokString:
		return fmt.Sprintf("%q", t.text)
	default:
		return t.text
	}
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"in":    tokIn,
	"true":  tokTrue,
	"false": tokFalse,
}

// lex tokenizes src in one pass. Strings must be double-quoted; identifiers
// are [A-Za-z_][A-Za-z0-9_]*.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	n := len(src)
	emit := func(kind tokenKind, pos int, text string) {
		toks = append(toks, token{kind: kind, pos: pos, text: text})
	}
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			emit(tokLParen, i, "(")
			i++
		case c == ')':
			emit(tokRParen, i, ")")
			i++
		case c == '[':
			emit(tokLBracket, i, "[")
			i++
		case c == ']':
			emit(tokRBracket, i, "]")
			i++
		case c == ',':
			emit(tokComma, i, ",")
			i++
		case c == '.':
			emit(tokDot, i, ".")
			i++
		case c == '+':
			emit(tokPlus, i, "+")
			i++
		case c == '-':
			emit(tokMinus, i, "-")
			i++
		case c == '*':
			emit(tokStar, i, "*")
			i++
		case c == '/':
			emit(tokSlash, i, "/")
			i++
		case c == '=':
			if i+1 < n && src[i+1] == '=' {
				emit(tokEq, i, "==")
				i += 2
			} else {
				return nil, fmt.Errorf("pos %d: single '=' (use '==')", i)
			}
		case c == '!':
			if i+1 < n && src[i+1] == '=' {
				emit(tokNe, i, "!=")
				i += 2
			} else {
				return nil, fmt.Errorf("pos %d: stray '!'", i)
			}
		case c == '<':
			if i+1 < n && src[i+1] == '=' {
				emit(tokLe, i, "<=")
				i += 2
			} else {
				emit(tokLt, i, "<")
				i++
			}
		case c == '>':
			if i+1 < n && src[i+1] == '=' {
				emit(tokGe, i, ">=")
				i += 2
			} else {
				emit(tokGt, i, ">")
				i++
			}
		case c == '"':
			j := i + 1
			var sb strings.Builder
			closed := false
			for j < n {
				if src[j] == '\\' && j+1 < n && (src[j+1] == '"' || src[j+1] == '\\') {
					sb.WriteByte(src[j+1])
					j += 2
					continue
				}
				if src[j] == '"' {
					closed = true
					break
				}
				sb.WriteByte(src[j])
				j++
			}
			if !closed {
				return nil, fmt.Errorf("pos %d: unterminated string", i)
			}
			toks = append(toks, token{kind: tokString, pos: i, text: sb.String()})
			i = j + 1
		case c == '\'':
			return nil, fmt.Errorf("pos %d: single-quoted string (strings must be double-quoted)", i)
		case c >= '0' && c <= '9':
			j := i
			seenDot := false
			for j < n && (src[j] >= '0' && src[j] <= '9' || src[j] == '.' && !seenDot) {
				if src[j] == '.' {
					// a trailing dot belongs to a path, not the number
					if j+1 >= n || src[j+1] < '0' || src[j+1] > '9' {
						break
					}
					seenDot = true
				}
				j++
			}
			f, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("pos %d: bad number %q", i, src[i:j])
			}
			toks = append(toks, token{kind: tokNumber, pos: i, num: f})
			i = j
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < n && (src[j] == '_' || src[j] >= '0' && src[j] <= '9' ||
				unicode.IsLetter(rune(src[j]))) {
				j++
			}
			word := src[i:j]
			if kw, ok := keywords[word]; ok {
				emit(kw, i, word)
			} else {
				emit(tokIdent, i, word)
			}
			i = j
		default:
			return nil, fmt.Errorf("pos %d: unexpected character %q", i, string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: n, text: ""})
	return toks, nil
}
