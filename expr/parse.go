package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/engsuite/resolve/quantity"
)

// ParseError reports a syntax error with its byte offset in the input.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Pos, e.Msg)
}

// Parse reads an expression from its text form, e.g.
//
//	T_bar * (1 - U_m)
//	D - 2*T
//	if(d > 0 in, d, 0 in)
//
// A number immediately followed by a registered unit symbol is a quantity
// literal ("10 in"). Identifiers that are not unit or function names become
// variable references.
func Parse(input string) (Expr, error) {
	toks, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
	return e, nil
}

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokOp     // + - * / ^
	tokCmp    // < <= > >= == !=
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokKind
	pos  int
	text string
}

func lex(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && input[j] >= '0' && input[j] <= '9' {
					i = j
					for i < len(input) && input[i] >= '0' && input[i] <= '9' {
						i++
					}
				}
			}
			toks = append(toks, token{tokNumber, start, input[start:i]})
		case unicode.IsLetter(rune(c)) || c == '_':
			start := i
			for i < len(input) && (unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i])) || input[i] == '_') {
				i++
			}
			toks = append(toks, token{tokIdent, start, input[start:i]})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^':
			toks = append(toks, token{tokOp, i, string(c)})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, i, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, i, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, i, ","})
			i++
		case c == '<' || c == '>' || c == '=' || c == '!':
			start := i
			i++
			if i < len(input) && input[i] == '=' {
				i++
			}
			op := input[start:i]
			if op == "=" || op == "!" {
				return nil, &ParseError{Pos: start, Msg: fmt.Sprintf("unexpected %q", op)}
			}
			toks = append(toks, token{tokCmp, start, op})
		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, token{tokEOF, len(input), ""})
	return toks, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }
func (p *parser) next() token { t := p.toks[p.i]; p.i++; return t }

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("expected %s, got %q", what, t.text)}
	}
	return t, nil
}

var binPrec = map[string]int{"+": 1, "-": 1, "*": 2, "/": 2, "^": 3}
var binOps = map[string]Op{"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "^": OpPow}

// precedence climbing; ^ is right-associative
func (p *parser) parseExpr(minPrec int) (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return lhs, nil
		}
		prec := binPrec[t.text]
		if prec < minPrec {
			return lhs, nil
		}
		p.next()
		nextMin := prec + 1
		if t.text == "^" {
			nextMin = prec
		}
		rhs, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		lhs = Bin(binOps[t.text], lhs, rhs)
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()
	if t.kind == tokOp && t.text == "-" {
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(e), nil
	}
	if t.kind == tokOp && t.text == "+" {
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("bad number %q", t.text)}
		}
		// "10 in" style quantity literal
		if n := p.peek(); n.kind == tokIdent {
			if u, ok := quantity.LookupUnit(n.text); ok {
				p.next()
				return Const(quantity.New(v, u)), nil
			}
		}
		return Num(v), nil

	case tokIdent:
		if strings.EqualFold(t.text, "if") && p.peek().kind == tokLParen {
			return p.parseIf()
		}
		if fn, ok := FnByName(t.text); ok && p.peek().kind == tokLParen {
			p.next()
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return Apply(fn, arg), nil
		}
		return V(t.text), nil

	case tokLParen:
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %q", t.text)}
	}
}

var cmpOps = map[string]CmpOp{
	"<": CmpLT, "<=": CmpLE, ">": CmpGT, ">=": CmpGE, "==": CmpEQ, "!=": CmpNE,
}

func (p *parser) parseIf() (Expr, error) {
	if _, err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	l, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	ct, err := p.expect(tokCmp, "comparison operator")
	if err != nil {
		return nil, err
	}
	r, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, ","); err != nil {
		return nil, err
	}
	then, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma, ","); err != nil {
		return nil, err
	}
	els, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return If(Cmp(cmpOps[ct.text], l, r), then, els), nil
}
