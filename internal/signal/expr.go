package signal

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/edgelab-quant/edgelab/internal/core"
)

// Expr is a compiled boolean expression over condition indices, written as
// e.g. "(c0 or c1) and c2". Operators: and/&&, or/||, not/!, parentheses.
type Expr struct {
	root exprNode
	src  string
}

type exprNode interface {
	eval(results []bool) bool
}

type condNode struct{ index int }
type notNode struct{ child exprNode }
type andNode struct{ left, right exprNode }
type orNode struct{ left, right exprNode }

func (n condNode) eval(r []bool) bool { return r[n.index] }
func (n notNode) eval(r []bool) bool  { return !n.child.eval(r) }
func (n andNode) eval(r []bool) bool  { return n.left.eval(r) && n.right.eval(r) }
func (n orNode) eval(r []bool) bool   { return n.left.eval(r) || n.right.eval(r) }

// Eval applies the expression to one per-condition result vector
func (e *Expr) Eval(results []bool) bool {
	return e.root.eval(results)
}

func (e *Expr) String() string {
	return e.src
}

// ParseExpr compiles src, rejecting references outside [0, nconds).
func ParseExpr(src string, nconds int) (*Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if len(tokens) == 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("empty rule expression"))
	}

	p := &exprParser{tokens: tokens, nconds: nconds}
	root, err := p.parseOr()
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if p.pos != len(p.tokens) {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unexpected token %q in expression %q", p.tokens[p.pos], src))
	}
	return &Expr{root: root, src: src}, nil
}

func tokenize(src string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(src) {
		ch := rune(src[i])
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch == '(' || ch == ')' || ch == '!':
			tokens = append(tokens, string(ch))
			i++
		case ch == '&' || ch == '|':
			if i+1 >= len(src) || src[i+1] != src[i] {
				return nil, fmt.Errorf("invalid operator at %q", src[i:])
			}
			if ch == '&' {
				tokens = append(tokens, "and")
			} else {
				tokens = append(tokens, "or")
			}
			i += 2
		case unicode.IsLetter(ch) || unicode.IsDigit(ch):
			j := i
			for j < len(src) && (unicode.IsLetter(rune(src[j])) || unicode.IsDigit(rune(src[j]))) {
				j++
			}
			tokens = append(tokens, strings.ToLower(src[i:j]))
			i = j
		default:
			return nil, fmt.Errorf("invalid character %q in expression", ch)
		}
	}
	return tokens, nil
}

type exprParser struct {
	tokens []string
	pos    int
	nconds int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "or" {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek() == "and" {
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseFactor() (exprNode, error) {
	switch tok := p.peek(); tok {
	case "":
		return nil, fmt.Errorf("unexpected end of expression")
	case "not", "!":
		p.pos++
		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return notNode{child: child}, nil
	case "(":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	default:
		p.pos++
		return p.parseCond(tok)
	}
}

func (p *exprParser) parseCond(tok string) (exprNode, error) {
	if !strings.HasPrefix(tok, "c") {
		return nil, fmt.Errorf("expected condition reference like c0, got %q", tok)
	}
	idx, err := strconv.Atoi(tok[1:])
	if err != nil {
		return nil, fmt.Errorf("expected condition reference like c0, got %q", tok)
	}
	if idx < 0 || idx >= p.nconds {
		return nil, fmt.Errorf("condition index %d out of range, rule has %d conditions", idx, p.nconds)
	}
	return condNode{index: idx}, nil
}
