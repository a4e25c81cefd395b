package expr

import (
	"math"
	"strings"
)

// Sigil marks a property value as a computed expression rather than a literal.
const Sigil = "="

// IsExpression reports whether a raw property value is a computed expression.
func IsExpression(raw string) bool {
	return strings.HasPrefix(raw, Sigil)
}

// Strip removes the sigil from a computed property value.
func Strip(raw string) string {
	return strings.TrimPrefix(raw, Sigil)
}

// Func is a function callable from expressions.
type Func func(args []any) (any, error)

// Env supplies the variable and function tables for evaluation.
// Evaluate never mutates an Env, so a single Env may back every
// per-frame evaluation of a render.
type Env struct {
	Vars  map[string]any
	Funcs map[string]Func
}

// DefaultEnv returns an Env pre-seeded with the numeric constants "pi" and
// "e" and the standard function table. Callers add their own variables on top.
func DefaultEnv() Env {
	return Env{
		Vars: map[string]any{
			"pi": math.Pi,
			"e":  math.E,
		},
		Funcs: stdFuncs(),
	}
}

// Evaluate parses and evaluates src against env. The sigil, if present,
// must already be stripped. Results are float64 or string. All failures
// are reported as *Error.
func Evaluate(src string, env Env) (any, error) {
	p := &parser{lex: newLexer(src), src: src, env: env}
	if err := p.advance(); err != nil {
		return nil, err
	}
	v, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, errAt(src, p.tok.pos, "unexpected trailing input")
	}
	return v, nil
}

// parser is a recursive-descent evaluator with standard precedence:
// comparison < additive < multiplicative < unary < primary.
type parser struct {
	lex *lexer
	src string
	env Env
	tok token
}

func (p *parser) advance() *Error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) parseComparison() (any, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op := p.tok.kind
		switch op {
		case tokLT, tokLE, tokGT, tokGE, tokEQ, tokNE:
		default:
			return left, nil
		}
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left, err = compare(p.src, pos, op, left, right)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseAdditive() (any, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := p.tok.kind
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if op == tokPlus {
			left, err = add(p.src, pos, left, right)
		} else {
			left, err = arith(p.src, pos, "-", left, right)
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar || p.tok.kind == tokSlash {
		op := "*"
		if p.tok.kind == tokSlash {
			op = "/"
		}
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left, err = arith(p.src, pos, op, left, right)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) parseUnary() (any, error) {
	if p.tok.kind == tokMinus {
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n, ok := v.(float64)
		if !ok {
			return nil, errAt(p.src, pos, "unary minus requires a number")
		}
		return -n, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (any, error) {
	switch p.tok.kind {
	case tokNumber:
		v := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		return v, nil

	case tokString:
		v := p.tok.str
		if err := p.advance(); err != nil {
			return nil, err
		}
		return v, nil

	case tokLParen:
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, errAt(p.src, pos, "unbalanced parenthesis")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return v, nil

	case tokIdent:
		name := p.tok.str
		pos := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokLParen {
			return p.parseCall(name, pos)
		}
		v, ok := p.env.Vars[name]
		if !ok {
			return nil, errAt(p.src, pos, "unknown identifier %q", name)
		}
		return normalize(p.src, pos, v)

	case tokEOF:
		return nil, errAt(p.src, p.tok.pos, "unexpected end of expression")

	default:
		return nil, errAt(p.src, p.tok.pos, "unexpected token")
	}
}

func (p *parser) parseCall(name string, pos int) (any, error) {
	fn, ok := p.env.Funcs[name]
	if !ok {
		return nil, errAt(p.src, pos, "unknown function %q", name)
	}
	// Consume '('.
	if err := p.advance(); err != nil {
		return nil, err
	}

	var args []any
	if p.tok.kind != tokRParen {
		for {
			arg, err := p.parseComparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind == tokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if p.tok.kind != tokRParen {
		return nil, errAt(p.src, pos, "unbalanced parenthesis in call to %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	result, err := fn(args)
	if err != nil {
		return nil, errAt(p.src, pos, "function %q: %v", name, err)
	}
	return normalize(p.src, pos, result)
}

// normalize widens caller-supplied variable and function values to the two
// value kinds the language knows about.
func normalize(src string, pos int, v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return n, nil
	case bool:
		if n {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return nil, errAt(src, pos, "unsupported value type %T", v)
	}
}

func add(src string, pos int, left, right any) (any, error) {
	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if lok && rok {
		return ln + rn, nil
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return ls + rs, nil
	}
	return nil, errAt(src, pos, "'+' requires two numbers or two strings")
}

func arith(src string, pos int, op string, left, right any) (any, error) {
	ln, lok := left.(float64)
	rn, rok := right.(float64)
	if !lok || !rok {
		return nil, errAt(src, pos, "%q requires numeric operands", op)
	}
	switch op {
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, errAt(src, pos, "division by zero")
		}
		return ln / rn, nil
	}
	return nil, errAt(src, pos, "unknown operator %q", op)
}

// compare yields 1 or 0. Numbers compare numerically, strings lexically;
// mixing the two is an error.
func compare(src string, pos int, op tokenKind, left, right any) (any, error) {
	var cmp int
	switch l := left.(type) {
	case float64:
		r, ok := right.(float64)
		if !ok {
			return nil, errAt(src, pos, "cannot compare number with %T", right)
		}
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	case string:
		r, ok := right.(string)
		if !ok {
			return nil, errAt(src, pos, "cannot compare string with %T", right)
		}
		cmp = strings.Compare(l, r)
	default:
		return nil, errAt(src, pos, "cannot compare %T values", left)
	}

	var result bool
	switch op {
	case tokLT:
		result = cmp < 0
	case tokLE:
		result = cmp <= 0
	case tokGT:
		result = cmp > 0
	case tokGE:
		result = cmp >= 0
	case tokEQ:
		result = cmp == 0
	case tokNE:
		result = cmp != 0
	}
	if result {
		return 1.0, nil
	}
	return 0.0, nil
}
