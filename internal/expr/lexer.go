package expr

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
	tokLT
	tokLE
	tokGT
	tokGE
	tokEQ
	tokNE
)

type token struct {
	kind tokenKind
	pos  int
	num  float64
	str  string // string literal or identifier name
}

// lexer produces tokens from an expression source string.
// It carries no state beyond the scan position, keeping evaluation re-entrant.
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) next() (token, *Error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c >= '0' && c <= '9' || c == '.':
		return l.scanNumber()
	case c == '\'' || c == '"':
		return l.scanString()
	case isIdentStart(rune(c)):
		return l.scanIdent()
	}

	l.pos++
	switch c {
	case '+':
		return token{kind: tokPlus, pos: start}, nil
	case '-':
		return token{kind: tokMinus, pos: start}, nil
	case '*':
		return token{kind: tokStar, pos: start}, nil
	case '/':
		return token{kind: tokSlash, pos: start}, nil
	case '(':
		return token{kind: tokLParen, pos: start}, nil
	case ')':
		return token{kind: tokRParen, pos: start}, nil
	case ',':
		return token{kind: tokComma, pos: start}, nil
	case '<':
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tokLE, pos: start}, nil
		}
		return token{kind: tokLT, pos: start}, nil
	case '>':
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tokGE, pos: start}, nil
		}
		return token{kind: tokGT, pos: start}, nil
	case '=':
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tokEQ, pos: start}, nil
		}
		return token{}, errAt(l.src, start, "single '=' is not an operator (use '==')")
	case '!':
		if l.peekByte() == '=' {
			l.pos++
			return token{kind: tokNE, pos: start}, nil
		}
		return token{}, errAt(l.src, start, "unexpected character '!'")
	}

	return token{}, errAt(l.src, start, "unexpected character %q", string(c))
}

func (l *lexer) peekByte() byte {
	if l.pos < len(l.src) {
		return l.src[l.pos]
	}
	return 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func (l *lexer) scanNumber() (token, *Error) {
	start := l.pos
	sawDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '.' {
			if sawDot {
				break
			}
			sawDot = true
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	text := l.src[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, errAt(l.src, start, "malformed number %q", text)
	}
	return token{kind: tokNumber, pos: start, num: n}, nil
}

// scanString consumes a single- or double-quoted literal. The closing quote
// may be escaped with a backslash; \\ yields a literal backslash.
func (l *lexer) scanString() (token, *Error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++

	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			next := l.src[l.pos+1]
			if next == quote || next == '\\' {
				b.WriteByte(next)
				l.pos += 2
				continue
			}
		}
		if c == quote {
			l.pos++
			return token{kind: tokString, pos: start, str: b.String()}, nil
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, errAt(l.src, start, "unterminated string literal")
}

func (l *lexer) scanIdent() (token, *Error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	return token{kind: tokIdent, pos: start, str: l.src[start:l.pos]}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
