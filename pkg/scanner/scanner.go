// Package scanner implements the stateful, pull-based lexer for lox.
//
// A Scanner wraps a source buffer and hands out one Token per call to
// Next. It never looks ahead further than two bytes, never builds a
// token slice up front, and never allocates per-token storage: a
// Token's lexeme is a substring of the original source.
package scanner

import (
	"github.com/kristofer/loxvm/pkg/token"
)

// Scanner scans Tokens out of a source buffer. The zero value is not
// usable; construct one with New.
type Scanner struct {
	source  string
	start   int // start of the token currently being scanned
	current int // next byte to read
	line    int
}

// New creates a Scanner over src. src must outlive every Token the
// Scanner produces, since lexemes borrow directly into it.
func New(src string) *Scanner {
	return &Scanner{source: src, line: 1}
}

// Next scans and returns the next token. At end of input it returns
// token.EOF forever; scanning never panics on malformed input, it
// reports a token.Error token instead.
func (s *Scanner) Next() token.Token {
	s.skipWhitespace()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LeftParen)
	case ')':
		return s.make(token.RightParen)
	case '{':
		return s.make(token.LeftBrace)
	case '}':
		return s.make(token.RightBrace)
	case ';':
		return s.make(token.Semicolon)
	case ',':
		return s.make(token.Comma)
	case '.':
		return s.make(token.Dot)
	case '-':
		return s.make(token.Minus)
	case '+':
		return s.make(token.Plus)
	case '/':
		return s.make(token.Slash)
	case '*':
		return s.make(token.Star)
	case '!':
		return s.make(s.either('=', token.BangEqual, token.Bang))
	case '=':
		return s.make(s.either('=', token.EqualEqual, token.Equal))
	case '<':
		return s.make(s.either('=', token.LessEqual, token.Less))
	case '>':
		return s.make(s.either('=', token.GreaterEqual, token.Greater))
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.source) }

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) match(expected byte) bool {
	if s.atEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) either(expected byte, yes, no token.Kind) token.Kind {
	if s.match(expected) {
		return yes
	}
	return no
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.String)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.Number)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := s.source[s.start:s.current]
	kind, ok := token.Keywords[lexeme]
	if !ok {
		kind = token.Identifier
	}
	return s.make(kind)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{
		Kind:   kind,
		Lexeme: s.source[s.start:s.current],
		Line:   s.line,
	}
}

// errorToken returns a token.Error token whose lexeme is the static
// message itself, not a slice of source — matching spec's description
// of unterminated-string/unexpected-character diagnostics.
func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.Error, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
