// Package scanner tokenizes Cedar source text. It is a straightforward
// lookahead DFA: deterministic, no I/O, one token at a time.
package scanner

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"unicode/utf8"

	"github.com/mna/cedar/lang/token"
)

// Error and ErrorList mirror the standard library's go/scanner diagnostic
// types so a scan that finds more than one problem can report all of them
// at once, sorted, with a single Error() string.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError prints err, which may be a single error, an ErrorList, or any
// other error, to w.
var PrintError = scanner.PrintError

// Scanner tokenizes a single source string.
type Scanner struct {
	src     []byte
	start   int
	current int
	line    int

	errs ErrorList
}

// New creates a Scanner over src.
func New(src string) *Scanner {
	return &Scanner{src: []byte(src), line: 1}
}

// Errors returns every diagnostic this Scanner has accumulated since it was
// created. It is empty unless a scan produced at least one error.
func (s *Scanner) Errors() ErrorList { return s.errs }

// ScanAll tokenizes the entire source, always ending with an EOF token. If
// any character-level error was encountered, it returns every token
// scanned so far (for diagnostic purposes) along with a non-nil error, an
// ErrorList holding every diagnostic.
func ScanAll(src string) ([]token.Token, error) {
	s := New(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, s.errs.Err()
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) match(want byte) bool {
	if s.isAtEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.current++
		case '\n':
			s.line++
			s.current++
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.isAtEnd() {
					s.current++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) makeToken(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Line: s.line, Lexeme: string(s.src[s.start:s.current])}
}

func (s *Scanner) errorf(format string, args ...any) token.Token {
	s.errs.Add(gotoken.Position{Line: s.line}, fmt.Sprintf(format, args...))
	return token.Token{Kind: token.ILLEGAL, Line: s.line}
}

// Scan returns the next token in the source, advancing past it. Scanning
// past EOF keeps returning EOF tokens.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespace()
	s.start = s.current
	if s.isAtEnd() {
		return s.makeToken(token.EOF)
	}

	c := s.advance()
	if isDigit(c) {
		return s.number()
	}
	if isAlpha(c) {
		return s.identifier()
	}

	switch c {
	case '(':
		return s.makeToken(token.LPAREN)
	case ')':
		return s.makeToken(token.RPAREN)
	case '{':
		return s.makeToken(token.LBRACE)
	case '}':
		return s.makeToken(token.RBRACE)
	case ';':
		return s.makeToken(token.SEMICOLON)
	case ',':
		return s.makeToken(token.COMMA)
	case '.':
		return s.makeToken(token.DOT)
	case '-':
		return s.makeToken(token.MINUS)
	case '+':
		return s.makeToken(token.PLUS)
	case '/':
		return s.makeToken(token.SLASH)
	case '*':
		return s.makeToken(token.STAR)
	case '!':
		if s.match('=') {
			return s.makeToken(token.BANG_EQ)
		}
		return s.makeToken(token.BANG)
	case '=':
		if s.match('=') {
			return s.makeToken(token.EQ_EQ)
		}
		return s.makeToken(token.EQ)
	case '<':
		if s.match('=') {
			return s.makeToken(token.LESS_EQ)
		}
		return s.makeToken(token.LESS)
	case '>':
		if s.match('=') {
			return s.makeToken(token.GREATER_EQ)
		}
		return s.makeToken(token.GREATER)
	case '"':
		return s.string()
	}

	return s.errorf("unexpected character %q", rune(c))
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.current++
	}
	if s.isAtEnd() {
		return s.errorf("unterminated string")
	}
	s.current++ // closing quote
	return s.makeToken(token.STRING)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.current++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++ // consume the '.'
		for isDigit(s.peek()) {
			s.current++
		}
	} else if s.peek() == '.' {
		return s.errorf("number ends with '.' with no following digit")
	}
	return s.makeToken(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlphaNumeric(s.peek()) || s.peek() == '-' {
		s.current++
		if s.peek() == '-' && !isAlphaNumeric(s.peekNext()) {
			return s.errorf("identifier ends with '-'")
		}
	}
	lexeme := string(s.src[s.start:s.current])
	return token.Token{Kind: token.Lookup(lexeme), Line: s.line, Lexeme: lexeme}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isAlphaNumeric(c byte) bool { return isAlpha(c) || isDigit(c) }
