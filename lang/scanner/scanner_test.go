package scanner_test

import (
	"testing"

	"github.com/mna/cedar/lang/scanner"
	"github.com/mna/cedar/lang/token"
	"github.com/stretchr/testify/require"
)

func TestScanAll(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want []token.Kind
	}{
		{"empty", "", []token.Kind{token.EOF}},
		{"punctuation", "(){};,.-+/* ", []token.Kind{
			token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMICOLON,
			token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SLASH, token.STAR, token.EOF,
		}},
		{"two-char operators", "! != = == < <= > >=", []token.Kind{
			token.BANG, token.BANG_EQ, token.EQ, token.EQ_EQ,
			token.LESS, token.LESS_EQ, token.GREATER, token.GREATER_EQ, token.EOF,
		}},
		{"keywords", "and class else false fn for if null or print return super self true let while", []token.Kind{
			token.AND, token.CLASS, token.ELSE, token.FALSE, token.FN, token.FOR, token.IF,
			token.NULL, token.OR, token.PRINT, token.RETURN, token.SUPER, token.SELF,
			token.TRUE, token.LET, token.WHILE, token.EOF,
		}},
		{"identifier with dash", "foo-bar", []token.Kind{token.IDENT, token.EOF}},
		{"number", "123", []token.Kind{token.NUMBER, token.EOF}},
		{"float", "1.5", []token.Kind{token.NUMBER, token.EOF}},
		{"string", `"hello world"`, []token.Kind{token.STRING, token.EOF}},
		{"line comment", "let a = 1; // trailing\nlet b = 2;", []token.Kind{
			token.LET, token.IDENT, token.EQ, token.NUMBER, token.SEMICOLON,
			token.LET, token.IDENT, token.EQ, token.NUMBER, token.SEMICOLON, token.EOF,
		}},
	}

	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			toks, err := scanner.ScanAll(tt.src)
			require.NoError(t, err)
			got := make([]token.Kind, len(toks))
			for i, tok := range toks {
				got[i] = tok.Kind
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScanErrors(t *testing.T) {
	cases := []struct {
		desc string
		src  string
		want string
	}{
		{"unterminated string", `"abc`, "unterminated string"},
		{"trailing dot", "1.", "ends with '.'"},
		{"trailing dash", "foo-", "ends with '-'"},
		{"unexpected char", "@", "unexpected character"},
	}

	for _, tt := range cases {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := scanner.ScanAll(tt.src)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLineTracking(t *testing.T) {
	toks, err := scanner.ScanAll("let a = 1;\nlet b = 2;\n")
	require.NoError(t, err)
	require.Len(t, toks, 11)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[5].Line)
}
