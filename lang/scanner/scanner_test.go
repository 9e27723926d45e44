package scanner_test

import (
	"testing"

	"github.com/arborvm/clox/lang/scanner"
	"github.com/arborvm/clox/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	s := scanner.New(src)
	var toks []token.Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndDualTokens(t *testing.T) {
	toks := scanAll(t, "!= == <= >= ! < > = + - * /")
	want := []token.Type{
		token.BANG_EQ, token.EQ_EQ, token.LESS_EQ, token.GREATER_EQ,
		token.BANG, token.LESS, token.GREATER, token.EQ,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w, toks[i].Type, "token %d", i)
	}
}

func TestScanNumber(t *testing.T) {
	toks := scanAll(t, "123 1.5")
	require.Len(t, toks, 3)
	assert.Equal(t, token.NUMBER, toks[0].Type)
	assert.Equal(t, "123", toks[0].Lexeme)
	assert.Equal(t, token.NUMBER, toks[1].Type)
	assert.Equal(t, "1.5", toks[1].Lexeme)
}

func TestScanStringSpanningLines(t *testing.T) {
	toks := scanAll(t, "\"foo\nbar\"")
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "\"foo\nbar\"", toks[0].Lexeme)
	assert.Equal(t, 2, toks[0].Line)
}

func TestUnterminatedString(t *testing.T) {
	toks := scanAll(t, "\"no closing quote")
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
	assert.Equal(t, "Unterminated string.", toks[0].Message)
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
	assert.Equal(t, "Unexpected character.", toks[0].Message)
}

func TestLineCommentsAndNewlines(t *testing.T) {
	toks := scanAll(t, "var a; // comment\nprint a;")
	require.NotEmpty(t, toks)
	var printTok token.Token
	for _, tk := range toks {
		if tk.Type == token.PRINT {
			printTok = tk
		}
	}
	assert.Equal(t, 2, printTok.Line)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = true and false or nil")
	types := make([]token.Type, 0, len(toks))
	for _, tk := range toks {
		types = append(types, tk.Type)
	}
	assert.Equal(t, []token.Type{
		token.VAR, token.IDENT, token.EQ, token.TRUE, token.AND, token.FALSE,
		token.OR, token.NIL, token.EOF,
	}, types)
}

func TestEOFRepeats(t *testing.T) {
	s := scanner.New("")
	assert.Equal(t, token.EOF, s.ScanToken().Type)
	assert.Equal(t, token.EOF, s.ScanToken().Type)
}
