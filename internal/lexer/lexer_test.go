package lexer

import (
	"errors"
	"testing"

	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kv struct {
	Kind  TokenKind
	Value string
}

func lex(t *testing.T, src string) []kv {
	t.Helper()

	tokens, err := NewLexer([]byte(src), nil).Tokenize()
	require.NoError(t, err)

	out := make([]kv, len(tokens))
	for i, token := range tokens {
		out[i] = kv{token.Kind, token.Value}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []kv
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []kv{},
		},
		{
			name:     "Whitespace only",
			input:    " \t\r\n\v\f ",
			expected: []kv{},
		},
		{
			name:  "Minimal program",
			input: "BEGIN PRINT 1 END",
			expected: []kv{
				{BEGIN, "BEGIN"},
				{PRINT, "PRINT"},
				{NUMBER, "1"},
				{END, "END"},
			},
		},
		{
			name:  "All keywords",
			input: "BEGIN END LOOP BREAK IFN IFP IFZ ELSE PRINT READ",
			expected: []kv{
				{BEGIN, "BEGIN"},
				{END, "END"},
				{LOOP, "LOOP"},
				{BREAK, "BREAK"},
				{IFN, "IFN"},
				{IFP, "IFP"},
				{IFZ, "IFZ"},
				{ELSE, "ELSE"},
				{PRINT, "PRINT"},
				{READ, "READ"},
			},
		},
		{
			name:  "Keywords are case sensitive",
			input: "begin Print LOOPS _END",
			expected: []kv{
				{VARIABLE, "begin"},
				{VARIABLE, "Print"},
				{VARIABLE, "LOOPS"},
				{VARIABLE, "_END"},
			},
		},
		{
			name:  "Punctuation and operators",
			input: "x=(1+2)*3/4%5-6",
			expected: []kv{
				{VARIABLE, "x"},
				{ASSIGN, "="},
				{LPAREN, "("},
				{NUMBER, "1"},
				{OPERATOR, "+"},
				{NUMBER, "2"},
				{RPAREN, ")"},
				{OPERATOR, "*"},
				{NUMBER, "3"},
				{OPERATOR, "/"},
				{NUMBER, "4"},
				{OPERATOR, "%"},
				{NUMBER, "5"},
				{OPERATOR, "-"},
				{NUMBER, "6"},
			},
		},
		{
			name:  "Operator runs are one token",
			input: "1+-2",
			expected: []kv{
				{NUMBER, "1"},
				{OPERATOR, "+-"},
				{NUMBER, "2"},
			},
		},
		{
			name:  "Digits then letters split",
			input: "12ab a12",
			expected: []kv{
				{NUMBER, "12"},
				{VARIABLE, "ab"},
				{VARIABLE, "a12"},
			},
		},
		{
			name:  "Comment between tokens",
			input: "PRINT{ignored}1",
			expected: []kv{
				{PRINT, "PRINT"},
				{NUMBER, "1"},
			},
		},
		{
			name:  "Comment spanning lines with braces inside",
			input: "{ line one\n { still comment }X",
			expected: []kv{
				{VARIABLE, "X"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, lex(t, tt.input))
		})
	}
}

func TestCommentsNeverProduceTokens(t *testing.T) {
	withComment := lex(t, "PRINT{ignored}1")
	without := lex(t, "PRINT 1")

	assert.Equal(t, without, withComment)
}

func TestPositions(t *testing.T) {
	tokens, err := NewLexer([]byte("BEGIN\n  X = 10\nEND"), nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 5)

	assert.Equal(t, Pos{Offset: 0, Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Pos{Offset: 8, Line: 2, Column: 3}, tokens[1].Pos)
	assert.Equal(t, Pos{Offset: 10, Line: 2, Column: 5}, tokens[2].Pos)
	assert.Equal(t, Pos{Offset: 12, Line: 2, Column: 7}, tokens[3].Pos)
	assert.Equal(t, Pos{Offset: 15, Line: 3, Column: 1}, tokens[4].Pos)
}

func TestInvalidCharacter(t *testing.T) {
	eh := &compiler_errors.Discard{}
	_, err := NewLexer([]byte("BEGIN\nX = 1;\nEND"), eh).Tokenize()
	require.Error(t, err)

	var lexErr *LexerError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, Pos{Offset: 11, Line: 2, Column: 6}, lexErr.Pos)
	assert.Contains(t, lexErr.GetMessage(), "cannot handle current character")
	assert.Len(t, eh.Errors(), 1)
}

func TestNonASCIIIsRejected(t *testing.T) {
	_, err := NewLexer([]byte("X = ä"), nil).Tokenize()
	assert.Error(t, err)
}

func TestUnterminatedComment(t *testing.T) {
	_, err := NewLexer([]byte("BEGIN { never closed"), nil).Tokenize()
	require.Error(t, err)

	var lexErr *LexerError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, Pos{Offset: 6, Line: 1, Column: 7}, lexErr.Pos)
	assert.Contains(t, lexErr.GetMessage(), "unterminated comment")
}

func TestNextIsLazyAndSticky(t *testing.T) {
	l := NewLexer([]byte("X $ Y"), nil)

	token, ok, err := l.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "X", token.Value)

	_, _, err = l.Next()
	require.Error(t, err)

	_, ok, again := l.Next()
	assert.False(t, ok)
	assert.Equal(t, err, again)
}

func TestAllStopsEarly(t *testing.T) {
	l := NewLexer([]byte("A B C D"), nil)

	var seen []string
	for token, err := range l.All() {
		require.NoError(t, err)
		seen = append(seen, token.Value)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"A", "B"}, seen)

	token, ok, err := l.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C", token.Value)
}

func TestTokenString(t *testing.T) {
	number := Token{Kind: NUMBER, Value: "42"}
	begin := Token{Kind: BEGIN, Value: "BEGIN"}

	assert.Equal(t, "NUMBER(42)", number.String())
	assert.Equal(t, "BEGIN()", begin.String())
	assert.Panics(t, func() { _ = TokenKind(999).String() })
}

func TestTokenScanner(t *testing.T) {
	tokens, err := NewLexer([]byte("PRINT 12"), nil).Tokenize()
	require.NoError(t, err)

	s := NewTokenScanner(tokens)
	assert.True(t, s.HasTokens())
	assert.Equal(t, PRINT, s.Peek().Kind)
	assert.Equal(t, PRINT, s.Read().Kind)
	assert.Equal(t, NUMBER, s.Read().Kind)
	assert.False(t, s.HasTokens())

	eof := s.Read()
	assert.Equal(t, EOF, eof.Kind)
	assert.Equal(t, Pos{Offset: 8, Line: 1, Column: 9}, eof.Pos)
	assert.Equal(t, EOF, s.Peek().Kind)
}

func TestTokenScannerEmpty(t *testing.T) {
	s := NewTokenScanner(nil)
	assert.False(t, s.HasTokens())
	assert.Equal(t, EOF, s.Read().Kind)
}
