package lexer

type TokenScanner interface {
	Read() *Token
	Peek() *Token
	HasTokens() bool
}

// SimpleTokenScanner walks a materialized token slice. Reading past the end
// keeps returning an EOF token positioned right after the last token.
type SimpleTokenScanner struct {
	tokens []Token
	eof    Token

	pos int
}

func NewTokenScanner(tokens []Token) TokenScanner {
	eof := Token{Kind: EOF, Pos: Pos{Line: 1, Column: 1}}
	if len(tokens) > 0 {
		last := tokens[len(tokens)-1]
		eof.Pos = Pos{
			Offset: last.Pos.Offset + len(last.Value),
			Line:   last.Pos.Line,
			Column: last.Pos.Column + len(last.Value),
		}
	}

	return &SimpleTokenScanner{
		tokens: tokens,
		eof:    eof,
	}
}

func (s *SimpleTokenScanner) Read() *Token {
	token := s.at(s.pos)
	if s.pos < len(s.tokens) {
		s.pos++
	}

	return token
}

// Peek returns the token Read would return, without consuming it.
func (s *SimpleTokenScanner) Peek() *Token {
	return s.at(s.pos)
}

func (s *SimpleTokenScanner) HasTokens() bool {
	return s.pos < len(s.tokens)
}

func (s *SimpleTokenScanner) at(i int) *Token {
	if i >= len(s.tokens) {
		eof := s.eof
		return &eof
	}

	return &s.tokens[i]
}
