package lexer

import (
	"fmt"
	"iter"

	"github.com/kievzenit/bitsyc/internal/compiler_errors"
)

type LexerError struct {
	Message string
	Pos     Pos
}

func newUnexpectedError(unexpected byte, pos Pos) *LexerError {
	return &LexerError{
		Message: fmt.Sprintf("cannot handle current character: %q", unexpected),
		Pos:     pos,
	}
}

func newUnterminatedCommentError(pos Pos) *LexerError {
	return &LexerError{
		Message: "unterminated comment, expected '}'",
		Pos:     pos,
	}
}

func (e *LexerError) GetMessage() string {
	return e.Message
}

func (e *LexerError) GetPos() Pos {
	return e.Pos
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Lexer turns Bitsy source into tokens. It reads the buffer once, front to
// back, and can not be restarted.
type Lexer struct {
	buf []byte
	pos int

	line, col int

	err error

	eh compiler_errors.ErrorHandler
}

func NewLexer(buf []byte, eh compiler_errors.ErrorHandler) *Lexer {
	if eh == nil {
		eh = &compiler_errors.Discard{}
	}

	return &Lexer{
		buf: buf,
		pos: 0,

		line: 1,
		col:  1,

		eh: eh,
	}
}

// Next returns the next token. ok is false once the input is exhausted. After
// an error every further call returns the same error.
func (l *Lexer) Next() (token Token, ok bool, err error) {
	if l.err != nil {
		return Token{}, false, l.err
	}

	for l.hasChars() {
		switch {
		case l.isCurrSkippable():
			l.advance()

		case l.read() == '{':
			if err := l.skipComment(); err != nil {
				return Token{}, false, l.fail(err)
			}

		case l.isCurrDigit():
			return l.processWhile(NUMBER, isDigit), true, nil

		case l.isCurrOperator():
			return l.processWhile(OPERATOR, isOperator), true, nil

		case l.read() == '=':
			return l.processSingle(ASSIGN), true, nil

		case l.read() == '(':
			return l.processSingle(LPAREN), true, nil

		case l.read() == ')':
			return l.processSingle(RPAREN), true, nil

		case l.isCurrIdentifier():
			return l.processIdentifier(), true, nil

		default:
			return Token{}, false, l.fail(newUnexpectedError(l.read(), l.currPos()))
		}
	}

	return Token{}, false, nil
}

// All yields tokens lazily. A lexical error is yielded once, as the last
// element.
func (l *Lexer) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			token, ok, err := l.Next()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(token, nil) {
				return
			}
		}
	}
}

func (l *Lexer) Tokenize() ([]Token, error) {
	tokens := make([]Token, 0)
	for token, err := range l.All() {
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	return tokens, nil
}

func (l *Lexer) fail(err *LexerError) error {
	l.eh.AddError(err)
	l.err = err
	return err
}

func (l *Lexer) skipComment() *LexerError {
	start := l.currPos()
	l.advance()

	for l.hasChars() {
		if l.read() == '}' {
			l.advance()
			return nil
		}
		l.advance()
	}

	return newUnterminatedCommentError(start)
}

func (l *Lexer) processSingle(kind TokenKind) Token {
	token := Token{
		Kind:  kind,
		Value: string(l.read()),
		Pos:   l.currPos(),
	}
	l.advance()

	return token
}

func (l *Lexer) processWhile(kind TokenKind, matches func(byte) bool) Token {
	start := l.currPos()
	for l.hasChars() && matches(l.read()) {
		l.advance()
	}

	return Token{
		Kind:  kind,
		Value: string(l.buf[start.Offset:l.pos]),
		Pos:   start,
	}
}

func (l *Lexer) processIdentifier() Token {
	token := l.processWhile(VARIABLE, isIdentifier)
	if kind, ok := keywords[token.Value]; ok {
		token.Kind = kind
	}

	return token
}

func (l *Lexer) isCurrSkippable() bool {
	switch l.read() {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}

	return false
}

func (l *Lexer) isCurrDigit() bool      { return isDigit(l.read()) }
func (l *Lexer) isCurrOperator() bool   { return isOperator(l.read()) }
func (l *Lexer) isCurrIdentifier() bool { return isIdentifier(l.read()) }

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isOperator(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%':
		return true
	}
	return false
}

func isIdentifier(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c) || c == '_'
}

func (l *Lexer) currPos() Pos {
	return Pos{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) hasChars() bool {
	return l.pos < len(l.buf)
}

func (l *Lexer) advance() {
	if l.buf[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) read() byte { return l.buf[l.pos] }
