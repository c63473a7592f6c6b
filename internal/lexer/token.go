package lexer

import (
	"fmt"

	"github.com/kievzenit/bitsyc/internal/compiler_errors"
)

type Pos = compiler_errors.Pos

type TokenKind int

const (
	// EOF is never produced by the lexer, the scanner returns it once the
	// token slice is exhausted.
	EOF TokenKind = iota

	BEGIN
	END

	LOOP
	BREAK
	IFN
	IFP
	IFZ
	ELSE

	VARIABLE
	NUMBER

	LPAREN   // (
	RPAREN   // )
	OPERATOR // + - * / %
	ASSIGN   // =

	PRINT
	READ
)

var keywords = map[string]TokenKind{
	"BEGIN": BEGIN,
	"END":   END,
	"LOOP":  LOOP,
	"BREAK": BREAK,
	"IFN":   IFN,
	"IFP":   IFP,
	"IFZ":   IFZ,
	"ELSE":  ELSE,
	"PRINT": PRINT,
	"READ":  READ,
}

func (tk TokenKind) String() string {
	switch tk {
	case EOF:
		return "EOF"
	case BEGIN:
		return "BEGIN"
	case END:
		return "END"
	case LOOP:
		return "LOOP"
	case BREAK:
		return "BREAK"
	case IFN:
		return "IFN"
	case IFP:
		return "IFP"
	case IFZ:
		return "IFZ"
	case ELSE:
		return "ELSE"
	case VARIABLE:
		return "VARIABLE"
	case NUMBER:
		return "NUMBER"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case OPERATOR:
		return "OPERATOR"
	case ASSIGN:
		return "ASSIGN"
	case PRINT:
		return "PRINT"
	case READ:
		return "READ"
	default:
		panic(fmt.Sprintf("TokenKind.String(): received illegal token kind: %d", tk))
	}
}

type Token struct {
	Kind  TokenKind
	Value string

	Pos Pos
}

func (t *Token) hasActualValue() bool {
	switch t.Kind {
	case VARIABLE, NUMBER, OPERATOR:
		return true
	}

	return false
}

func (t *Token) String() string {
	if !t.hasActualValue() {
		return fmt.Sprintf("%s()", t.Kind)
	}

	return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
}
