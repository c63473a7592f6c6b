package ast

import (
	"fmt"

	"github.com/kievzenit/bitsyc/internal/lexer"
)

// SignKind selects the comparison an IfStmt performs against zero.
type SignKind int

const (
	SignNegative SignKind = iota
	SignPositive
	SignZero
)

func (s SignKind) String() string {
	switch s {
	case SignNegative:
		return "N"
	case SignPositive:
		return "P"
	case SignZero:
		return "Z"
	default:
		panic(fmt.Sprintf("SignKind.String(): received illegal sign kind: %d", s))
	}
}

// Keyword returns the token kind that introduces an if statement of kind s.
func (s SignKind) Keyword() lexer.TokenKind {
	switch s {
	case SignNegative:
		return lexer.IFN
	case SignPositive:
		return lexer.IFP
	default:
		return lexer.IFZ
	}
}

type IfStmt struct {
	StartPos lexer.Pos

	Sign SignKind
	Cond Expr
	Then *Block
	Else *Block // nil without ELSE
}

type LoopStmt struct {
	StartPos lexer.Pos

	Body *Block
}

type PrintStmt struct {
	StartPos lexer.Pos

	Expr Expr
}

type ReadStmt struct {
	StartPos lexer.Pos

	Target *VariableExpr
}

type AssignStmt struct {
	StartPos lexer.Pos

	Target *VariableExpr
	Value  Expr
}

type BreakStmt struct {
	StartPos lexer.Pos
}

func (i *IfStmt) FirstPos() lexer.Pos     { return i.StartPos }
func (l *LoopStmt) FirstPos() lexer.Pos   { return l.StartPos }
func (p *PrintStmt) FirstPos() lexer.Pos  { return p.StartPos }
func (r *ReadStmt) FirstPos() lexer.Pos   { return r.StartPos }
func (a *AssignStmt) FirstPos() lexer.Pos { return a.StartPos }
func (b *BreakStmt) FirstPos() lexer.Pos  { return b.StartPos }

func (i *IfStmt) stmtNode()     {}
func (l *LoopStmt) stmtNode()   {}
func (p *PrintStmt) stmtNode()  {}
func (r *ReadStmt) stmtNode()   {}
func (a *AssignStmt) stmtNode() {}
func (b *BreakStmt) stmtNode()  {}
