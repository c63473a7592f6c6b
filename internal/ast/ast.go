// Package ast declares the syntax tree of a Bitsy program.
//
// Statements and expressions are closed sets: only the types in this package
// implement Stmt and Expr, so a type switch over them is exhaustive.
package ast

import "github.com/kievzenit/bitsyc/internal/lexer"

type AstNode interface {
	FirstPos() lexer.Pos
}

type Stmt interface {
	AstNode
	stmtNode()
}

type Expr interface {
	AstNode
	exprNode()
}

type Program struct {
	StartPos lexer.Pos

	Block *Block
}

type Block struct {
	StartPos lexer.Pos

	Stmts []Stmt
}

func (p *Program) FirstPos() lexer.Pos { return p.StartPos }
func (b *Block) FirstPos() lexer.Pos   { return b.StartPos }
