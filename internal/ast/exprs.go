package ast

import (
	"fmt"

	"github.com/kievzenit/bitsyc/internal/lexer"
)

type BinaryOp byte

const (
	BinaryAdd BinaryOp = '+'
	BinarySub BinaryOp = '-'
	BinaryMul BinaryOp = '*'
	BinaryDiv BinaryOp = '/'
	BinaryMod BinaryOp = '%'
)

func (op BinaryOp) String() string {
	return string(op)
}

// ParseBinaryOp maps an operator lexeme to its BinaryOp.
func ParseBinaryOp(lexeme string) (BinaryOp, error) {
	switch lexeme {
	case "+":
		return BinaryAdd, nil
	case "-":
		return BinarySub, nil
	case "*":
		return BinaryMul, nil
	case "/":
		return BinaryDiv, nil
	case "%":
		return BinaryMod, nil
	}

	return 0, fmt.Errorf("not a binary operator: %q", lexeme)
}

type NumberExpr struct {
	StartPos lexer.Pos

	Value int32
}

type VariableExpr struct {
	StartPos lexer.Pos

	Name string
}

type BinaryExpr struct {
	StartPos lexer.Pos

	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *NumberExpr) FirstPos() lexer.Pos   { return n.StartPos }
func (v *VariableExpr) FirstPos() lexer.Pos { return v.StartPos }
func (b *BinaryExpr) FirstPos() lexer.Pos   { return b.StartPos }

func (n *NumberExpr) exprNode()   {}
func (v *VariableExpr) exprNode() {}
func (b *BinaryExpr) exprNode()   {}
