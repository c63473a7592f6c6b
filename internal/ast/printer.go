package ast

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Fprint writes p back as Bitsy source, one statement per line, nested blocks
// indented by two spaces. Binary expressions are fully parenthesized, so the
// output parses back into the same tree.
func Fprint(w io.Writer, p *Program) error {
	pr := &printer{w: w}
	pr.line("BEGIN")
	pr.block(p.Block)
	pr.line("END")

	return pr.err
}

func Sprint(p *Program) string {
	var buf bytes.Buffer
	_ = Fprint(&buf, p)
	return buf.String()
}

// ExprString renders a single expression the way Fprint does.
func ExprString(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

type printer struct {
	w      io.Writer
	indent int
	err    error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}

	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

func (p *printer) block(b *Block) {
	p.indent++
	for _, stmt := range b.Stmts {
		p.stmt(stmt)
	}
	p.indent--
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *IfStmt:
		p.line("IF%s %s", s.Sign, ExprString(s.Cond))
		p.block(s.Then)
		if s.Else != nil {
			p.line("ELSE")
			p.block(s.Else)
		}
		p.line("END")
	case *LoopStmt:
		p.line("LOOP")
		p.block(s.Body)
		p.line("END")
	case *PrintStmt:
		p.line("PRINT %s", ExprString(s.Expr))
	case *ReadStmt:
		p.line("READ %s", s.Target.Name)
	case *AssignStmt:
		p.line("%s = %s", s.Target.Name, ExprString(s.Value))
	case *BreakStmt:
		p.line("BREAK")
	default:
		panic(fmt.Sprintf("ast: unexpected statement %T", s))
	}
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch e := e.(type) {
	case *NumberExpr:
		fmt.Fprintf(sb, "%d", e.Value)
	case *VariableExpr:
		sb.WriteString(e.Name)
	case *BinaryExpr:
		sb.WriteByte('(')
		writeExpr(sb, e.Left)
		fmt.Fprintf(sb, " %s ", e.Op)
		writeExpr(sb, e.Right)
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("ast: unexpected expression %T", e))
	}
}
