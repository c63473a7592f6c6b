package parser

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kievzenit/bitsyc/internal/ast"
	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/kievzenit/bitsyc/internal/lexer"
)

type UnexpectedExpectedError struct {
	Unexpected lexer.Token
	Expected   lexer.TokenKind
}

func (e *UnexpectedExpectedError) GetMessage() string {
	return fmt.Sprintf("unexpected token: '%s', expected: '%s'", describe(e.Unexpected), e.Expected)
}

func (e *UnexpectedExpectedError) GetPos() lexer.Pos { return e.Unexpected.Pos }
func (e *UnexpectedExpectedError) Error() string     { return errorString(e) }

type UnexpectedExpectedManyError struct {
	Unexpected lexer.Token
	Expected   []lexer.TokenKind
}

func (e *UnexpectedExpectedManyError) GetMessage() string {
	expectedKinds := make([]string, len(e.Expected))
	for i, kind := range e.Expected {
		expectedKinds[i] = "'" + kind.String() + "'"
	}
	return fmt.Sprintf(
		"unexpected token: '%s', expected one of: %s",
		describe(e.Unexpected),
		strings.Join(expectedKinds, ", "))
}

func (e *UnexpectedExpectedManyError) GetPos() lexer.Pos { return e.Unexpected.Pos }
func (e *UnexpectedExpectedManyError) Error() string     { return errorString(e) }

type UnexpectedError struct {
	Unexpected lexer.Token
	Context    string
}

func (e *UnexpectedError) GetMessage() string {
	return fmt.Sprintf("unexpected token %s: '%s'", e.Context, describe(e.Unexpected))
}

func (e *UnexpectedError) GetPos() lexer.Pos { return e.Unexpected.Pos }
func (e *UnexpectedError) Error() string     { return errorString(e) }

type SyntaxError struct {
	Message string
	Pos     lexer.Pos
}

func (e *SyntaxError) GetMessage() string { return e.Message }
func (e *SyntaxError) GetPos() lexer.Pos  { return e.Pos }
func (e *SyntaxError) Error() string      { return errorString(e) }

func errorString(e compiler_errors.CompilerError) string {
	return fmt.Sprintf("%s: %s", e.GetPos(), e.GetMessage())
}

func describe(token lexer.Token) string {
	switch token.Kind {
	case lexer.EOF:
		return "end of input"
	case lexer.VARIABLE, lexer.NUMBER, lexer.OPERATOR:
		return token.String()
	}
	return token.Kind.String()
}

// bailout unwinds the parser to Parse on the first syntax error.
type bailout struct {
	err compiler_errors.CompilerError
}

type Parser struct {
	scanner lexer.TokenScanner
	eh      compiler_errors.ErrorHandler

	curr *lexer.Token
}

var precedenceLookup = map[string]int{
	"+": 100,
	"-": 100,
	"*": 200,
	"/": 200,
	"%": 200,
}

func NewParser(scanner lexer.TokenScanner, eh compiler_errors.ErrorHandler) *Parser {
	if eh == nil {
		eh = &compiler_errors.Discard{}
	}

	return &Parser{
		scanner: scanner,
		eh:      eh,
		curr:    scanner.Read(),
	}
}

// Parse parses a whole program. The first syntax error aborts parsing; it is
// reported to the error handler and returned.
func (p *Parser) Parse() (*ast.Program, error) {
	var program *ast.Program
	if err := p.guard(func() { program = p.parseProgram() }); err != nil {
		return nil, err
	}
	return program, nil
}

// ParseExpr parses the token stream as a single expression.
func (p *Parser) ParseExpr() (ast.Expr, error) {
	var expr ast.Expr
	err := p.guard(func() {
		e := p.parseExpr()
		if p.curr.Kind != lexer.EOF {
			p.unexpected("after expression")
		}
		expr = e
	})
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// guard runs parse and turns a bailout into the error it carries.
func (p *Parser) guard(parse func()) (err error) {
	defer p.handleBailout(&err)
	parse()
	return nil
}

func (p *Parser) parseProgram() *ast.Program {
	p.expect(lexer.BEGIN)
	startPos := p.curr.Pos
	p.read()

	block := p.parseBlock(startPos)

	p.expect(lexer.END)
	p.read()

	if p.curr.Kind != lexer.EOF {
		p.unexpected("after program END")
	}

	return &ast.Program{
		StartPos: startPos,

		Block: block,
	}
}

func (p *Parser) handleBailout(err *error) {
	r := recover()
	if r == nil {
		return
	}

	b, ok := r.(bailout)
	if !ok {
		panic(r)
	}
	*err = b.err
}

// parseBlock collects statements until END or one of stops. The terminator
// itself is left for the caller.
func (p *Parser) parseBlock(startPos lexer.Pos, stops ...lexer.TokenKind) *ast.Block {
	stmts := make([]ast.Stmt, 0)
	for !p.isCurrAny(lexer.END) && !p.isCurrAny(stops...) {
		if p.curr.Kind == lexer.EOF {
			if len(stops) == 0 {
				p.expect(lexer.END)
			}
			p.expectAny(append([]lexer.TokenKind{lexer.END}, stops...)...)
		}

		stmts = append(stmts, p.parseStmt())
	}

	return &ast.Block{
		StartPos: startPos,

		Stmts: stmts,
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curr.Kind {
	case lexer.IFN:
		return p.parseIfStmt(ast.SignNegative)
	case lexer.IFP:
		return p.parseIfStmt(ast.SignPositive)
	case lexer.IFZ:
		return p.parseIfStmt(ast.SignZero)
	case lexer.LOOP:
		return p.parseLoopStmt()
	case lexer.PRINT:
		return p.parsePrintStmt()
	case lexer.READ:
		return p.parseReadStmt()
	case lexer.BREAK:
		return p.parseBreakStmt()
	case lexer.VARIABLE:
		return p.parseAssignStmt()
	}

	p.unexpected("at start of statement")
	panic("unreachable")
}

func (p *Parser) parseIfStmt(sign ast.SignKind) *ast.IfStmt {
	p.expect(sign.Keyword())
	startPos := p.curr.Pos
	p.read()

	cond := p.parseExpr()
	then := p.parseBlock(startPos, lexer.ELSE)

	var elseBlock *ast.Block
	if p.curr.Kind == lexer.ELSE {
		elsePos := p.curr.Pos
		p.read()
		elseBlock = p.parseBlock(elsePos)
	}

	p.expect(lexer.END)
	p.read()

	return &ast.IfStmt{
		StartPos: startPos,

		Sign: sign,
		Cond: cond,
		Then: then,
		Else: elseBlock,
	}
}

func (p *Parser) parseLoopStmt() *ast.LoopStmt {
	p.expect(lexer.LOOP)
	startPos := p.curr.Pos
	p.read()

	body := p.parseBlock(startPos)

	p.expect(lexer.END)
	p.read()

	return &ast.LoopStmt{
		StartPos: startPos,

		Body: body,
	}
}

func (p *Parser) parsePrintStmt() *ast.PrintStmt {
	p.expect(lexer.PRINT)
	startPos := p.curr.Pos
	p.read()

	return &ast.PrintStmt{
		StartPos: startPos,

		Expr: p.parseExpr(),
	}
}

func (p *Parser) parseReadStmt() *ast.ReadStmt {
	p.expect(lexer.READ)
	startPos := p.curr.Pos
	p.read()

	return &ast.ReadStmt{
		StartPos: startPos,

		Target: p.parseVariableExpr(),
	}
}

func (p *Parser) parseBreakStmt() *ast.BreakStmt {
	p.expect(lexer.BREAK)
	startPos := p.curr.Pos
	p.read()

	return &ast.BreakStmt{
		StartPos: startPos,
	}
}

func (p *Parser) parseAssignStmt() *ast.AssignStmt {
	target := p.parseVariableExpr()

	p.expect(lexer.ASSIGN)
	p.read()

	return &ast.AssignStmt{
		StartPos: target.StartPos,

		Target: target,
		Value:  p.parseExpr(),
	}
}

func (p *Parser) parseExpr() ast.Expr {
	left := p.parsePrimaryExpr()
	return p.parseBinaryExpr(left, 0)
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	switch p.curr.Kind {
	case lexer.OPERATOR:
		return p.parseSignedNumberExpr()
	case lexer.NUMBER:
		return p.parseNumberExpr("", p.curr.Pos)
	case lexer.VARIABLE:
		return p.parseVariableExpr()
	case lexer.LPAREN:
		return p.parseParenExpr()
	}

	p.unexpected("in expression")
	panic("unreachable")
}

// parseSignedNumberExpr folds a leading + or - into the number literal that
// follows it.
func (p *Parser) parseSignedNumberExpr() *ast.NumberExpr {
	op := *p.curr
	if op.Value != "-" && op.Value != "+" {
		p.fail(&SyntaxError{
			Message: fmt.Sprintf("unknown unary operator '%s'", op.Value),
			Pos:     op.Pos,
		})
	}
	p.read()

	p.expect(lexer.NUMBER)
	return p.parseNumberExpr(op.Value, op.Pos)
}

func (p *Parser) parseNumberExpr(sign string, startPos lexer.Pos) *ast.NumberExpr {
	p.expect(lexer.NUMBER)

	value, err := strconv.ParseInt(sign+p.curr.Value, 10, 32)
	if err != nil {
		p.fail(&SyntaxError{
			Message: fmt.Sprintf("number literal %s%s does not fit in 32 bits", sign, p.curr.Value),
			Pos:     startPos,
		})
	}
	p.read()

	return &ast.NumberExpr{
		StartPos: startPos,

		Value: int32(value),
	}
}

func (p *Parser) parseVariableExpr() *ast.VariableExpr {
	p.expect(lexer.VARIABLE)
	startPos := p.curr.Pos
	name := p.curr.Value
	p.read()

	return &ast.VariableExpr{
		StartPos: startPos,

		Name: name,
	}
}

func (p *Parser) parseParenExpr() ast.Expr {
	p.expect(lexer.LPAREN)
	p.read()

	expr := p.parseExpr()

	p.expect(lexer.RPAREN)
	p.read()

	return expr
}

// parseBinaryExpr is a precedence climber: it folds operators binding at
// least as tight as minPrecedence into left, recursing for tighter operators
// on the right so equal precedence associates to the left.
func (p *Parser) parseBinaryExpr(left ast.Expr, minPrecedence int) ast.Expr {
	for {
		op := *p.curr
		currentPrecedence := precedence(&op)
		if currentPrecedence < 0 || currentPrecedence < minPrecedence {
			return left
		}
		p.read()

		right := p.parsePrimaryExpr()

		if nextPrecedence := precedence(p.curr); currentPrecedence < nextPrecedence {
			right = p.parseBinaryExpr(right, currentPrecedence+1)
		}

		binaryOp, err := ast.ParseBinaryOp(op.Value)
		if err != nil {
			panic(err)
		}

		left = &ast.BinaryExpr{
			StartPos: left.FirstPos(),

			Op:    binaryOp,
			Left:  left,
			Right: right,
		}
	}
}

func precedence(token *lexer.Token) int {
	if token.Kind != lexer.OPERATOR {
		return -1
	}

	if p, ok := precedenceLookup[token.Value]; ok {
		return p
	}
	return -1
}

func (p *Parser) read() *lexer.Token {
	p.curr = p.scanner.Read()
	return p.curr
}

func (p *Parser) fail(err compiler_errors.CompilerError) {
	p.eh.AddError(err)
	panic(bailout{err: err})
}

func (p *Parser) expect(kind lexer.TokenKind) {
	if p.curr.Kind != kind {
		p.fail(&UnexpectedExpectedError{
			Unexpected: *p.curr,
			Expected:   kind,
		})
	}
}

func (p *Parser) expectAny(kinds ...lexer.TokenKind) {
	if p.isCurrAny(kinds...) {
		return
	}

	p.fail(&UnexpectedExpectedManyError{
		Unexpected: *p.curr,
		Expected:   kinds,
	})
}

func (p *Parser) isCurrAny(kinds ...lexer.TokenKind) bool {
	return slices.Contains(kinds, p.curr.Kind)
}

func (p *Parser) unexpected(context string) {
	p.fail(&UnexpectedError{
		Unexpected: *p.curr,
		Context:    context,
	})
}
