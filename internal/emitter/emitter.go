package emitter

import (
	"fmt"

	"github.com/kievzenit/bitsyc/internal/ast"
	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/lexer"
)

const (
	ReadTemplate  = "%i"
	PrintTemplate = "%i\n"
)

type GenerationError struct {
	Message string
	Pos     lexer.Pos
}

func (e *GenerationError) GetMessage() string { return e.Message }
func (e *GenerationError) GetPos() lexer.Pos  { return e.Pos }

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

type bailout struct {
	err *GenerationError
}

// outcome tells whether lowering left the current block open for more
// instructions or ended it with a branch.
type outcome int

const (
	completed outcome = iota
	terminated
)

type Emitter struct {
	program *ast.Program
	eh      compiler_errors.ErrorHandler

	module  *ir.Module
	builder *ir.Builder

	printf        *ir.Extern
	scanf         *ir.Extern
	readTemplate  ir.Value
	printTemplate ir.Value

	variablesMap map[string]ir.Value

	currentFunc            *ir.Function
	currentAllocBasicBlock *ir.BasicBlock

	loopsBreakBasicBlock []*ir.BasicBlock
}

func NewEmitter(moduleName string, program *ast.Program, eh compiler_errors.ErrorHandler) *Emitter {
	if eh == nil {
		eh = &compiler_errors.Discard{}
	}

	return &Emitter{
		program: program,
		eh:      eh,

		module:  ir.NewModule(moduleName),
		builder: ir.NewBuilder(),

		variablesMap: make(map[string]ir.Value),

		loopsBreakBasicBlock: make([]*ir.BasicBlock, 0),
	}
}

// Emit lowers the program into a module with a single function main. Every
// variable gets one i32 slot, allocated and zeroed in the alloc block the
// first time the name is seen.
func (e *Emitter) Emit() (module *ir.Module, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		module, err = nil, b.err
	}()

	e.declareRuntime()

	e.currentFunc = e.module.AddFunction("main", ir.I32)
	e.currentAllocBasicBlock = e.currentFunc.AddBlock("alloc")
	entry := e.currentFunc.AddBlock("entry")

	e.builder.SetInsertPointAtEnd(entry)
	if e.emitForBlock(e.program.Block) == completed {
		e.builder.CreateRet(ir.Const(0))
	}

	e.builder.SetInsertPointAtEnd(e.currentAllocBasicBlock)
	e.builder.CreateBr(entry)

	return e.module, nil
}

func (e *Emitter) declareRuntime() {
	e.readTemplate = e.module.AddGlobalString("read_template", ReadTemplate)
	e.printTemplate = e.module.AddGlobalString("print_template", PrintTemplate)

	e.printf = e.module.AddExtern("printf", ir.I32, []ir.Type{ir.Ptr}, true)
	e.scanf = e.module.AddExtern("scanf", ir.I32, []ir.Type{ir.Ptr}, true)
}

func (e *Emitter) fail(message string, pos lexer.Pos) {
	err := &GenerationError{
		Message: message,
		Pos:     pos,
	}
	e.eh.AddError(err)
	panic(bailout{err: err})
}

func (e *Emitter) emitForBlock(block *ast.Block) outcome {
	for _, stmt := range block.Stmts {
		if e.emitForStmt(stmt) == terminated {
			return terminated
		}
	}

	return completed
}

func (e *Emitter) emitForStmt(stmt ast.Stmt) outcome {
	switch stmt := stmt.(type) {
	case *ast.IfStmt:
		return e.emitForIfStmt(stmt)
	case *ast.LoopStmt:
		return e.emitForLoopStmt(stmt)
	case *ast.BreakStmt:
		return e.emitForBreakStmt(stmt)
	case *ast.PrintStmt:
		e.emitForPrintStmt(stmt)
	case *ast.ReadStmt:
		e.emitForReadStmt(stmt)
	case *ast.AssignStmt:
		e.emitForAssignStmt(stmt)
	default:
		panic(fmt.Sprintf("emitter: unexpected statement %T", stmt))
	}

	return completed
}

func (e *Emitter) emitForIfStmt(ifStmt *ast.IfStmt) outcome {
	cond := e.emitSignTest(ifStmt.Sign, e.emitForExpr(ifStmt.Cond))

	thenBlock := e.currentFunc.AddBlock("then")
	var elseBlock *ir.BasicBlock
	if ifStmt.Else != nil {
		elseBlock = e.currentFunc.AddBlock("else")
	}
	continuationBlock := e.currentFunc.AddBlock("continuation")

	if elseBlock != nil {
		e.builder.CreateCondBr(cond, thenBlock, elseBlock)
	} else {
		e.builder.CreateCondBr(cond, thenBlock, continuationBlock)
	}

	e.builder.SetInsertPointAtEnd(thenBlock)
	if e.emitForBlock(ifStmt.Then) == completed {
		e.builder.CreateBr(continuationBlock)
	}

	if elseBlock != nil {
		e.builder.SetInsertPointAtEnd(elseBlock)
		if e.emitForBlock(ifStmt.Else) == completed {
			e.builder.CreateBr(continuationBlock)
		}
	}

	e.builder.SetInsertPointAtEnd(continuationBlock)
	return completed
}

// emitSignTest compares 0 against value, so IFP holds for 0 < value and IFN
// for 0 > value.
func (e *Emitter) emitSignTest(sign ast.SignKind, value ir.Value) ir.Value {
	switch sign {
	case ast.SignPositive:
		return e.builder.CreateICmp(ir.IntSLT, ir.Const(0), value, "cmp")
	case ast.SignNegative:
		return e.builder.CreateICmp(ir.IntSGT, ir.Const(0), value, "cmp")
	case ast.SignZero:
		return e.builder.CreateICmp(ir.IntEQ, ir.Const(0), value, "cmp")
	}

	panic(fmt.Sprintf("emitter: unexpected sign %d", sign))
}

func (e *Emitter) emitForLoopStmt(loopStmt *ast.LoopStmt) outcome {
	loopBlock := e.currentFunc.AddBlock("loop")
	afterLoopBlock := e.currentFunc.AddBlock("after_loop")

	e.loopsBreakBasicBlock = append(e.loopsBreakBasicBlock, afterLoopBlock)
	defer func() {
		e.loopsBreakBasicBlock = e.loopsBreakBasicBlock[:len(e.loopsBreakBasicBlock)-1]
	}()

	e.builder.CreateBr(loopBlock)

	e.builder.SetInsertPointAtEnd(loopBlock)
	if e.emitForBlock(loopStmt.Body) == completed {
		e.builder.CreateBr(loopBlock)
	}

	e.builder.SetInsertPointAtEnd(afterLoopBlock)
	return completed
}

func (e *Emitter) emitForBreakStmt(breakStmt *ast.BreakStmt) outcome {
	if len(e.loopsBreakBasicBlock) == 0 {
		e.fail("break statement outside of a loop", breakStmt.StartPos)
	}

	e.builder.CreateBr(e.loopsBreakBasicBlock[len(e.loopsBreakBasicBlock)-1])
	return terminated
}

func (e *Emitter) emitForPrintStmt(printStmt *ast.PrintStmt) {
	value := e.emitForExpr(printStmt.Expr)
	e.builder.CreateCall(e.printf, []ir.Value{e.printTemplate, value}, "print")
}

func (e *Emitter) emitForReadStmt(readStmt *ast.ReadStmt) {
	slot := e.variable(readStmt.Target.Name)
	e.builder.CreateCall(e.scanf, []ir.Value{e.readTemplate, slot}, "read")
}

func (e *Emitter) emitForAssignStmt(assignStmt *ast.AssignStmt) {
	value := e.emitForExpr(assignStmt.Value)
	e.builder.CreateStore(value, e.variable(assignStmt.Target.Name))
}

func (e *Emitter) emitForExpr(expr ast.Expr) ir.Value {
	switch expr := expr.(type) {
	case *ast.NumberExpr:
		return ir.Const(expr.Value)
	case *ast.VariableExpr:
		return e.builder.CreateLoad(ir.I32, e.variable(expr.Name), "")
	case *ast.BinaryExpr:
		return e.emitForBinaryExpr(expr)
	}

	panic(fmt.Sprintf("emitter: unexpected expression %T", expr))
}

func (e *Emitter) emitForBinaryExpr(binaryExpr *ast.BinaryExpr) ir.Value {
	lhs := e.emitForExpr(binaryExpr.Left)
	rhs := e.emitForExpr(binaryExpr.Right)

	switch binaryExpr.Op {
	case ast.BinaryAdd:
		return e.builder.CreateAdd(lhs, rhs, "")
	case ast.BinarySub:
		return e.builder.CreateSub(lhs, rhs, "")
	case ast.BinaryMul:
		return e.builder.CreateMul(lhs, rhs, "")
	case ast.BinaryDiv:
		return e.builder.CreateSDiv(lhs, rhs, "")
	case ast.BinaryMod:
		return e.builder.CreateSRem(lhs, rhs, "")
	}

	panic(fmt.Sprintf("emitter: unexpected binary operator %q", binaryExpr.Op))
}

// variable returns the slot of name, allocating it in the alloc block on first
// use.
func (e *Emitter) variable(name string) ir.Value {
	if slot, ok := e.variablesMap[name]; ok {
		return slot
	}

	currentBlock := e.builder.GetInsertBlock()
	e.builder.SetInsertPointAtEnd(e.currentAllocBasicBlock)

	slot := e.builder.CreateAlloca(ir.I32, name)
	e.builder.CreateStore(ir.Const(0), slot)
	e.variablesMap[name] = slot

	e.builder.SetInsertPointAtEnd(currentBlock)
	return slot
}
