package llvm_backend

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/kievzenit/bitsyc/internal/ir"
)

type lowering struct {
	m   *Module
	src *ir.Module

	typesMap     map[ir.Type]llvm.Type
	globalsMap   map[string]llvm.Value
	funcsMap     map[string]llvm.Value
	funcTypesMap map[string]llvm.Type

	registersMap map[int]llvm.Value
	blocksMap    map[*ir.BasicBlock]llvm.BasicBlock
}

func newLowering(m *Module, src *ir.Module) *lowering {
	return &lowering{
		m:   m,
		src: src,

		typesMap: map[ir.Type]llvm.Type{
			ir.Void: m.context.VoidType(),
			ir.I1:   m.context.Int1Type(),
			ir.I32:  m.context.Int32Type(),
			ir.Ptr:  llvm.PointerType(m.context.Int8Type(), 0),
		},
		globalsMap:   make(map[string]llvm.Value),
		funcsMap:     make(map[string]llvm.Value),
		funcTypesMap: make(map[string]llvm.Type),
	}
}

func (l *lowering) lower() error {
	if len(l.src.Functions) == 0 {
		return fmt.Errorf("module %s has no functions", l.src.Name)
	}

	for _, ext := range l.src.Externs {
		l.declareExtern(ext)
	}

	for _, fn := range l.src.Functions {
		l.declareFunction(fn)
	}

	for _, fn := range l.src.Functions {
		if err := l.lowerFunction(fn); err != nil {
			return fmt.Errorf("lowering function %s: %w", fn.Name, err)
		}
	}

	return nil
}

func (l *lowering) declareExtern(ext *ir.Extern) {
	params := make([]llvm.Type, len(ext.Params))
	for i, p := range ext.Params {
		params[i] = l.typesMap[p]
	}

	funcType := llvm.FunctionType(l.typesMap[ext.Return], params, ext.Variadic)
	l.funcsMap[ext.Name] = llvm.AddFunction(l.m.module, ext.Name, funcType)
	l.funcTypesMap[ext.Name] = funcType
}

func (l *lowering) declareFunction(fn *ir.Function) {
	funcType := llvm.FunctionType(l.typesMap[fn.Return], nil, false)
	funcValue := llvm.AddFunction(l.m.module, fn.Name, funcType)

	framePointerAttr := l.m.context.CreateStringAttribute("frame-pointer", "all")
	noTrappingMathAttr := l.m.context.CreateStringAttribute("no-trapping-math", "true")
	stackProtectorBufferSizeAttr := l.m.context.CreateStringAttribute("stack-protector-buffer-size", "8")
	noUnwindAttr := l.m.context.CreateEnumAttribute(llvm.AttributeKindID("nounwind"), 0)
	funcValue.AddFunctionAttr(framePointerAttr)
	funcValue.AddFunctionAttr(noTrappingMathAttr)
	funcValue.AddFunctionAttr(stackProtectorBufferSizeAttr)
	funcValue.AddFunctionAttr(noUnwindAttr)

	l.funcsMap[fn.Name] = funcValue
	l.funcTypesMap[fn.Name] = funcType
}

func (l *lowering) lowerFunction(fn *ir.Function) error {
	funcValue := l.funcsMap[fn.Name]

	l.registersMap = make(map[int]llvm.Value)
	l.blocksMap = make(map[*ir.BasicBlock]llvm.BasicBlock)
	for _, bb := range fn.Blocks {
		l.blocksMap[bb] = l.m.context.AddBasicBlock(funcValue, bb.Label)
	}

	// String globals are created through the builder, which needs an insert
	// point inside the module.
	if len(l.globalsMap) == 0 && len(fn.Blocks) > 0 {
		l.m.builder.SetInsertPointAtEnd(l.blocksMap[fn.Blocks[0]])
		for _, g := range l.src.Globals {
			l.globalsMap[g.Name] = l.m.builder.CreateGlobalStringPtr(g.Data, g.Name)
		}
	}

	for _, bb := range fn.Blocks {
		l.m.builder.SetInsertPointAtEnd(l.blocksMap[bb])

		for _, inst := range bb.Instructions {
			if err := l.lowerInstruction(inst); err != nil {
				return fmt.Errorf("block %s: %w", bb.Label, err)
			}
		}

		if err := l.lowerTerminator(bb.Terminator); err != nil {
			return fmt.Errorf("block %s: %w", bb.Label, err)
		}
	}

	return nil
}

func (l *lowering) lowerInstruction(inst *ir.Instruction) error {
	operands := make([]llvm.Value, len(inst.Operands))
	for i, op := range inst.Operands {
		v, err := l.value(op)
		if err != nil {
			return err
		}
		operands[i] = v
	}

	name := llvmName(inst.Result.Name)
	b := l.m.builder

	var result llvm.Value
	switch inst.Op {
	case ir.OpAlloca:
		result = b.CreateAlloca(l.typesMap[inst.Elem], name)
	case ir.OpLoad:
		result = b.CreateLoad(l.typesMap[inst.Elem], operands[0], name)
	case ir.OpStore:
		b.CreateStore(operands[0], operands[1])
	case ir.OpAdd:
		result = b.CreateAdd(operands[0], operands[1], name)
	case ir.OpSub:
		result = b.CreateSub(operands[0], operands[1], name)
	case ir.OpMul:
		result = b.CreateMul(operands[0], operands[1], name)
	case ir.OpSDiv:
		result = b.CreateSDiv(operands[0], operands[1], name)
	case ir.OpSRem:
		result = b.CreateSRem(operands[0], operands[1], name)
	case ir.OpICmp:
		result = b.CreateICmp(intPredicate(inst.Pred), operands[0], operands[1], name)
	case ir.OpCall:
		funcValue, ok := l.funcsMap[inst.Callee]
		if !ok {
			return fmt.Errorf("call to undeclared function @%s", inst.Callee)
		}
		if !inst.HasResult() {
			name = ""
		}
		result = b.CreateCall(l.funcTypesMap[inst.Callee], funcValue, operands, name)
	default:
		return fmt.Errorf("unsupported instruction %s", inst.Op)
	}

	if inst.HasResult() {
		l.registersMap[inst.Result.ID] = result
	}
	return nil
}

func (l *lowering) lowerTerminator(t ir.Terminator) error {
	b := l.m.builder

	switch t := t.(type) {
	case *ir.Br:
		b.CreateBr(l.blocksMap[t.Target])
	case *ir.CondBr:
		cond, err := l.value(t.Cond)
		if err != nil {
			return err
		}
		b.CreateCondBr(cond, l.blocksMap[t.Then], l.blocksMap[t.Else])
	case *ir.Ret:
		if t.Value.IsVoid() {
			b.CreateRetVoid()
			return nil
		}
		v, err := l.value(t.Value)
		if err != nil {
			return err
		}
		b.CreateRet(v)
	default:
		return fmt.Errorf("missing terminator")
	}

	return nil
}

func (l *lowering) value(v ir.Value) (llvm.Value, error) {
	switch v.Kind {
	case ir.ConstValue:
		return llvm.ConstInt(l.typesMap[v.Type], uint64(int64(v.Const)), true), nil
	case ir.GlobalValue:
		g, ok := l.globalsMap[v.Name]
		if !ok {
			return llvm.Value{}, fmt.Errorf("reference to undefined global @%s", v.Name)
		}
		return g, nil
	}

	r, ok := l.registersMap[v.ID]
	if !ok {
		return llvm.Value{}, fmt.Errorf("register %s used before its definition", v)
	}
	return r, nil
}

// llvmName drops the numbered names of anonymous registers so LLVM numbers
// them itself.
func llvmName(name string) string {
	for _, c := range name {
		if c < '0' || c > '9' {
			return name
		}
	}
	return ""
}

func intPredicate(pred ir.IntPredicate) llvm.IntPredicate {
	switch pred {
	case ir.IntEQ:
		return llvm.IntEQ
	case ir.IntSLT:
		return llvm.IntSLT
	case ir.IntSGT:
		return llvm.IntSGT
	}

	panic(fmt.Sprintf("llvm_backend: unexpected predicate %s", pred))
}
