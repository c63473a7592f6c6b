package ir

import "fmt"

// Builder appends instructions at the end of its current block. Its method set
// follows the LLVM IRBuilder so the emitter reads like LLVM code generation.
type Builder struct {
	block *BasicBlock
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetInsertPointAtEnd(bb *BasicBlock) {
	b.block = bb
}

func (b *Builder) GetInsertBlock() *BasicBlock {
	return b.block
}

func (b *Builder) CreateAlloca(t Type, name string) Value {
	result := b.function().newRegister(Ptr, name)
	b.insert(&Instruction{
		Op:     OpAlloca,
		Result: result,
		Elem:   t,
	})
	return result
}

func (b *Builder) CreateStore(val, ptr Value) {
	b.insert(&Instruction{
		Op:       OpStore,
		Operands: []Value{val, ptr},
	})
}

func (b *Builder) CreateLoad(t Type, ptr Value, name string) Value {
	result := b.function().newRegister(t, name)
	b.insert(&Instruction{
		Op:       OpLoad,
		Result:   result,
		Operands: []Value{ptr},
		Elem:     t,
	})
	return result
}

func (b *Builder) CreateAdd(lhs, rhs Value, name string) Value {
	return b.createBinary(OpAdd, lhs, rhs, name)
}

func (b *Builder) CreateSub(lhs, rhs Value, name string) Value {
	return b.createBinary(OpSub, lhs, rhs, name)
}

func (b *Builder) CreateMul(lhs, rhs Value, name string) Value {
	return b.createBinary(OpMul, lhs, rhs, name)
}

func (b *Builder) CreateSDiv(lhs, rhs Value, name string) Value {
	return b.createBinary(OpSDiv, lhs, rhs, name)
}

func (b *Builder) CreateSRem(lhs, rhs Value, name string) Value {
	return b.createBinary(OpSRem, lhs, rhs, name)
}

func (b *Builder) createBinary(op Op, lhs, rhs Value, name string) Value {
	result := b.function().newRegister(I32, name)
	b.insert(&Instruction{
		Op:       op,
		Result:   result,
		Operands: []Value{lhs, rhs},
	})
	return result
}

func (b *Builder) CreateICmp(pred IntPredicate, lhs, rhs Value, name string) Value {
	result := b.function().newRegister(I1, name)
	b.insert(&Instruction{
		Op:       OpICmp,
		Result:   result,
		Operands: []Value{lhs, rhs},
		Pred:     pred,
	})
	return result
}

// CreateCall calls an external function. Calls to void functions yield the
// zero Value.
func (b *Builder) CreateCall(callee *Extern, args []Value, name string) Value {
	var result Value
	if callee.Return != Void {
		result = b.function().newRegister(callee.Return, name)
	}

	b.insert(&Instruction{
		Op:       OpCall,
		Result:   result,
		Operands: args,
		Callee:   callee.Name,
	})
	return result
}

func (b *Builder) CreateBr(target *BasicBlock) {
	b.terminate(&Br{Target: target})
}

func (b *Builder) CreateCondBr(cond Value, then, els *BasicBlock) {
	b.terminate(&CondBr{
		Cond: cond,
		Then: then,
		Else: els,
	})
}

func (b *Builder) CreateRet(val Value) {
	b.terminate(&Ret{Value: val})
}

func (b *Builder) CreateRetVoid() {
	b.terminate(&Ret{})
}

func (b *Builder) function() *Function {
	if b.block == nil {
		panic("ir: builder has no insert point")
	}
	return b.block.parent
}

func (b *Builder) insert(inst *Instruction) {
	if b.block == nil {
		panic("ir: builder has no insert point")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("ir: instruction %s appended to terminated block %s", inst.Op, b.block.Label))
	}
	b.block.Instructions = append(b.block.Instructions, inst)
}

func (b *Builder) terminate(t Terminator) {
	if b.block == nil {
		panic("ir: builder has no insert point")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("ir: block %s is already terminated", b.block.Label))
	}
	b.block.Terminator = t
}
