package ir

import "fmt"

type VerifyError struct {
	Function string
	Block    string
	Message  string
}

func (e *VerifyError) Error() string {
	if e.Block == "" {
		return fmt.Sprintf("function %s: %s", e.Function, e.Message)
	}
	return fmt.Sprintf("function %s, block %s: %s", e.Function, e.Block, e.Message)
}

// Verify checks the structural well-formedness of m and returns every problem
// it finds. Dominance of register definitions is not checked, only that each
// used register is defined somewhere in the function.
func Verify(m *Module) []*VerifyError {
	v := &verifier{module: m}
	for _, fn := range m.Functions {
		v.verifyFunction(fn)
	}
	return v.errors
}

type verifier struct {
	module *Module
	errors []*VerifyError

	fn      *Function
	block   *BasicBlock
	defined map[int]Type
}

func (v *verifier) errorf(format string, args ...any) {
	err := &VerifyError{
		Function: v.fn.Name,
		Message:  fmt.Sprintf(format, args...),
	}
	if v.block != nil {
		err.Block = v.block.Label
	}
	v.errors = append(v.errors, err)
}

func (v *verifier) verifyFunction(fn *Function) {
	v.fn = fn
	v.block = nil
	v.defined = make(map[int]Type)

	if len(fn.Blocks) == 0 {
		v.errorf("function has no basic blocks")
		return
	}

	for _, bb := range fn.Blocks {
		for _, inst := range bb.Instructions {
			if !inst.HasResult() {
				continue
			}
			v.block = bb
			if _, dup := v.defined[inst.Result.ID]; dup {
				v.errorf("register %s is assigned more than once", inst.Result)
			}
			v.defined[inst.Result.ID] = inst.Result.Type
		}
	}

	for _, bb := range fn.Blocks {
		v.block = bb
		if bb.parent != fn {
			v.errorf("block belongs to another function")
		}

		for _, inst := range bb.Instructions {
			v.verifyInstruction(inst)
		}
		v.verifyTerminator(bb.Terminator)
	}
}

func (v *verifier) verifyInstruction(inst *Instruction) {
	for _, op := range inst.Operands {
		v.verifyOperand(op)
	}

	switch {
	case inst.Op == OpAlloca:
		v.expectResult(inst, Ptr)
	case inst.Op == OpLoad:
		v.expectOperands(inst, Ptr)
		v.expectResult(inst, inst.Elem)
	case inst.Op == OpStore:
		v.expectOperands(inst, I32, Ptr)
	case inst.Op.IsBinary():
		v.expectOperands(inst, I32, I32)
		v.expectResult(inst, I32)
	case inst.Op == OpICmp:
		v.expectOperands(inst, I32, I32)
		v.expectResult(inst, I1)
	case inst.Op == OpCall:
		v.verifyCall(inst)
	default:
		v.errorf("unknown instruction %s", inst.Op)
	}
}

func (v *verifier) verifyCall(inst *Instruction) {
	callee := v.module.Extern(inst.Callee)
	if callee == nil {
		v.errorf("call to undeclared function @%s", inst.Callee)
		return
	}

	if len(inst.Operands) < len(callee.Params) ||
		(!callee.Variadic && len(inst.Operands) != len(callee.Params)) {
		v.errorf("call to @%s with %d arguments", callee.Name, len(inst.Operands))
		return
	}
	for i, param := range callee.Params {
		if inst.Operands[i].Type != param {
			v.errorf("argument %d of @%s has type %s, expected %s", i, callee.Name, inst.Operands[i].Type, param)
		}
	}

	if callee.Return == Void {
		if inst.HasResult() {
			v.errorf("call to void function @%s yields a value", callee.Name)
		}
		return
	}
	v.expectResult(inst, callee.Return)
}

func (v *verifier) verifyOperand(op Value) {
	switch op.Kind {
	case RegisterValue:
		t, ok := v.defined[op.ID]
		if !ok {
			v.errorf("use of undefined register %s", op)
			return
		}
		if t != op.Type {
			v.errorf("register %s used as %s, defined as %s", op, op.Type, t)
		}
	case GlobalValue:
		if v.module.Global(op.Name) == nil {
			v.errorf("reference to undefined global @%s", op.Name)
		}
	}
}

func (v *verifier) expectOperands(inst *Instruction, types ...Type) {
	if len(inst.Operands) != len(types) {
		v.errorf("%s expects %d operands, got %d", inst.Op, len(types), len(inst.Operands))
		return
	}
	for i, t := range types {
		if inst.Operands[i].Type != t {
			v.errorf("operand %d of %s has type %s, expected %s", i, inst.Op, inst.Operands[i].Type, t)
		}
	}
}

func (v *verifier) expectResult(inst *Instruction, t Type) {
	if inst.Result.Type != t {
		v.errorf("%s yields %s, expected %s", inst.Op, inst.Result.Type, t)
	}
}

func (v *verifier) verifyTerminator(t Terminator) {
	switch t := t.(type) {
	case nil:
		v.errorf("missing terminator")
	case *Br:
		v.verifyTarget(t.Target)
	case *CondBr:
		v.verifyOperand(t.Cond)
		if t.Cond.Type != I1 {
			v.errorf("branch condition has type %s, expected i1", t.Cond.Type)
		}
		v.verifyTarget(t.Then)
		v.verifyTarget(t.Else)
	case *Ret:
		if t.Value.IsVoid() {
			if v.fn.Return != Void {
				v.errorf("ret void in function returning %s", v.fn.Return)
			}
			return
		}
		v.verifyOperand(t.Value)
		if t.Value.Type != v.fn.Return {
			v.errorf("ret %s in function returning %s", t.Value.Type, v.fn.Return)
		}
	}
}

func (v *verifier) verifyTarget(target *BasicBlock) {
	if target == nil {
		v.errorf("branch to nil block")
		return
	}
	if target.parent != v.fn {
		v.errorf("branch to block %s outside the function", target.Label)
	}
}
