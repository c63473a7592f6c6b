package ir

import "math"

// Optimize runs the optimization passes on every function of m.
func Optimize(m *Module) {
	for _, fn := range m.Functions {
		ConstantFold(fn)
		SimplifyBranches(fn)
		RemoveUnreachableBlocks(fn)
	}
}

// ConstantFold evaluates arithmetic and comparisons whose operands are
// constants and substitutes the results into their uses. Operations that trap
// at run time (division by zero, MinInt32 / -1) are left in place.
func ConstantFold(fn *Function) {
	folded := make(map[int]Value)

	changed := true
	for changed {
		changed = false
		for _, bb := range fn.Blocks {
			alive := bb.Instructions[:0]
			for _, inst := range bb.Instructions {
				substitute(inst.Operands, folded)

				if result, ok := foldInstruction(inst); ok {
					folded[inst.Result.ID] = result
					changed = true
					continue
				}
				alive = append(alive, inst)
			}
			bb.Instructions = alive
		}
	}

	for _, bb := range fn.Blocks {
		switch t := bb.Terminator.(type) {
		case *CondBr:
			t.Cond = substituteValue(t.Cond, folded)
		case *Ret:
			t.Value = substituteValue(t.Value, folded)
		}
	}
}

func substitute(ops []Value, folded map[int]Value) {
	for i, op := range ops {
		ops[i] = substituteValue(op, folded)
	}
}

func substituteValue(v Value, folded map[int]Value) Value {
	if v.Kind != RegisterValue {
		return v
	}
	if c, ok := folded[v.ID]; ok {
		return c
	}
	return v
}

func foldInstruction(inst *Instruction) (Value, bool) {
	if !inst.Op.IsBinary() && inst.Op != OpICmp {
		return Value{}, false
	}
	if len(inst.Operands) != 2 || !inst.Operands[0].IsConst() || !inst.Operands[1].IsConst() {
		return Value{}, false
	}

	lhs, rhs := inst.Operands[0].Const, inst.Operands[1].Const

	switch inst.Op {
	case OpAdd:
		return Const(lhs + rhs), true
	case OpSub:
		return Const(lhs - rhs), true
	case OpMul:
		return Const(lhs * rhs), true
	case OpSDiv, OpSRem:
		if rhs == 0 || (lhs == math.MinInt32 && rhs == -1) {
			return Value{}, false
		}
		if inst.Op == OpSDiv {
			return Const(lhs / rhs), true
		}
		return Const(lhs % rhs), true
	}

	switch inst.Pred {
	case IntEQ:
		return Bool(lhs == rhs), true
	case IntSLT:
		return Bool(lhs < rhs), true
	case IntSGT:
		return Bool(lhs > rhs), true
	}
	return Value{}, false
}

// SimplifyBranches turns conditional branches on a constant into plain
// branches.
func SimplifyBranches(fn *Function) {
	for _, bb := range fn.Blocks {
		t, ok := bb.Terminator.(*CondBr)
		if !ok || !t.Cond.IsConst() {
			continue
		}

		target := t.Else
		if t.Cond.Const != 0 {
			target = t.Then
		}
		bb.Terminator = &Br{Target: target}
	}
}

// RemoveUnreachableBlocks removes blocks that can not be reached from the
// entry block.
func RemoveUnreachableBlocks(fn *Function) {
	if len(fn.Blocks) <= 1 {
		return
	}

	reachable := make(map[*BasicBlock]bool)
	var walk func(*BasicBlock)
	walk = func(bb *BasicBlock) {
		if reachable[bb] {
			return
		}
		reachable[bb] = true
		for _, succ := range bb.Successors() {
			walk(succ)
		}
	}
	walk(fn.Blocks[0])

	alive := fn.Blocks[:0]
	for _, bb := range fn.Blocks {
		if reachable[bb] {
			alive = append(alive, bb)
		}
	}
	fn.Blocks = alive
}
