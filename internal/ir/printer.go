package ir

import (
	"fmt"
	"strings"
)

func (inst *Instruction) String() string {
	var sb strings.Builder
	if inst.HasResult() {
		fmt.Fprintf(&sb, "%s = ", inst.Result)
	}

	switch inst.Op {
	case OpAlloca:
		fmt.Fprintf(&sb, "alloca %s", inst.Elem)
	case OpLoad:
		fmt.Fprintf(&sb, "load %s, %s", inst.Elem, operand(inst.Operands, 0))
	case OpStore:
		fmt.Fprintf(&sb, "store %s, %s", operand(inst.Operands, 0), operand(inst.Operands, 1))
	case OpICmp:
		fmt.Fprintf(&sb, "icmp %s %s, %s", inst.Pred, operand(inst.Operands, 0), bare(inst.Operands, 1))
	case OpCall:
		ret := Void
		if inst.HasResult() {
			ret = inst.Result.Type
		}

		args := make([]string, len(inst.Operands))
		for i, arg := range inst.Operands {
			args[i] = arg.Typed()
		}
		fmt.Fprintf(&sb, "call %s @%s(%s)", ret, inst.Callee, strings.Join(args, ", "))
	default:
		fmt.Fprintf(&sb, "%s %s, %s", inst.Op, operand(inst.Operands, 0), bare(inst.Operands, 1))
	}

	return sb.String()
}

func operand(ops []Value, i int) string {
	if i >= len(ops) {
		return "<missing>"
	}
	return ops[i].Typed()
}

func bare(ops []Value, i int) string {
	if i >= len(ops) {
		return "<missing>"
	}
	return ops[i].String()
}

func (t *Br) String() string {
	return fmt.Sprintf("br label %%%s", t.Target.Label)
}

func (t *CondBr) String() string {
	return fmt.Sprintf("br %s, label %%%s, label %%%s", t.Cond.Typed(), t.Then.Label, t.Else.Label)
}

func (t *Ret) String() string {
	if t.Value.IsVoid() {
		return "ret void"
	}
	return "ret " + t.Value.Typed()
}

func (bb *BasicBlock) String() string {
	var sb strings.Builder
	sb.WriteString(bb.Label + ":\n")
	for _, inst := range bb.Instructions {
		sb.WriteString("  " + inst.String() + "\n")
	}
	if bb.Terminator != nil {
		sb.WriteString("  " + bb.Terminator.String() + "\n")
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "define %s @%s() {\n", f.Return, f.Name)
	for _, bb := range f.Blocks {
		sb.WriteString(bb.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (ext *Extern) String() string {
	params := make([]string, 0, len(ext.Params)+1)
	for _, p := range ext.Params {
		params = append(params, p.String())
	}
	if ext.Variadic {
		params = append(params, "...")
	}
	return fmt.Sprintf("declare %s @%s(%s)", ext.Return, ext.Name, strings.Join(params, ", "))
}

func (g *Global) String() string {
	return fmt.Sprintf("@%s = constant c\"%s\\00\"", g.Name, escapeString(g.Data))
}

// escapeString renders s the way LLVM prints string constants: printable
// ASCII as is, everything else (and '"', '\') as a two digit hex escape.
func escapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f || c == '"' || c == '\\' {
			fmt.Fprintf(&sb, "\\%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module '%s'\n", m.Name)

	if len(m.Globals) > 0 {
		sb.WriteString("\n")
		for _, g := range m.Globals {
			sb.WriteString(g.String() + "\n")
		}
	}

	if len(m.Externs) > 0 {
		sb.WriteString("\n")
		for _, ext := range m.Externs {
			sb.WriteString(ext.String() + "\n")
		}
	}

	for _, fn := range m.Functions {
		sb.WriteString("\n")
		sb.WriteString(fn.String())
	}

	return sb.String()
}
