// Package ir defines the control-flow representation the emitter produces and
// the backends consume.
//
// A Module holds string globals, external function declarations and functions.
// A Function is an ordered list of basic blocks, the first one being the entry.
// Every basic block is a straight-line sequence of instructions ended by exactly
// one terminator. Values are virtual registers, 32-bit integer constants or
// references to globals. Registers are assigned once; mutable state lives in
// stack slots created by alloca.
package ir

import (
	"fmt"
	"strconv"
)

type Type int

const (
	Void Type = iota
	I1
	I32
	Ptr
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case I1:
		return "i1"
	case I32:
		return "i32"
	case Ptr:
		return "ptr"
	default:
		panic(fmt.Sprintf("Type.String(): received illegal type: %d", t))
	}
}

type ValueKind int

const (
	RegisterValue ValueKind = iota
	ConstValue
	GlobalValue
)

// Value is an instruction operand. The zero Value is a void register and
// stands for "no value".
type Value struct {
	Kind ValueKind
	Type Type

	ID    int    // register number, unique within a function
	Name  string // register or global name
	Const int32
}

func Const(v int32) Value {
	return Value{Kind: ConstValue, Type: I32, Const: v}
}

func Bool(b bool) Value {
	v := Value{Kind: ConstValue, Type: I1}
	if b {
		v.Const = 1
	}
	return v
}

func (v Value) IsConst() bool { return v.Kind == ConstValue }
func (v Value) IsVoid() bool  { return v.Kind == RegisterValue && v.Type == Void }

func (v Value) String() string {
	switch v.Kind {
	case ConstValue:
		if v.Type == I1 {
			return strconv.FormatBool(v.Const != 0)
		}
		return strconv.Itoa(int(v.Const))
	case GlobalValue:
		return "@" + v.Name
	}
	return "%" + v.Name
}

// Typed renders the value prefixed with its type, as operands are listed.
func (v Value) Typed() string {
	return v.Type.String() + " " + v.String()
}

type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpSDiv
	OpSRem
	OpICmp
	OpCall
)

var opNames = map[Op]string{
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpSDiv: "sdiv", OpSRem: "srem",
	OpICmp: "icmp", OpCall: "call",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsBinary reports whether op is an i32 arithmetic instruction.
func (op Op) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpSDiv, OpSRem:
		return true
	}
	return false
}

type IntPredicate int

const (
	IntEQ IntPredicate = iota
	IntSLT
	IntSGT
)

func (p IntPredicate) String() string {
	switch p {
	case IntEQ:
		return "eq"
	case IntSLT:
		return "slt"
	case IntSGT:
		return "sgt"
	default:
		panic(fmt.Sprintf("IntPredicate.String(): received illegal predicate: %d", p))
	}
}

type Instruction struct {
	Op       Op
	Result   Value   // void for store
	Operands []Value // store: value, pointer
	Pred     IntPredicate
	Callee   string // for OpCall
	Elem     Type   // allocated or loaded type
}

func (inst *Instruction) HasResult() bool {
	return !inst.Result.IsVoid()
}

type Terminator interface {
	terminator()
	Successors() []*BasicBlock
	String() string
}

type Br struct {
	Target *BasicBlock
}

type CondBr struct {
	Cond Value
	Then *BasicBlock
	Else *BasicBlock
}

type Ret struct {
	Value Value // void for ret void
}

func (t *Br) terminator()     {}
func (t *CondBr) terminator() {}
func (t *Ret) terminator()    {}

func (t *Br) Successors() []*BasicBlock     { return []*BasicBlock{t.Target} }
func (t *CondBr) Successors() []*BasicBlock { return []*BasicBlock{t.Then, t.Else} }
func (t *Ret) Successors() []*BasicBlock    { return nil }

type BasicBlock struct {
	Label        string
	Instructions []*Instruction
	Terminator   Terminator

	parent *Function
}

func (bb *BasicBlock) Parent() *Function { return bb.parent }
func (bb *BasicBlock) Terminated() bool  { return bb.Terminator != nil }

func (bb *BasicBlock) Successors() []*BasicBlock {
	if bb.Terminator == nil {
		return nil
	}
	return bb.Terminator.Successors()
}

type Function struct {
	Name   string
	Return Type
	Blocks []*BasicBlock

	nextRegister int
	names        map[string]int
}

// AddBlock appends a block labelled name, or name followed by a counter when
// the label is already taken.
func (f *Function) AddBlock(name string) *BasicBlock {
	bb := &BasicBlock{
		Label:  f.uniqueName(name),
		parent: f,
	}
	f.Blocks = append(f.Blocks, bb)
	return bb
}

func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Registers returns the number of registers allocated in f. Register IDs are
// in [0, Registers()).
func (f *Function) Registers() int { return f.nextRegister }

func (f *Function) newRegister(t Type, name string) Value {
	id := f.nextRegister
	f.nextRegister++

	if name == "" {
		name = strconv.Itoa(id)
	}

	return Value{
		Kind: RegisterValue,
		Type: t,
		ID:   id,
		Name: f.uniqueName(name),
	}
}

func (f *Function) uniqueName(name string) string {
	if f.names == nil {
		f.names = make(map[string]int)
	}

	if _, taken := f.names[name]; !taken {
		f.names[name] = 0
		return name
	}

	for {
		f.names[name]++
		candidate := name + strconv.Itoa(f.names[name])
		if _, taken := f.names[candidate]; !taken {
			f.names[candidate] = 0
			return candidate
		}
	}
}

// Global is a constant NUL-terminated string.
type Global struct {
	Name string
	Data string
}

// Extern declares a function implemented outside the module.
type Extern struct {
	Name     string
	Return   Type
	Params   []Type
	Variadic bool
}

type Module struct {
	Name      string
	Globals   []*Global
	Externs   []*Extern
	Functions []*Function
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddGlobalString declares a string global and returns a pointer to it.
func (m *Module) AddGlobalString(name, data string) Value {
	m.Globals = append(m.Globals, &Global{Name: name, Data: data})
	return Value{Kind: GlobalValue, Type: Ptr, Name: name}
}

func (m *Module) AddExtern(name string, ret Type, params []Type, variadic bool) *Extern {
	ext := &Extern{
		Name:     name,
		Return:   ret,
		Params:   params,
		Variadic: variadic,
	}
	m.Externs = append(m.Externs, ext)
	return ext
}

func (m *Module) AddFunction(name string, ret Type) *Function {
	fn := &Function{
		Name:   name,
		Return: ret,
	}
	m.Functions = append(m.Functions, fn)
	return fn
}

func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (m *Module) Extern(name string) *Extern {
	for _, ext := range m.Externs {
		if ext.Name == name {
			return ext
		}
	}
	return nil
}

func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
