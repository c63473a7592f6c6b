// Package interpreter executes ir modules directly, without going through
// LLVM. It implements the two C library functions Bitsy programs call, printf
// and scanf, for the %i/%d conversions.
package interpreter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/log"
)

// cancelCheckInterval is the number of steps between context checks.
const cancelCheckInterval = 1024

var ErrStepLimit = errors.New("step limit exceeded")

type RuntimeError struct {
	Block   string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error in block %s: %s", e.Block, e.Message)
}

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer

	// MaxSteps bounds the number of executed instructions and terminators.
	// Zero means no limit.
	MaxSteps int64
}

// Execute runs the function main of mod and returns its exit code. The module
// is expected to have passed ir.Verify.
func Execute(ctx context.Context, mod *ir.Module, opts Options) (int32, error) {
	fn := mod.Function("main")
	if fn == nil {
		return 0, errors.New("module has no function main")
	}
	if fn.Entry() == nil {
		return 0, errors.New("function main has no basic blocks")
	}

	stdin := opts.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	m := &machine{
		ctx:       ctx,
		module:    mod,
		stdin:     bufio.NewReader(stdin),
		stdout:    bufio.NewWriter(stdout),
		maxSteps:  opts.MaxSteps,
		registers: make([]int32, fn.Registers()),
	}

	code, err := m.run(fn)
	if flushErr := m.stdout.Flush(); err == nil && flushErr != nil {
		err = fmt.Errorf("flushing output: %w", flushErr)
	}

	log.Debug("Interpreter finished", "steps", m.steps, "slots", len(m.memory), "err", err)
	return code, err
}

// machine holds the state of one execution. Registers hold i32 and i1 values
// as well as pointers. A pointer to a stack slot is its index in memory; a
// pointer to a global is encoded as -(index+1) into the module's globals.
type machine struct {
	ctx    context.Context
	module *ir.Module

	stdin  *bufio.Reader
	stdout *bufio.Writer

	steps    int64
	maxSteps int64

	registers []int32
	memory    []int32

	block *ir.BasicBlock
}

func (m *machine) run(fn *ir.Function) (int32, error) {
	m.block = fn.Entry()
	for {
		for _, inst := range m.block.Instructions {
			if err := m.step(); err != nil {
				return 0, err
			}
			if err := m.execute(inst); err != nil {
				return 0, err
			}
		}

		if err := m.step(); err != nil {
			return 0, err
		}

		switch t := m.block.Terminator.(type) {
		case *ir.Br:
			m.block = t.Target
		case *ir.CondBr:
			if m.value(t.Cond) != 0 {
				m.block = t.Then
			} else {
				m.block = t.Else
			}
		case *ir.Ret:
			if t.Value.IsVoid() {
				return 0, nil
			}
			return m.value(t.Value), nil
		default:
			return 0, m.fault("block has no terminator")
		}
	}
}

func (m *machine) step() error {
	m.steps++
	if m.maxSteps > 0 && m.steps > m.maxSteps {
		return fmt.Errorf("after %d steps: %w", m.maxSteps, ErrStepLimit)
	}

	if m.steps%cancelCheckInterval == 0 {
		if err := m.ctx.Err(); err != nil {
			return fmt.Errorf("execution interrupted: %w", err)
		}
	}
	return nil
}

func (m *machine) fault(format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Block:   m.block.Label,
		Message: fmt.Sprintf(format, args...),
	}
}

func (m *machine) execute(inst *ir.Instruction) error {
	switch {
	case inst.Op == ir.OpAlloca:
		m.memory = append(m.memory, 0)
		m.set(inst.Result, int32(len(m.memory)-1))

	case inst.Op == ir.OpLoad:
		slot, err := m.slot(inst.Operands[0])
		if err != nil {
			return err
		}
		m.set(inst.Result, *slot)

	case inst.Op == ir.OpStore:
		slot, err := m.slot(inst.Operands[1])
		if err != nil {
			return err
		}
		*slot = m.value(inst.Operands[0])

	case inst.Op.IsBinary():
		result, err := m.arithmetic(inst.Op, m.value(inst.Operands[0]), m.value(inst.Operands[1]))
		if err != nil {
			return err
		}
		m.set(inst.Result, result)

	case inst.Op == ir.OpICmp:
		m.set(inst.Result, compare(inst.Pred, m.value(inst.Operands[0]), m.value(inst.Operands[1])))

	case inst.Op == ir.OpCall:
		result, err := m.call(inst.Callee, inst.Operands)
		if err != nil {
			return err
		}
		if inst.HasResult() {
			m.set(inst.Result, result)
		}

	default:
		return m.fault("unknown instruction %s", inst.Op)
	}

	return nil
}

func (m *machine) arithmetic(op ir.Op, lhs, rhs int32) (int32, error) {
	switch op {
	case ir.OpAdd:
		return lhs + rhs, nil
	case ir.OpSub:
		return lhs - rhs, nil
	case ir.OpMul:
		return lhs * rhs, nil
	}

	if rhs == 0 {
		if op == ir.OpSDiv {
			return 0, m.fault("division by zero")
		}
		return 0, m.fault("remainder by zero")
	}
	if lhs == math.MinInt32 && rhs == -1 {
		return 0, m.fault("integer overflow in %d %s -1", lhs, op)
	}

	if op == ir.OpSDiv {
		return lhs / rhs, nil
	}
	return lhs % rhs, nil
}

func compare(pred ir.IntPredicate, lhs, rhs int32) int32 {
	var holds bool
	switch pred {
	case ir.IntEQ:
		holds = lhs == rhs
	case ir.IntSLT:
		holds = lhs < rhs
	case ir.IntSGT:
		holds = lhs > rhs
	}

	if holds {
		return 1
	}
	return 0
}

func (m *machine) value(v ir.Value) int32 {
	switch v.Kind {
	case ir.ConstValue:
		return v.Const
	case ir.GlobalValue:
		for i, g := range m.module.Globals {
			if g.Name == v.Name {
				return int32(-(i + 1))
			}
		}
		panic(fmt.Sprintf("interpreter: undefined global @%s", v.Name))
	}
	return m.registers[v.ID]
}

func (m *machine) set(v ir.Value, x int32) {
	m.registers[v.ID] = x
}

func (m *machine) slot(ptr ir.Value) (*int32, error) {
	addr := m.value(ptr)
	if addr < 0 || int(addr) >= len(m.memory) {
		return nil, m.fault("invalid memory access through %s", ptr)
	}
	return &m.memory[addr], nil
}

func (m *machine) global(ptr int32) (*ir.Global, error) {
	i := int(-ptr) - 1
	if ptr >= 0 || i >= len(m.module.Globals) {
		return nil, m.fault("format argument is not a string")
	}
	return m.module.Globals[i], nil
}

func (m *machine) call(callee string, args []ir.Value) (int32, error) {
	if len(args) == 0 {
		return 0, m.fault("call to @%s without a format", callee)
	}

	format, err := m.global(m.value(args[0]))
	if err != nil {
		return 0, err
	}

	switch callee {
	case "printf":
		return m.printf(format.Data, args[1:])
	case "scanf":
		return m.scanf(format.Data, args[1:])
	}

	return 0, m.fault("call to unknown function @%s", callee)
}

func (m *machine) printf(format string, args []ir.Value) (int32, error) {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			sb.WriteByte(c)
			continue
		}

		i++
		switch format[i] {
		case '%':
			sb.WriteByte('%')
		case 'i', 'd':
			if len(args) == 0 {
				return 0, m.fault("printf: missing argument for %%%c", format[i])
			}
			sb.WriteString(strconv.Itoa(int(m.value(args[0]))))
			args = args[1:]
		default:
			return 0, m.fault("printf: unsupported conversion %%%c", format[i])
		}
	}

	n, err := m.stdout.WriteString(sb.String())
	if err != nil {
		return 0, fmt.Errorf("writing output: %w", err)
	}
	return int32(n), nil
}

// scanf follows C conversion rules: leading whitespace is skipped, then the
// longest prefix that forms an integer is consumed and the first character
// past it stays in the input. A conversion that matches nothing stops the
// scan and leaves the remaining targets untouched. The result is the number
// of assigned targets, or -1 if the input ended before the first conversion.
func (m *machine) scanf(format string, args []ir.Value) (int32, error) {
	assigned := int32(0)
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 == len(format) {
			continue
		}

		i++
		if format[i] != 'i' && format[i] != 'd' {
			return 0, m.fault("scanf: unsupported conversion %%%c", format[i])
		}
		if len(args) == 0 {
			return 0, m.fault("scanf: missing argument for %%%c", format[i])
		}

		value, ok, err := m.scanInt(format[i] == 'i')
		if errors.Is(err, io.EOF) {
			if assigned == 0 {
				return -1, nil
			}
			return assigned, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		if !ok {
			return assigned, nil
		}

		slot, err := m.slot(args[0])
		if err != nil {
			return 0, err
		}
		*slot = int32(value)
		args = args[1:]
		assigned++
	}

	return assigned, nil
}

// scanInt reads an optionally signed integer. With detectBase set a 0x
// prefix selects hex and a leading 0 selects octal, as %i does. Values out of
// the 64-bit range saturate like strtol. io.EOF is returned only when the
// input ends before anything but whitespace was seen.
func (m *machine) scanInt(detectBase bool) (int64, bool, error) {
	c, err := m.skipSpace()
	if err != nil {
		return 0, false, err
	}

	var digits strings.Builder
	if c == '+' || c == '-' {
		if c == '-' {
			digits.WriteByte('-')
		}
		if c, err = m.next(); err != nil {
			return 0, false, nil
		}
	}

	base := 10
	if detectBase && c == '0' {
		base = 8
		digits.WriteByte('0')
		c, err = m.next()
		if err != nil {
			return 0, true, nil
		}
		if c == 'x' || c == 'X' {
			base = 16
			if c, err = m.next(); err != nil {
				return 0, true, nil
			}
		}
	}

	for isDigit(c, base) {
		digits.WriteByte(c)
		if c, err = m.next(); err != nil {
			break
		}
	}
	if err == nil {
		_ = m.stdin.UnreadByte()
	}

	text := digits.String()
	if text == "" || text == "-" {
		return 0, false, nil
	}

	value, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		// Only range errors are possible here.
		if strings.HasPrefix(text, "-") {
			return math.MinInt64, true, nil
		}
		return math.MaxInt64, true, nil
	}
	return value, true, nil
}

func (m *machine) skipSpace() (byte, error) {
	for {
		c, err := m.stdin.ReadByte()
		if err != nil {
			return 0, err
		}
		if !isSpace(c) {
			return c, nil
		}
	}
}

// next reads one byte. Any read error ends the number being scanned.
func (m *machine) next() (byte, error) {
	return m.stdin.ReadByte()
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '7':
		return true
	case c == '8' || c == '9':
		return base >= 10
	case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
		return base == 16
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
