package emitter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/lexer"
	"github.com/kievzenit/bitsyc/internal/parser"
)

func emit(t *testing.T, src string) (*ir.Module, error) {
	t.Helper()

	tokens, err := lexer.NewLexer([]byte(src), nil).Tokenize()
	require.NoError(t, err)

	program, err := parser.NewParser(lexer.NewTokenScanner(tokens), nil).Parse()
	require.NoError(t, err)

	return NewEmitter("test.bitsy", program, nil).Emit()
}

func mustEmit(t *testing.T, src string) *ir.Function {
	t.Helper()

	m, err := emit(t, src)
	require.NoError(t, err)
	require.Empty(t, ir.Verify(m))

	fn := m.Function("main")
	require.NotNil(t, fn)
	return fn
}

func block(t *testing.T, fn *ir.Function, label string) *ir.BasicBlock {
	t.Helper()

	for _, bb := range fn.Blocks {
		if bb.Label == label {
			return bb
		}
	}
	require.FailNow(t, "no such block", label)
	return nil
}

func TestEmitListing(t *testing.T) {
	m, err := emit(t, "BEGIN X = 3 PRINT X END")
	require.NoError(t, err)

	expected := `; module 'test.bitsy'

@read_template = constant c"%i\00"
@print_template = constant c"%i\0A\00"

declare i32 @printf(ptr, ...)
declare i32 @scanf(ptr, ...)

define i32 @main() {
alloc:
  %X = alloca i32
  store i32 0, ptr %X
  br label %entry
entry:
  store i32 3, ptr %X
  %1 = load i32, ptr %X
  %print = call i32 @printf(ptr @print_template, i32 %1)
  ret i32 0
}
`
	assert.Equal(t, expected, m.String())
}

func TestEmitEmptyProgram(t *testing.T) {
	fn := mustEmit(t, "BEGIN END")

	require.Len(t, fn.Blocks, 2)
	assert.Empty(t, fn.Blocks[0].Instructions)
	assert.Equal(t, "ret i32 0", fn.Blocks[1].Terminator.String())
}

func TestEmitAllocatesEachVariableOnceInAllocBlock(t *testing.T) {
	fn := mustEmit(t, `BEGIN
  LOOP
    IFZ A
      B = A + C
      BREAK
    ELSE
      LOOP
        READ D
        A = A + D + B
        BREAK
      END
    END
  END
  PRINT A + B
END`)

	alloc := fn.Blocks[0]
	assert.Equal(t, "alloc", alloc.Label)

	slots := map[string]int{}
	for i, inst := range alloc.Instructions {
		if inst.Op != ir.OpAlloca {
			continue
		}
		slots[inst.Result.Name]++

		require.Less(t, i+1, len(alloc.Instructions))
		zero := alloc.Instructions[i+1]
		assert.Equal(t, ir.OpStore, zero.Op)
		assert.Equal(t, ir.Const(0), zero.Operands[0])
		assert.Equal(t, inst.Result, zero.Operands[1])
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}, slots)

	for _, bb := range fn.Blocks[1:] {
		for _, inst := range bb.Instructions {
			assert.NotEqual(t, ir.OpAlloca, inst.Op, "alloca in block %s", bb.Label)
		}
	}

	assert.Equal(t, "br label %entry", alloc.Terminator.String())
}

func TestEmitBreakTargetsAfterLoop(t *testing.T) {
	fn := mustEmit(t, "BEGIN LOOP LOOP BREAK END BREAK END END")

	outer := block(t, fn, "loop")
	inner := block(t, fn, "loop1")

	assert.Equal(t, "br label %loop1", outer.Terminator.String())
	assert.Equal(t, "br label %after_loop1", inner.Terminator.String())
	assert.Equal(t, "br label %after_loop", block(t, fn, "after_loop1").Terminator.String())
	assert.Equal(t, "ret i32 0", block(t, fn, "after_loop").Terminator.String())
}

func TestEmitBreakInsideIfLeavesLoop(t *testing.T) {
	fn := mustEmit(t, "BEGIN LOOP X = X + 1 IFZ X - 3 BREAK END END PRINT X END")

	assert.Equal(t, "br label %after_loop", block(t, fn, "then").Terminator.String())
	assert.Equal(t, "br label %loop", block(t, fn, "continuation").Terminator.String())

	fn = mustEmit(t, "BEGIN LOOP IFP X X = X - 1 ELSE BREAK END END END")

	assert.Equal(t, "br label %continuation", block(t, fn, "then").Terminator.String())
	assert.Equal(t, "br label %after_loop", block(t, fn, "else").Terminator.String())
}

func TestEmitSkipsStatementsAfterBreak(t *testing.T) {
	fn := mustEmit(t, "BEGIN LOOP BREAK PRINT 1 X = 2 END END")

	for _, bb := range fn.Blocks {
		for _, inst := range bb.Instructions {
			assert.NotEqual(t, ir.OpCall, inst.Op)
		}
	}
	assert.Empty(t, fn.Blocks[0].Instructions)
}

func TestEmitLoopBackEdge(t *testing.T) {
	fn := mustEmit(t, "BEGIN LOOP PRINT 1 END END")

	loop := block(t, fn, "loop")
	assert.Equal(t, "br label %loop", loop.Terminator.String())
	assert.Equal(t, "br label %loop", block(t, fn, "entry").Terminator.String())
}

func TestEmitSignTests(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"BEGIN IFP X END END", "%cmp = icmp slt i32 0, %1"},
		{"BEGIN IFN X END END", "%cmp = icmp sgt i32 0, %1"},
		{"BEGIN IFZ X END END", "%cmp = icmp eq i32 0, %1"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			entry := block(t, mustEmit(t, tt.src), "entry")
			require.Len(t, entry.Instructions, 2)
			assert.Equal(t, tt.expected, entry.Instructions[1].String())
		})
	}
}

func TestEmitIfWithoutElseFallsToContinuation(t *testing.T) {
	fn := mustEmit(t, "BEGIN IFZ 1 PRINT 1 END PRINT 2 END")

	assert.Equal(t, "br i1 %cmp, label %then, label %continuation", block(t, fn, "entry").Terminator.String())
	assert.Equal(t, "br label %continuation", block(t, fn, "then").Terminator.String())
	assert.Equal(t, "ret i32 0", block(t, fn, "continuation").Terminator.String())
}

func TestEmitIfWithElse(t *testing.T) {
	fn := mustEmit(t, "BEGIN IFZ 1 PRINT 1 ELSE PRINT 2 END END")

	assert.Equal(t, "br i1 %cmp, label %then, label %else", block(t, fn, "entry").Terminator.String())
	assert.Equal(t, "br label %continuation", block(t, fn, "then").Terminator.String())
	assert.Equal(t, "br label %continuation", block(t, fn, "else").Terminator.String())
}

func TestEmitReadUsesVariableSlot(t *testing.T) {
	fn := mustEmit(t, "BEGIN READ X PRINT X END")

	allocas := 0
	for _, inst := range fn.Blocks[0].Instructions {
		if inst.Op == ir.OpAlloca {
			allocas++
		}
	}
	assert.Equal(t, 1, allocas)

	entry := block(t, fn, "entry")
	assert.Equal(t, "%read = call i32 @scanf(ptr @read_template, ptr %X)", entry.Instructions[0].String())
	assert.Equal(t, "%2 = load i32, ptr %X", entry.Instructions[1].String())
}

func TestEmitBinaryOperators(t *testing.T) {
	entry := block(t, mustEmit(t, "BEGIN X = 7 / 2 % 3 - 1 * 4 + 5 END"), "entry")

	ops := []ir.Op{}
	for _, inst := range entry.Instructions {
		ops = append(ops, inst.Op)
	}
	assert.Equal(t, []ir.Op{ir.OpSDiv, ir.OpSRem, ir.OpMul, ir.OpSub, ir.OpAdd, ir.OpStore}, ops)
}

func TestEmitBreakOutsideLoop(t *testing.T) {
	tokens, err := lexer.NewLexer([]byte("BEGIN\n  IFZ 0\n    BREAK\n  END\nEND"), nil).Tokenize()
	require.NoError(t, err)
	program, err := parser.NewParser(lexer.NewTokenScanner(tokens), nil).Parse()
	require.NoError(t, err)

	eh := &compiler_errors.Discard{}
	m, err := NewEmitter("test.bitsy", program, eh).Emit()
	assert.Nil(t, m)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "break statement outside of a loop", genErr.GetMessage())
	assert.Equal(t, lexer.Pos{Offset: 18, Line: 3, Column: 5}, genErr.GetPos())
	assert.Len(t, eh.Errors(), 1)
}

func TestEmittedModulesVerify(t *testing.T) {
	sources := []string{
		"BEGIN END",
		"BEGIN LOOP END END",
		"BEGIN LOOP IFZ 0 BREAK ELSE BREAK END END END",
		"BEGIN IFP 1 LOOP BREAK END ELSE IFN 2 END END PRINT 3 END",
		"BEGIN READ N LOOP IFZ N BREAK END PRINT N N = N - 1 END END",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			mustEmit(t, src)
		})
	}
}
