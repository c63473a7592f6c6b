package interpreter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kievzenit/bitsyc/internal/emitter"
	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/lexer"
	"github.com/kievzenit/bitsyc/internal/parser"
)

func compile(t *testing.T, src string) *ir.Module {
	t.Helper()

	tokens, err := lexer.NewLexer([]byte(src), nil).Tokenize()
	require.NoError(t, err)

	program, err := parser.NewParser(lexer.NewTokenScanner(tokens), nil).Parse()
	require.NoError(t, err)

	mod, err := emitter.NewEmitter("test.bitsy", program, nil).Emit()
	require.NoError(t, err)
	require.Empty(t, ir.Verify(mod))

	return mod
}

func run(t *testing.T, mod *ir.Module, stdin string) (string, error) {
	t.Helper()

	var stdout bytes.Buffer
	code, err := Execute(context.Background(), mod, Options{
		Stdin:    strings.NewReader(stdin),
		Stdout:   &stdout,
		MaxSteps: 1_000_000,
	})
	if err == nil {
		assert.Equal(t, int32(0), code)
	}
	return stdout.String(), err
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		stdin    string
		expected string
	}{
		{
			name:     "print assigned variable",
			src:      "BEGIN X = 3 PRINT X END",
			expected: "3\n",
		},
		{
			name:     "loop until zero",
			src:      "BEGIN X = 0 LOOP X = X + 1 IFZ X - 3 BREAK END END PRINT X END",
			expected: "3\n",
		},
		{
			name:     "unassigned variables are zero",
			src:      "BEGIN PRINT Y END",
			expected: "0\n",
		},
		{
			name:     "precedence",
			src:      "BEGIN PRINT 1 + 2 * 3 PRINT (1 + 2) * 3 PRINT 8 - 3 - 2 END",
			expected: "7\n9\n3\n",
		},
		{
			name:     "truncating division",
			src:      "BEGIN PRINT (-7) / 2 PRINT -7 % 2 PRINT 7 / -2 PRINT 7 % -2 END",
			expected: "-3\n-1\n-3\n1\n",
		},
		{
			name:     "wraparound",
			src:      "BEGIN X = 2147483647 + 1 PRINT X PRINT -2147483648 - 1 PRINT 65536 * 65536 END",
			expected: "-2147483648\n2147483647\n0\n",
		},
		{
			name:     "sign tests",
			src:      "BEGIN IFP 1 PRINT 1 END IFP 0 PRINT 2 END IFN -1 PRINT 3 END IFN 0 PRINT 4 END IFZ 0 PRINT 5 END IFZ 1 PRINT 6 ELSE PRINT 7 END END",
			expected: "1\n3\n5\n7\n",
		},
		{
			name:     "nested loops break innermost",
			src:      "BEGIN I = 0 LOOP IFZ I - 2 BREAK END J = 0 LOOP IFZ J - 2 BREAK END PRINT I * 10 + J J = J + 1 END I = I + 1 END END",
			expected: "0\n1\n10\n11\n",
		},
		{
			name:     "factorial",
			src:      "BEGIN READ N F = 1 LOOP IFZ N BREAK END F = F * N N = N - 1 END PRINT F END",
			stdin:    "5\n",
			expected: "120\n",
		},
		{
			name:     "read integer conventions",
			src:      "BEGIN READ A READ B READ C READ D PRINT A PRINT B PRINT C PRINT D END",
			stdin:    "  42\n-5 0x10\t010",
			expected: "42\n-5\n16\n8\n",
		},
		{
			name:     "read at end of input keeps value",
			src:      "BEGIN X = 9 READ X PRINT X END",
			expected: "9\n",
		},
		{
			name:     "read malformed input keeps value and stays in the stream",
			src:      "BEGIN X = 9 READ X PRINT X READ X PRINT X END",
			stdin:    "abc 4",
			expected: "9\n9\n",
		},
		{
			name:     "read stops at the first character past the number",
			src:      "BEGIN READ A READ B PRINT A PRINT B END",
			stdin:    "12abc",
			expected: "12\n0\n",
		},
		{
			name:     "read has no binary prefix",
			src:      "BEGIN READ A READ B PRINT A PRINT B END",
			stdin:    "0b101",
			expected: "0\n0\n",
		},
		{
			name:     "read has no digit separators",
			src:      "BEGIN READ A READ B PRINT A PRINT B END",
			stdin:    "1_000",
			expected: "1\n0\n",
		},
		{
			name:     "read splits octal at the first non octal digit",
			src:      "BEGIN READ A READ B PRINT A PRINT B END",
			stdin:    "079",
			expected: "7\n9\n",
		},
		{
			name:     "read signed hex",
			src:      "BEGIN READ A PRINT A END",
			stdin:    "-0x1F",
			expected: "-31\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, compile(t, tt.src), tt.stdin)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestExecuteOptimizedModuleBehavesTheSame(t *testing.T) {
	sources := []string{
		"BEGIN PRINT 1 + 2 * 3 - 4 / 2 % 3 END",
		"BEGIN IFZ 2 - 2 PRINT 1 ELSE PRINT 2 END IFP 0 - 1 PRINT 3 END END",
		"BEGIN X = 10 LOOP IFN X BREAK END PRINT X * 2 + 1 X = X - 3 END END",
		"BEGIN LOOP BREAK END PRINT 5 END",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			expected, err := run(t, compile(t, src), "")
			require.NoError(t, err)

			optimized := compile(t, src)
			ir.Optimize(optimized)
			require.Empty(t, ir.Verify(optimized))

			out, err := run(t, optimized, "")
			require.NoError(t, err)
			assert.Equal(t, expected, out)
		})
	}
}

func TestExecuteRuntimeErrors(t *testing.T) {
	tests := []struct {
		src     string
		message string
		output  string
	}{
		{"BEGIN PRINT 1 X = 1 / Y END", "division by zero", "1\n"},
		{"BEGIN X = 1 % 0 END", "remainder by zero", ""},
		{"BEGIN X = -2147483648 / -1 END", "integer overflow in -2147483648 sdiv -1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			out, err := run(t, compile(t, tt.src), "")

			var runtimeErr *RuntimeError
			require.True(t, errors.As(err, &runtimeErr), "got %v", err)
			assert.Equal(t, tt.message, runtimeErr.Message)
			assert.Equal(t, "entry", runtimeErr.Block)
			assert.Equal(t, tt.output, out)
		})
	}
}

func TestExecuteStepLimit(t *testing.T) {
	mod := compile(t, "BEGIN LOOP END END")

	_, err := Execute(context.Background(), mod, Options{MaxSteps: 500})
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestExecuteCancelled(t *testing.T) {
	mod := compile(t, "BEGIN X = 0 LOOP X = X + 1 END END")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Execute(ctx, mod, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteReturnsExitCode(t *testing.T) {
	mod := ir.NewModule("test")
	fn := mod.AddFunction("main", ir.I32)
	b := ir.NewBuilder()
	b.SetInsertPointAtEnd(fn.AddBlock("entry"))
	b.CreateRet(b.CreateMul(ir.Const(6), ir.Const(7), ""))

	code, err := Execute(context.Background(), mod, Options{})
	require.NoError(t, err)
	assert.Equal(t, int32(42), code)
}

func TestExecuteWithoutMain(t *testing.T) {
	_, err := Execute(context.Background(), ir.NewModule("empty"), Options{})
	assert.EqualError(t, err, "module has no function main")
}
