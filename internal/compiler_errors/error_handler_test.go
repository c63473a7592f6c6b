package compiler_errors

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testError struct {
	msg string
	pos Pos
}

func (e *testError) Error() string      { return fmt.Sprintf("%s: %s", e.pos, e.msg) }
func (e *testError) GetMessage() string { return e.msg }
func (e *testError) GetPos() Pos        { return e.pos }

func TestFailNowReportsAllErrors(t *testing.T) {
	var out bytes.Buffer
	eh := NewErrorHandler("prog.b", &out)

	exitCode := -1
	eh.SetExitFunc(func(code int) { exitCode = code })

	eh.AddError(&testError{msg: "first", pos: Pos{Offset: 0, Line: 1, Column: 1}})
	eh.AddError(&testError{msg: "second", pos: Pos{Offset: 12, Line: 2, Column: 4}})
	eh.AddError(&testError{msg: "no position"})
	eh.FailNow()

	require.Equal(t, 1, exitCode)
	assert.Equal(t,
		"Build failed with errors:\n"+
			"prog.b:1:1: ERROR: first\n"+
			"prog.b:2:4: ERROR: second\n"+
			"prog.b: ERROR: no position\n",
		out.String())
}

func TestErrorsKeepsInsertionOrder(t *testing.T) {
	eh := NewErrorHandler("x", &bytes.Buffer{})
	a := &testError{msg: "a"}
	b := &testError{msg: "b"}
	eh.AddError(a)
	eh.AddError(b)

	assert.Equal(t, []CompilerError{a, b}, eh.Errors())
}

func TestDiscard(t *testing.T) {
	d := &Discard{}
	d.AddError(&testError{msg: "a"})
	d.FailNow()

	assert.Len(t, d.Errors(), 1)
}

func TestPos(t *testing.T) {
	assert.False(t, Pos{}.IsValid())
	assert.True(t, Pos{Line: 3, Column: 7}.IsValid())
	assert.Equal(t, "3:7", Pos{Line: 3, Column: 7}.String())
}
