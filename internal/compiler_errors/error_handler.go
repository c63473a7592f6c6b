package compiler_errors

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type Pos struct {
	Offset int
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func (p Pos) IsValid() bool {
	return p.Line > 0
}

type CompilerError interface {
	error
	GetMessage() string
	GetPos() Pos
}

type ErrorHandler interface {
	AddError(err CompilerError)
	Errors() []CompilerError
	FailNow()
}

type CompilerErrorHandler struct {
	fileName string

	errors []CompilerError
	writer io.Writer

	exit func(code int)
}

func NewErrorHandler(fileName string, outputWriter io.Writer) *CompilerErrorHandler {
	return &CompilerErrorHandler{
		fileName: fileName,
		errors:   make([]CompilerError, 0),
		writer:   outputWriter,
		exit:     os.Exit,
	}
}

// SetExitFunc replaces os.Exit in FailNow.
func (eh *CompilerErrorHandler) SetExitFunc(exit func(code int)) {
	eh.exit = exit
}

func (eh *CompilerErrorHandler) AddError(err CompilerError) {
	eh.errors = append(eh.errors, err)
}

func (eh *CompilerErrorHandler) Errors() []CompilerError {
	return eh.errors
}

func (eh *CompilerErrorHandler) Report() {
	header := color.New(color.Bold)
	label := color.New(color.FgRed, color.Bold)
	if !isTerminal(eh.writer) {
		header.DisableColor()
		label.DisableColor()
	}

	header.Fprintln(eh.writer, "Build failed with errors:")

	for _, err := range eh.errors {
		location := eh.fileName
		if pos := err.GetPos(); pos.IsValid() {
			location = fmt.Sprintf("%s:%s", eh.fileName, pos)
		}
		fmt.Fprintf(eh.writer, "%s: %s %s\n", location, label.Sprint("ERROR:"), err.GetMessage())
	}
}

func (eh *CompilerErrorHandler) FailNow() {
	eh.Report()
	eh.exit(1)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Discard collects errors without reporting them.
type Discard struct {
	errors []CompilerError
}

func (d *Discard) AddError(err CompilerError) { d.errors = append(d.errors, err) }
func (d *Discard) Errors() []CompilerError    { return d.errors }
func (d *Discard) FailNow()                   {}
