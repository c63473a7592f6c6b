// Package compiler chains the front end stages: source to tokens, tokens to
// syntax tree, syntax tree to a verified ir module.
package compiler

import (
	"fmt"
	"strings"

	"github.com/kievzenit/bitsyc/internal/ast"
	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/kievzenit/bitsyc/internal/emitter"
	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/lexer"
	"github.com/kievzenit/bitsyc/internal/log"
	"github.com/kievzenit/bitsyc/internal/parser"
)

// VerificationError carries every problem ir.Verify found in a module.
type VerificationError struct {
	Module string
	Errors []*ir.VerifyError
}

func (e *VerificationError) Error() string {
	messages := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("module %s failed verification:\n  %s", e.Module, strings.Join(messages, "\n  "))
}

func Tokenize(fileName string, src []byte, eh compiler_errors.ErrorHandler) ([]lexer.Token, error) {
	tokens, err := lexer.NewLexer(src, eh).Tokenize()
	if err != nil {
		return nil, err
	}

	log.Debug("Lexed source", "file", fileName, "bytes", len(src), "tokens", len(tokens))
	return tokens, nil
}

func Parse(fileName string, src []byte, eh compiler_errors.ErrorHandler) (*ast.Program, error) {
	tokens, err := Tokenize(fileName, src, eh)
	if err != nil {
		return nil, err
	}

	program, err := parser.NewParser(lexer.NewTokenScanner(tokens), eh).Parse()
	if err != nil {
		return nil, err
	}

	log.Debug("Parsed program", "file", fileName, "stmts", len(program.Block.Stmts))
	return program, nil
}

// Compile turns src into a verified module named after fileName.
func Compile(fileName string, src []byte, eh compiler_errors.ErrorHandler) (*ir.Module, error) {
	program, err := Parse(fileName, src, eh)
	if err != nil {
		return nil, err
	}

	mod, err := emitter.NewEmitter(fileName, program, eh).Emit()
	if err != nil {
		return nil, err
	}

	if err := Verify(mod); err != nil {
		return nil, err
	}

	log.Debug("Generated module", "file", fileName, "blocks", blockCount(mod))
	return mod, nil
}

func Verify(mod *ir.Module) error {
	if errs := ir.Verify(mod); len(errs) > 0 {
		return &VerificationError{
			Module: mod.Name,
			Errors: errs,
		}
	}
	return nil
}

// Optimize runs the ir optimizer and checks that the result still verifies.
func Optimize(mod *ir.Module) error {
	before := blockCount(mod)
	ir.Optimize(mod)
	after := blockCount(mod)

	log.Debug("Optimized module", "module", mod.Name, "blocks", after, "removed", before-after)
	return Verify(mod)
}

func blockCount(mod *ir.Module) int {
	n := 0
	for _, fn := range mod.Functions {
		n += len(fn.Blocks)
	}
	return n
}
