package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"

	"github.com/kievzenit/bitsyc/internal/ast"
	"github.com/kievzenit/bitsyc/internal/compiler"
	"github.com/kievzenit/bitsyc/internal/ir"
)

const (
	stageTokens  = "tokens"
	stageAST     = "ast"
	stageASTDump = "ast-dump"
	stageIR      = "ir"
	stageLLVM    = "llvm"
	stageDot     = "dot"
)

var stages = []string{stageTokens, stageAST, stageASTDump, stageIR, stageLLVM, stageDot}

func newEmitCmd(o *options) *cobra.Command {
	var (
		stage string
		noOpt bool
	)

	cmd := &cobra.Command{
		Use:   "emit [file]",
		Short: "Print an intermediate stage of the compilation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noOpt {
				o.cfg.Build.Optimize = false
			}

			out := cmd.OutOrStdout()
			switch stage {
			case stageTokens, stageAST, stageASTDump:
				return o.emitFrontEnd(cmd, args[0], stage, out)
			case stageIR, stageLLVM, stageDot:
			default:
				return fmt.Errorf("unknown stage %q, expected one of %q", stage, stages)
			}

			mod, err := o.compile(cmd, args[0])
			if err != nil {
				return err
			}

			switch stage {
			case stageIR:
				_, err = io.WriteString(out, mod.String())
				return err
			case stageLLVM:
				m, err := o.lower(mod)
				if err != nil {
					return err
				}
				defer m.Dispose()

				_, err = io.WriteString(out, m.String())
				return err
			}

			fn := mod.Function("main")
			if fn == nil {
				return &ExitError{Code: exitDot, Err: errors.New("module has no function main")}
			}
			if err := ir.WriteDot(out, fn); err != nil {
				return &ExitError{Code: exitDot, Err: fmt.Errorf("writing DOT: %w", err)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", stageIR, "stage to print: tokens, ast, ast-dump, ir, llvm or dot")
	cmd.Flags().BoolVar(&noOpt, "no-opt", false, "skip optimization")
	return cmd
}

func (o *options) emitFrontEnd(cmd *cobra.Command, path, stage string, out io.Writer) error {
	src, eh, err := o.readSource(cmd, path)
	if err != nil {
		return err
	}

	if stage == stageTokens {
		tokens, err := compiler.Tokenize(moduleName(path), src, eh)
		if err != nil {
			return frontEndError(eh, err)
		}
		for i := range tokens {
			fmt.Fprintln(out, tokens[i].String())
		}
		return nil
	}

	program, err := compiler.Parse(moduleName(path), src, eh)
	if err != nil {
		return frontEndError(eh, err)
	}

	if stage == stageASTDump {
		_, err = fmt.Fprintln(out, litter.Sdump(program))
		return err
	}
	return ast.Fprint(out, program)
}
