package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kievzenit/bitsyc/internal/compiler"
	"github.com/kievzenit/bitsyc/internal/config"
	"github.com/kievzenit/bitsyc/internal/interpreter"
	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/llvm_backend"
	"github.com/kievzenit/bitsyc/internal/log"
)

func newRunCmd(o *options) *cobra.Command {
	var (
		backend string
		noOpt   bool
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile a (.bitsy) source file and execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("backend") {
				o.cfg.Run.Backend = backend
			}
			if noOpt {
				o.cfg.Build.Optimize = false
			}
			if err := o.cfg.Validate(); err != nil {
				return err
			}

			mod, err := o.compile(cmd, args[0])
			if err != nil {
				return err
			}

			var code int32
			switch o.cfg.Run.Backend {
			case config.BackendLLVM:
				code, err = o.runLLVM(mod)
			default:
				code, err = o.interpret(cmd, mod)
			}
			if err != nil {
				return err
			}

			log.Debug("Program finished", "file", args[0], "backend", o.cfg.Run.Backend, "exit", code)
			if code != 0 {
				return &ExitError{Code: int(code)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", config.BackendInterpreter, "execution backend: interpreter or llvm")
	cmd.Flags().BoolVar(&noOpt, "no-opt", false, "skip optimization")
	return cmd
}

// compile runs the front end on path and, when enabled, the ir optimizer.
func (o *options) compile(cmd *cobra.Command, path string) (*ir.Module, error) {
	src, eh, err := o.readSource(cmd, path)
	if err != nil {
		return nil, err
	}

	mod, err := compiler.Compile(moduleName(path), src, eh)
	if err != nil {
		return nil, frontEndError(eh, err)
	}

	if o.cfg.Build.Optimize {
		if err := compiler.Optimize(mod); err != nil {
			return nil, &ExitError{Code: exitVerify, Err: err}
		}
	}
	return mod, nil
}

func (o *options) interpret(cmd *cobra.Command, mod *ir.Module) (int32, error) {
	code, err := interpreter.Execute(cmd.Context(), mod, interpreter.Options{
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
		MaxSteps: o.cfg.Run.MaxSteps,
	})
	if err != nil {
		return 0, &ExitError{Code: exitFailure, Err: err}
	}
	return code, nil
}

// runLLVM JIT-compiles mod. The program talks to the process's own stdin and
// stdout.
func (o *options) runLLVM(mod *ir.Module) (int32, error) {
	m, err := o.lower(mod)
	if err != nil {
		return 0, err
	}
	defer m.Dispose()

	code, err := m.Execute()
	if err != nil {
		return 0, &ExitError{Code: exitFailure, Err: err}
	}
	return code, nil
}

// lower turns mod into a verified, optionally optimized LLVM module.
func (o *options) lower(mod *ir.Module) (*llvm_backend.Module, error) {
	m, err := llvm_backend.NewModule(mod)
	if err != nil {
		return nil, &ExitError{Code: exitCompile, Err: err}
	}

	if err := m.Verify(); err != nil {
		m.Dispose()
		return nil, &ExitError{Code: exitVerify, Err: fmt.Errorf("LLVM verification: %w", err)}
	}

	if o.cfg.Build.Optimize {
		if err := m.Optimize(o.cfg.Build.Passes); err != nil {
			m.Dispose()
			return nil, &ExitError{Code: exitCompile, Err: err}
		}
	}
	return m, nil
}
