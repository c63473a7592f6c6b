// Package cli implements the bitsyc command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kievzenit/bitsyc/internal/compiler"
	"github.com/kievzenit/bitsyc/internal/compiler_errors"
	"github.com/kievzenit/bitsyc/internal/config"
	"github.com/kievzenit/bitsyc/internal/log"
)

const (
	exitFailure = 1
	exitVerify  = 2
	exitCompile = 3
	exitDot     = 4
)

// ExitError makes bitsyc exit with Code. A nil Err means the failure was
// already reported.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

type options struct {
	configFile string
	verbosity  string

	cfg config.Config

	// exit is handed to the compiler error handler.
	exit func(code int)
}

func newRootCmd(exit func(code int)) *cobra.Command {
	o := &options{
		cfg:  config.Defaults,
		exit: exit,
	}

	rootCmd := &cobra.Command{
		Use:   "bitsyc",
		Short: "bitsyc: compiler and runner for Bitsy programs",
		Long: `bitsyc compiles Bitsy programs and runs them.

Commands:
  run         Compile a (.bitsy) source file and execute it
  build       Compile a (.bitsy) source file into a native executable
  emit        Print an intermediate stage of the compilation
  dumpconfig  Print the effective configuration as TOML
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
	}

	rootCmd.PersistentFlags().StringVar(&o.configFile, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVarP(&o.verbosity, "verbosity", "v", "warn", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newRunCmd(o),
		newBuildCmd(o),
		newEmitCmd(o),
		newDumpConfigCmd(o),
	)
	return rootCmd
}

func (o *options) setup() error {
	level, err := log.ParseLevel(o.verbosity)
	if err != nil {
		return err
	}
	log.Root().SetLevel(level)

	if o.configFile == "" {
		return nil
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	o.cfg = cfg

	log.Debug("Loaded configuration", "file", o.configFile)
	return nil
}

// readSource loads the file at path and prepares the handler its
// diagnostics are reported through.
func (o *options) readSource(cmd *cobra.Command, path string) ([]byte, *compiler_errors.CompilerErrorHandler, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &ExitError{Code: exitFailure, Err: err}
	}

	eh := compiler_errors.NewErrorHandler(path, cmd.ErrOrStderr())
	eh.SetExitFunc(o.exit)
	return src, eh, nil
}

// frontEndError turns a failed compiler stage into an ExitError. Diagnostics
// collected by eh are reported and end the process.
func frontEndError(eh *compiler_errors.CompilerErrorHandler, err error) error {
	if len(eh.Errors()) > 0 {
		eh.FailNow()
		return &ExitError{Code: exitFailure}
	}

	var verifyErr *compiler.VerificationError
	if errors.As(err, &verifyErr) {
		return &ExitError{Code: exitVerify, Err: err}
	}
	return &ExitError{Code: exitFailure, Err: err}
}

func moduleName(path string) string {
	return filepath.Base(path)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer, exit func(code int)) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd(exit)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	code := exitFailure
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			return code
		}
	}

	label := color.New(color.FgRed, color.Bold)
	if f, ok := stderr.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		label.DisableColor()
	}
	fmt.Fprintf(stderr, "%s %s\n", label.Sprint("error:"), err)
	return code
}

// Execute runs bitsyc with the process arguments and returns its exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Exit)
}
