// Package llvm_backend lowers ir modules into LLVM and drives LLVM to verify,
// optimize, JIT-execute or compile them.
package llvm_backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"tinygo.org/x/go-llvm"

	"github.com/kievzenit/bitsyc/internal/ir"
	"github.com/kievzenit/bitsyc/internal/log"
)

var (
	initTargetOnce sync.Once
	initTargetErr  error
)

func initNativeTarget() error {
	initTargetOnce.Do(func() {
		if err := llvm.InitializeNativeTarget(); err != nil {
			initTargetErr = fmt.Errorf("initializing native target: %w", err)
			return
		}
		if err := llvm.InitializeNativeAsmPrinter(); err != nil {
			initTargetErr = fmt.Errorf("initializing native asm printer: %w", err)
			return
		}
		llvm.LinkInMCJIT()
	})
	return initTargetErr
}

// Module owns an LLVM context holding the lowered module. It must be disposed.
type Module struct {
	context       llvm.Context
	module        llvm.Module
	builder       llvm.Builder
	targetMachine llvm.TargetMachine

	// consumed is set once an execution engine took ownership of module.
	consumed bool
}

// NewModule lowers mod into a fresh LLVM context targeting the host.
func NewModule(mod *ir.Module) (*Module, error) {
	if err := initNativeTarget(); err != nil {
		return nil, err
	}

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return nil, fmt.Errorf("looking up target %s: %w", triple, err)
	}

	llvmContext := llvm.NewContext()
	m := &Module{
		context: llvmContext,
		module:  llvmContext.NewModule(mod.Name),
		builder: llvmContext.NewBuilder(),
		targetMachine: target.CreateTargetMachine(
			triple, "", "",
			llvm.CodeGenLevelDefault,
			llvm.RelocPIC,
			llvm.CodeModelDefault),
	}

	m.module.SetTarget(triple)
	targetData := m.targetMachine.CreateTargetData()
	m.module.SetDataLayout(targetData.String())
	targetData.Dispose()

	if err := newLowering(m, mod).lower(); err != nil {
		m.Dispose()
		return nil, err
	}

	log.Debug("Lowered module to LLVM", "module", mod.Name, "triple", triple)
	return m, nil
}

func (m *Module) Verify() error {
	return llvm.VerifyModule(m.module, llvm.ReturnStatusAction)
}

// Optimize runs the new pass manager pipeline described by passes, for
// example "instcombine,gvn".
func (m *Module) Optimize(passes string) error {
	options := llvm.NewPassBuilderOptions()
	defer options.Dispose()

	if err := m.module.RunPasses(passes, m.targetMachine, options); err != nil {
		return fmt.Errorf("running passes %q: %w", passes, err)
	}

	log.Debug("Optimized LLVM module", "passes", passes)
	return nil
}

// String returns the module as textual LLVM IR.
func (m *Module) String() string {
	return m.module.String()
}

// Execute JIT-compiles the module and runs main, returning its exit code.
// Output goes straight to the process's stdout. The execution engine takes
// the module over, so only Dispose may be called afterwards.
func (m *Module) Execute() (int32, error) {
	if m.consumed {
		return 0, errors.New("module was already executed")
	}

	main := m.module.NamedFunction("main")
	if main.IsNil() {
		return 0, errors.New("module has no function main")
	}

	flush := m.addFlush()

	engine, err := llvm.NewMCJITCompiler(m.module, llvm.NewMCJITCompilerOptions())
	if err != nil {
		return 0, fmt.Errorf("creating MCJIT compiler: %w", err)
	}
	m.consumed = true
	defer engine.Dispose()

	result := engine.RunFunction(main, nil)
	defer result.Dispose()

	// printf buffers inside libc, which os.Exit would skip.
	engine.RunFunction(flush, nil).Dispose()

	code := int32(result.Int(true))
	log.Debug("Executed module with MCJIT", "exit", code)
	return code, nil
}

// Compile writes the module to a temporary .ll file and has clang turn it
// into the native executable output.
func (m *Module) Compile(ctx context.Context, clang, output string) error {
	if m.consumed {
		return errors.New("module was already executed")
	}

	file, err := os.CreateTemp("", "bitsy-*.ll")
	if err != nil {
		return fmt.Errorf("creating temporary IR file: %w", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(m.module.String()); err != nil {
		file.Close()
		return fmt.Errorf("writing temporary IR file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing temporary IR file: %w", err)
	}

	cmd := exec.CommandContext(ctx, clang, "-Wno-override-module", file.Name(), "-o", output)
	log.Debug("Running clang", "cmd", cmd.String())

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w\n%s", clang, err, out)
	}
	return nil
}

// addFlush defines a function that flushes every open C stream.
func (m *Module) addFlush() llvm.Value {
	ptrType := llvm.PointerType(m.context.Int8Type(), 0)
	fflushType := llvm.FunctionType(m.context.Int32Type(), []llvm.Type{ptrType}, false)
	fflush := m.module.NamedFunction("fflush")
	if fflush.IsNil() {
		fflush = llvm.AddFunction(m.module, "fflush", fflushType)
	}

	flush := llvm.AddFunction(m.module, "bitsy.flush", llvm.FunctionType(m.context.VoidType(), nil, false))
	m.builder.SetInsertPointAtEnd(m.context.AddBasicBlock(flush, "entry"))
	m.builder.CreateCall(fflushType, fflush, []llvm.Value{llvm.ConstNull(ptrType)}, "")
	m.builder.CreateRetVoid()
	return flush
}

func (m *Module) Dispose() {
	if !m.consumed {
		m.module.Dispose()
	}
	m.builder.Dispose()
	m.targetMachine.Dispose()
	m.context.Dispose()
}
