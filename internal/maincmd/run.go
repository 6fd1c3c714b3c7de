package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/cedar/lang/compiler"
	"github.com/mna/cedar/lang/machine"
	"github.com/mna/cedar/lang/scanner"
	"github.com/mna/cedar/lang/stdlib"
	"github.com/mna/cedar/lang/value"
)

// asCompileFailed reports whether err is (or wraps) a compiler.Failed, the
// "one or more source errors reported" case that exits 64.
func asCompileFailed(err error) bool {
	var failed *compiler.Failed
	return errors.As(err, &failed)
}

// asICE reports whether err is (or wraps) a compiler.ICE, an internal
// compiler invariant violation that exits 65 rather than 64 — distinct
// from an ordinary source error, since it means the compiler itself is
// broken rather than the input.
func asICE(err error) bool {
	var ice *compiler.ICE
	return errors.As(err, &ice)
}

// RunFile compiles and executes the script at path, in its own fresh VM
// (spec §6: each file run gets a clean VM, unlike the REPL's persisted
// one).
func RunFile(ctx context.Context, stdio mainer.Stdio, path string, debug bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}
	return run(ctx, stdio, newVM(stdio, debug), string(src))
}

func newVM(stdio mainer.Stdio, debug bool) *machine.VM {
	vm := machine.New()
	vm.Stdout = stdio.Stdout
	vm.Stderr = stdio.Stderr
	vm.Debug = debug
	stdlib.Install(vm.Globals())
	return vm
}

// run compiles src and, if it compiled cleanly, interprets it on vm. On
// --debug, every compiled chunk's disassembly is printed to stderr before
// the VM runs (spec §9 supplemented feature).
func run(ctx context.Context, stdio mainer.Stdio, vm *machine.VM, src string) error {
	fn, err := compiler.Compile(src)
	if err != nil {
		var failed *compiler.Failed
		if errors.As(err, &failed) {
			scanner.PrintError(stdio.Stderr, failed.Errs)
		} else {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
		}
		return err
	}

	if vm.Debug {
		pending := []*value.Function{fn}
		for len(pending) > 0 {
			f := pending[0]
			pending = pending[1:]
			chunk, ok := f.Chunk.(*compiler.Chunk)
			if !ok {
				continue
			}
			fmt.Fprint(stdio.Stderr, chunk.Disassemble(chunk.Name()))
			for _, k := range chunk.Constants {
				if inner, ok := k.(*value.Function); ok {
					pending = append(pending, inner)
				}
			}
		}
	}

	if err := vm.Interpret(ctx, fn); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return err
	}
	return nil
}
