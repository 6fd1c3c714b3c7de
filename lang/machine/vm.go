// Package machine implements the stack-based virtual machine that executes
// a compiled Chunk: call frames, the globals table, the heap and its
// collector, and the native-function calling convention (spec §4.3).
package machine

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mna/cedar/lang/compiler"
	"github.com/mna/cedar/lang/value"
)

// VM owns everything a running Cedar program can observe or mutate: the
// operand stack, the call-frame stack, the globals table, and the heap.
// REPL mode reuses one VM across lines so globals persist (spec §5);
// script mode creates a fresh VM per run.
type VM struct {
	// ID distinguishes concurrently-instantiated VMs (e.g. in tests, or
	// successive REPL processes) in --debug trace output.
	ID uuid.UUID

	Stdout io.Writer
	Stderr io.Writer

	// Debug enables --debug step tracing (spec §9 supplemented feature);
	// it never changes program semantics.
	Debug bool

	logger *logrus.Logger

	stack   []value.Value
	frames  []callFrame
	globals map[string]value.Value
	heap    heap
}

// New creates a ready-to-run VM with its own empty globals table and heap.
func New() *VM {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	return &VM{
		ID:      uuid.New(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		logger:  logger,
		globals: make(map[string]value.Value),
	}
}

// trace emits one --debug step-trace line, tagged with this VM's ID so
// concurrently-running VMs (several REPLs, or several in one test binary)
// stay distinguishable in the log.
func (vm *VM) trace(args ...any) {
	vm.logger.SetOutput(vm.Stderr)
	vm.logger.WithField("vm", vm.ID).Debug(args...)
}

// Globals exposes the VM's global variable table so a caller (the REPL,
// stdlib installation) can seed or inspect it between runs.
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

// Interpret runs fn (typically the top-level script Function returned by
// compiler.Compile) to completion. ctx is checked between instructions so
// a signal-driven cancellation (the CLI driver's Ctrl-C handling) can stop
// a runaway script instead of only being honored between top-level runs.
func (vm *VM) Interpret(ctx context.Context, fn *value.Function) error {
	vm.push(fn)
	err := vm.call(fn, 0)
	if err == nil {
		err = vm.run(ctx)
	}
	if err != nil {
		// drop the failed run's frames and operands so a reused VM (the REPL)
		// starts its next Interpret from an empty call stack
		vm.frames = vm.frames[:0]
		vm.stack = vm.stack[:0]
	}
	return err
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

func (vm *VM) currentFrame() *callFrame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) currentChunk() *compiler.Chunk {
	return vm.currentFrame().fn.Chunk.(*compiler.Chunk)
}

func (vm *VM) runtimeError(format string, args ...any) error {
	line := 0
	if len(vm.frames) > 0 {
		c := vm.currentChunk()
		fr := vm.currentFrame()
		if fr.ip-1 >= 0 && fr.ip-1 < len(c.Lines) {
			line = c.Lines[fr.ip-1]
		}
	}
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// call invokes fn with argCount arguments already sitting on top of the
// stack (spec §4.3.10). Fewer arguments than the function's arity is
// accepted; the missing parameter slots are padded with Null (spec §9 open
// question, decided — see DESIGN.md).
func (vm *VM) call(fn *value.Function, argCount int) error {
	chunk := fn.Chunk.(*compiler.Chunk)
	if argCount > chunk.FnArity {
		return vm.runtimeError("expected at most %d arguments but got %d", chunk.FnArity, argCount)
	}
	for argCount < chunk.FnArity {
		vm.push(value.Nil)
		argCount++
	}
	if len(vm.frames) >= maxCallDepth {
		return vm.runtimeError("stack overflow")
	}
	vm.frames = append(vm.frames, callFrame{
		fn:       fn,
		ip:       0,
		slotBase: len(vm.stack) - argCount - 1,
	})
	return nil
}

const maxCallDepth = 1024

func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.Function:
		return vm.call(c, argCount)
	case *value.NativeFn:
		args := make([]value.Value, argCount)
		copy(args, vm.stack[len(vm.stack)-argCount:])
		for i, a := range args {
			args[i] = vm.heap.resolve(a)
		}
		result, ok := c.Call(args)
		if !ok {
			return vm.runtimeError("native function call failed")
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1] // pop args + callee
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("can only call functions, got %s", callee.Type())
	}
}

// instructionCheckInterval bounds how often the run loop checks ctx for
// cancellation; checking every instruction would show up in profiles for
// no practical benefit at Cedar's script sizes.
const instructionCheckInterval = 1024

// run executes the current top frame (and any frames it calls into) until
// the outermost frame returns (spec §4.3 "Execution model").
func (vm *VM) run(ctx context.Context) error {
	if vm.Debug {
		vm.logger.SetLevel(logrus.DebugLevel)
	}
	for step := 0; ; step++ {
		if step%instructionCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return vm.runtimeError("interrupted: %s", err)
			}
		}

		fr := vm.currentFrame()
		chunk := fr.fn.Chunk.(*compiler.Chunk)

		op := compiler.Opcode(chunk.Code[fr.ip])
		fr.ip++

		if vm.Debug {
			var stacked strings.Builder
			for _, v := range vm.stack {
				fmt.Fprintf(&stacked, "[ %s ]", v)
			}
			vm.trace(fmt.Sprintf("%-14s %s", op, stacked.String()))
		}

		switch op {
		case compiler.OpReturn:
			result := vm.pop()
			finishedBase := fr.slotBase
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:finishedBase]
			// result is no longer on the stack at finishedBase; root it for
			// the collector so a returned heap value (e.g. a concatenated
			// string) isn't swept as garbage before the caller sees it.
			vm.push(result)
			vm.heap.collect(vm.stack)
			if len(vm.frames) == 0 {
				return nil
			}

		case compiler.OpConstant:
			idx := chunk.Code[fr.ip]
			fr.ip++
			vm.push(chunk.Constants[idx])

		case compiler.OpNegate:
			n, ok := vm.pop().(value.Number)
			if !ok {
				return vm.runtimeError("operand must be a number")
			}
			vm.push(-n)

		case compiler.OpNot:
			v := vm.pop()
			vm.push(value.Bool(!truthy(v)))

		case compiler.OpAdd:
			b := vm.pop()
			a := vm.pop()
			result, err := vm.add(a, b)
			if err != nil {
				return err
			}
			vm.push(result)

		case compiler.OpSub, compiler.OpMul, compiler.OpDiv:
			b := vm.pop()
			a := vm.pop()
			an, aok := a.(value.Number)
			bn, bok := b.(value.Number)
			if !aok || !bok {
				return vm.runtimeError("operands must be numbers")
			}
			switch op {
			case compiler.OpSub:
				vm.push(an - bn)
			case compiler.OpMul:
				vm.push(an * bn)
			case compiler.OpDiv:
				vm.push(an / bn)
			}

		case compiler.OpEq:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(equal(vm.heap.resolve(a), vm.heap.resolve(b))))

		case compiler.OpNotEq:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(!equal(vm.heap.resolve(a), vm.heap.resolve(b))))

		case compiler.OpGt, compiler.OpGe, compiler.OpLt, compiler.OpLe:
			b := vm.heap.resolve(vm.pop())
			a := vm.heap.resolve(vm.pop())
			lt, eq, err := order(chunk.Lines[fr.ip-1], a, b)
			if err != nil {
				return err
			}
			switch op {
			case compiler.OpGt:
				vm.push(value.Bool(!lt && !eq))
			case compiler.OpGe:
				vm.push(value.Bool(!lt))
			case compiler.OpLt:
				vm.push(value.Bool(lt))
			case compiler.OpLe:
				vm.push(value.Bool(lt || eq))
			}

		case compiler.OpNull:
			vm.push(value.Nil)

		case compiler.OpTrue:
			vm.push(value.Bool(true))

		case compiler.OpFalse:
			vm.push(value.Bool(false))

		case compiler.OpPrint:
			v := vm.heap.resolve(vm.pop())
			fmt.Fprintf(vm.Stdout, "%s\n", v)

		case compiler.OpPop:
			vm.pop()

		case compiler.OpDefineGlobal:
			name := string(chunk.Constants[chunk.Code[fr.ip]].(value.String))
			fr.ip++
			vm.globals[name] = vm.heap.resolve(vm.pop())

		case compiler.OpGetGlobal:
			name := string(chunk.Constants[chunk.Code[fr.ip]].(value.String))
			fr.ip++
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.push(v)

		case compiler.OpSetGlobal:
			name := string(chunk.Constants[chunk.Code[fr.ip]].(value.String))
			fr.ip++
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.globals[name] = vm.heap.resolve(vm.peek(0))

		case compiler.OpGetLocal:
			slot := chunk.Code[fr.ip]
			fr.ip++
			vm.push(vm.stack[fr.slotBase+int(slot)])

		case compiler.OpSetLocal:
			slot := chunk.Code[fr.ip]
			fr.ip++
			vm.stack[fr.slotBase+int(slot)] = vm.peek(0)

		case compiler.OpJump:
			offset := readU16(chunk.Code, fr.ip)
			fr.ip += 2 + int(offset)

		case compiler.OpJumpIfFalse:
			offset := readU16(chunk.Code, fr.ip)
			fr.ip += 2
			if vm.peek(0) == value.Bool(false) {
				fr.ip += int(offset)
			}

		case compiler.OpLoop:
			offset := readU16(chunk.Code, fr.ip)
			fr.ip += 2 - int(offset)

		case compiler.OpCall:
			argCount := int(chunk.Code[fr.ip])
			fr.ip++
			callee := vm.peek(argCount)
			if err := vm.callValue(callee, argCount); err != nil {
				return err
			}

		default:
			return vm.runtimeError("unknown opcode %s", op)
		}
	}
}

func readU16(code []byte, at int) uint16 {
	return uint16(code[at])<<8 | uint16(code[at+1])
}

// truthy applies Cedar's definition of falsiness: only Bool(false) is
// false-like; every other value, including Null and 0, is truthy. This
// matches the dispatch in spec §4.2 ("only adjusted when the peeked top
// equals Bool(false)").
func truthy(v value.Value) bool {
	b, ok := v.(value.Bool)
	return !ok || bool(b)
}

// add implements `+`, including the string-concatenation overload (spec
// §4.3.5): if either operand is a string, the other is rendered to text
// and the result is heap-allocated.
func (vm *VM) add(a, b value.Value) (value.Value, error) {
	a = vm.heap.resolve(a)
	b = vm.heap.resolve(b)

	an, aNum := a.(value.Number)
	bn, bNum := b.(value.Number)
	if aNum && bNum {
		return an + bn, nil
	}

	_, aStr := a.(value.String)
	_, bStr := b.(value.String)
	if aStr || bStr {
		concatenated := a.String() + b.String()
		return vm.heap.alloc(value.String(concatenated)), nil
	}

	return nil, vm.runtimeError("operands must be two numbers or at least one string")
}
