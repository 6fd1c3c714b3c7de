package value

import "fmt"

// Code is the subset of a compiled chunk that the value package needs to
// know about, to avoid an import cycle between lang/value and
// lang/compiler (whose Chunk embeds Value constants). The compiler package
// defines the concrete *compiler.Chunk that satisfies this interface.
type Code interface {
	// Name is the function's declared name, or "" for the top-level script.
	Name() string
	// Arity is the number of declared parameters.
	Arity() int
}

// Function is a Value wrapping a compiled, callable Cedar function. The
// top-level script is represented the same way: a Function named "" with
// arity 0.
type Function struct {
	Chunk Code
}

func (f *Function) String() string {
	name := f.Chunk.Name()
	if name == "" {
		name = "<script>"
	}
	return fmt.Sprintf("<fn %s>", name)
}

func (f *Function) Type() string { return "function" }

// NativeFn is a Value wrapping a native (Go-implemented) function callable
// from Cedar code. Call receives the arguments already popped off the VM
// stack, in left-to-right order, and returns the result value. A native
// that returns ok=false signals a conversion or execution failure, which
// the VM surfaces as a runtime error (spec §4.4).
type NativeFn struct {
	FnName string
	Call   func(args []Value) (Value, bool)
}

func (n *NativeFn) String() string { return fmt.Sprintf("<native %s>", n.FnName) }
func (n *NativeFn) Type() string   { return "native" }
func (n *NativeFn) Name() string   { return n.FnName }
