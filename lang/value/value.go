// Package value defines the tagged variant manipulated by the compiler and
// the virtual machine: numbers, booleans, null, strings, heap references,
// and the two kinds of callables (Cedar functions and native functions).
package value

import (
	"fmt"
	"strconv"
)

// Value is the interface implemented by every runtime value. Unlike the
// teacher's extensible Value (which lets arbitrary types opt into
// arithmetic, ordering, iteration, etc. via marker interfaces), Cedar's
// value set is closed: the VM switches on the concrete type directly (spec
// §4.3), so Value only carries the presentation methods every variant
// needs.
type Value interface {
	// String renders the value the way `print` and string concatenation do.
	String() string
	// Type names the variant, for error messages and the `type-of` native.
	Type() string
}

// Number is the Value variant wrapping an IEEE-754 double.
type Number float64

func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (Number) Type() string     { return "number" }

// Bool is the Value variant wrapping a boolean.
type Bool bool

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }
func (Bool) Type() string     { return "bool" }

// Null is the singleton absent-value variant.
type Null struct{}

func (Null) String() string { return "null" }
func (Null) Type() string   { return "null" }

// Nil is the single instance of Null; values compare equal by Go equality
// since Null carries no state.
var Nil = Null{}

// Byte is the one-byte operand-index variant. The compiler writes operand
// indices straight into the code stream, so neither the compiler nor the VM
// creates a Byte value.
type Byte uint8

func (b Byte) String() string { return strconv.Itoa(int(b)) }
func (Byte) Type() string     { return "byte" }

// String is the Value variant for interned or owned text. Cedar strings are
// immutable, so owned-vs-borrowed is not distinguished at the value level
// the way the original implementation's Cow<str> did; Go's string already
// behaves like an immutable, cheaply-shared borrow.
type String string

func (s String) String() string { return string(s) }
func (String) Type() string     { return "string" }

// Heap names an opaque cell in the VM's heap area. Concatenation results
// are allocated there (spec §4.3.5) so the garbage collector can reclaim
// them once unreachable.
type Heap int

func (h Heap) String() string { return fmt.Sprintf("heap %d", int(h)) }
func (Heap) Type() string     { return "heap" }

// Equal reports whether two values of the same variant are structurally
// equal, per spec §4.3.4. It does not implement the full `==`/ordering
// semantics (those involve heap dereferencing and live in the machine
// package, which owns the heap); it is a building block for them.
func Equal(a, b Value) (bool, bool) {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return float64(x) == float64(y), ok
	case Bool:
		y, ok := b.(Bool)
		return x == y, ok
	case Null:
		_, ok := b.(Null)
		return ok, ok
	case String:
		y, ok := b.(String)
		return x == y, ok
	case Byte:
		y, ok := b.(Byte)
		return x == y, ok
	case Heap:
		y, ok := b.(Heap)
		return x == y, ok
	case *Function:
		y, ok := b.(*Function)
		return x == y, ok
	case *NativeFn:
		y, ok := b.(*NativeFn)
		return x == y, ok
	}
	return false, false
}
