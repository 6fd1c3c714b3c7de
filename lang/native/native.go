// Package native adapts ordinary Go functions into value.NativeFn bridges
// that the VM's Call opcode can invoke (spec §4.4 "Native function
// bridge"). Each Adapt* generic narrows a Go function's typed signature
// down to the VM's single Call(args []Value) (Value, bool) convention,
// generating the argument unmarshalling and result marshalling once per
// arity instead of once per native function.
package native

import (
	"golang.org/x/exp/constraints"

	"github.com/mna/cedar/lang/value"
)

// Convertible is the closed set of Go types a native function's parameters
// and return value may use. struct{} stands in for Cedar's Null, letting a
// native function declare a side-effecting, value-less return (e.g.
// write-file) the same way the bridge's Rust ancestor used the unit type.
type Convertible interface {
	~float64 | ~bool | ~string | struct{}
}

// Number is a convenience constraint for adapters that only need to work
// across the one Convertible numeric kind Cedar has today.
type Number interface {
	constraints.Float
}

func toValue[T Convertible](v T) value.Value {
	switch x := any(v).(type) {
	case float64:
		return value.Number(x)
	case bool:
		return value.Bool(x)
	case string:
		return value.String(x)
	case struct{}:
		return value.Nil
	default:
		return value.Nil
	}
}

func fromValue[T Convertible](v value.Value) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case float64:
		n, ok := v.(value.Number)
		if !ok {
			return zero, false
		}
		return any(float64(n)).(T), true
	case bool:
		b, ok := v.(value.Bool)
		if !ok {
			return zero, false
		}
		return any(bool(b)).(T), true
	case string:
		s, ok := v.(value.String)
		if !ok {
			return zero, false
		}
		return any(string(s)).(T), true
	case struct{}:
		if _, ok := v.(value.Null); ok {
			return zero, true
		}
		return zero, false
	}
	return zero, false
}

// Adapt0 wraps a zero-argument native function, e.g. a clock reading.
func Adapt0[R Convertible](name string, fn func() R) *value.NativeFn {
	return &value.NativeFn{FnName: name, Call: func(args []value.Value) (value.Value, bool) {
		if len(args) != 0 {
			return nil, false
		}
		return toValue(fn()), true
	}}
}

// Adapt1 wraps a one-argument native function, e.g. read-file or type-of.
func Adapt1[A, R Convertible](name string, fn func(A) R) *value.NativeFn {
	return &value.NativeFn{FnName: name, Call: func(args []value.Value) (value.Value, bool) {
		if len(args) != 1 {
			return nil, false
		}
		a, ok := fromValue[A](args[0])
		if !ok {
			return nil, false
		}
		return toValue(fn(a)), true
	}}
}

// Adapt2 wraps a two-argument native function, e.g. write-file.
func Adapt2[A, B, R Convertible](name string, fn func(A, B) R) *value.NativeFn {
	return &value.NativeFn{FnName: name, Call: func(args []value.Value) (value.Value, bool) {
		if len(args) != 2 {
			return nil, false
		}
		a, ok := fromValue[A](args[0])
		if !ok {
			return nil, false
		}
		b, ok := fromValue[B](args[1])
		if !ok {
			return nil, false
		}
		return toValue(fn(a, b)), true
	}}
}

// Adapt3 wraps a three-argument native function. No standard library
// function currently needs it, but the arity ladder is kept uniform with
// the Rust bridge's macro-generated impls (native.rs), which went up to
// seven parameters.
func Adapt3[A, B, C, R Convertible](name string, fn func(A, B, C) R) *value.NativeFn {
	return &value.NativeFn{FnName: name, Call: func(args []value.Value) (value.Value, bool) {
		if len(args) != 3 {
			return nil, false
		}
		a, ok := fromValue[A](args[0])
		if !ok {
			return nil, false
		}
		b, ok := fromValue[B](args[1])
		if !ok {
			return nil, false
		}
		c, ok := fromValue[C](args[2])
		if !ok {
			return nil, false
		}
		return toValue(fn(a, b, c)), true
	}}
}
