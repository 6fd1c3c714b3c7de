package native_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/cedar/lang/native"
	"github.com/mna/cedar/lang/value"
)

func TestAdapt0(t *testing.T) {
	fn := native.Adapt0("answer", func() float64 { return 42 })
	got, ok := fn.Call(nil)
	require.True(t, ok)
	require.Equal(t, value.Number(42), got)

	_, ok = fn.Call([]value.Value{value.Number(1)})
	require.False(t, ok)
}

func TestAdapt1(t *testing.T) {
	fn := native.Adapt1("double", func(n float64) float64 { return n * 2 })
	got, ok := fn.Call([]value.Value{value.Number(21)})
	require.True(t, ok)
	require.Equal(t, value.Number(42), got)

	_, ok = fn.Call([]value.Value{value.String("not a number")})
	require.False(t, ok)
}

func TestAdapt2(t *testing.T) {
	fn := native.Adapt2("concat", func(a, b string) string { return a + b })
	got, ok := fn.Call([]value.Value{value.String("foo"), value.String("bar")})
	require.True(t, ok)
	require.Equal(t, value.String("foobar"), got)
}

func TestAdapt2WrongArity(t *testing.T) {
	fn := native.Adapt2("concat", func(a, b string) string { return a + b })
	_, ok := fn.Call([]value.Value{value.String("only one")})
	require.False(t, ok)
}

func TestAdapt3(t *testing.T) {
	fn := native.Adapt3("clamp", func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	})
	got, ok := fn.Call([]value.Value{value.Number(15), value.Number(0), value.Number(10)})
	require.True(t, ok)
	require.Equal(t, value.Number(10), got)
}

func TestAdaptWithUnitReturn(t *testing.T) {
	called := false
	fn := native.Adapt1("sideEffect", func(s string) struct{} {
		called = true
		return struct{}{}
	})
	got, ok := fn.Call([]value.Value{value.String("x")})
	require.True(t, ok)
	require.True(t, called)
	require.Equal(t, value.Nil, got)
}
