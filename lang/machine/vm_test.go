package machine_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/cedar/lang/compiler"
	"github.com/mna/cedar/lang/machine"
	"github.com/mna/cedar/lang/stdlib"
)

// runScript compiles and interprets src on a fresh VM, returning what was
// printed to stdout.
func runScript(t *testing.T, src string) (string, error) {
	t.Helper()

	fn, err := compiler.Compile(src)
	require.NoError(t, err)

	var out bytes.Buffer
	vm := machine.New()
	vm.Stdout = &out
	vm.Stderr = &out
	stdlib.Install(vm.Globals())

	err = vm.Interpret(context.Background(), fn)
	return out.String(), err
}

func TestArithmeticPrecedence(t *testing.T) {
	out, err := runScript(t, "print 1 + 2 * 3;")
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := runScript(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestStringConcatenationWithNumber(t *testing.T) {
	out, err := runScript(t, `print "count: " + 3;`)
	require.NoError(t, err)
	require.Equal(t, "count: 3\n", out)
}

func TestWhileLoop(t *testing.T) {
	out, err := runScript(t, `
		let i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
	`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestForLoop(t *testing.T) {
	out, err := runScript(t, `
		for (let i = 0; i < 3; i = i + 1) {
			print i;
		}
	`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestRecursiveFunction(t *testing.T) {
	out, err := runScript(t, `
		fn fact(n) {
			if (n <= 1) { return n; }
			return n * fact(n - 1);
		}
		print fact(5);
	`)
	require.NoError(t, err)
	require.Equal(t, "120\n", out)
}

func TestShortCircuitAnd(t *testing.T) {
	out, err := runScript(t, `
		fn sideEffect() { print "called"; return true; }
		print false and sideEffect();
	`)
	require.NoError(t, err)
	require.Equal(t, "false\n", out)
}

func TestShortCircuitOr(t *testing.T) {
	out, err := runScript(t, `
		fn sideEffect() { print "called"; return true; }
		print true or sideEffect();
	`)
	require.NoError(t, err)
	require.Equal(t, "true\n", out)
}

func TestUndefinedVariableIsRuntimeError(t *testing.T) {
	out, err := runScript(t, "print undefined_name;")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'undefined_name'")
	require.Empty(t, out)
}

func TestMixedTypeOrderingIsRuntimeError(t *testing.T) {
	_, err := runScript(t, `print 1 < "a";`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot compare")
}

func TestLocalScoping(t *testing.T) {
	out, err := runScript(t, `
		let x = "outer";
		{
			let x = "inner";
			print x;
		}
		print x;
	`)
	require.NoError(t, err)
	require.Equal(t, "inner\nouter\n", out)
}

func TestFunctionArgumentPadding(t *testing.T) {
	out, err := runScript(t, `
		fn greet(name) {
			print name;
		}
		greet();
	`)
	require.NoError(t, err)
	require.Equal(t, "null\n", out)
}

func TestCallWithTooManyArgumentsIsRuntimeError(t *testing.T) {
	_, err := runScript(t, `
		fn one(a) { return a; }
		one(1, 2);
	`)
	require.Error(t, err)
}

func TestTypeOfNative(t *testing.T) {
	out, err := runScript(t, `print type-of(1);`)
	require.NoError(t, err)
	require.Equal(t, "number\n", out)
}

func TestGlobalPersistsAcrossInterpretCalls(t *testing.T) {
	var out bytes.Buffer
	vm := machine.New()
	vm.Stdout = &out

	fn1, err := compiler.Compile("let counter = 1;")
	require.NoError(t, err)
	require.NoError(t, vm.Interpret(context.Background(), fn1))

	fn2, err := compiler.Compile("print counter;")
	require.NoError(t, err)
	require.NoError(t, vm.Interpret(context.Background(), fn2))

	require.Equal(t, "1\n", out.String())
}

func TestDebugTracingDoesNotChangeOutput(t *testing.T) {
	var out, traceOut bytes.Buffer
	vm := machine.New()
	vm.Stdout = &out
	vm.Stderr = &traceOut
	vm.Debug = true

	fn, err := compiler.Compile("print 1 + 1;")
	require.NoError(t, err)
	require.NoError(t, vm.Interpret(context.Background(), fn))

	require.Equal(t, "2\n", out.String())
	require.NotEmpty(t, traceOut.String())
}
