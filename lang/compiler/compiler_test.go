package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/cedar/lang/compiler"
	"github.com/mna/cedar/lang/value"
)

func TestCompileSimpleScript(t *testing.T) {
	fn, err := compiler.Compile(`print 1 + 2;`)
	require.NoError(t, err)
	require.NotNil(t, fn)

	chunk, ok := fn.Chunk.(*compiler.Chunk)
	require.True(t, ok)
	require.Equal(t, "", chunk.Name())
	require.Equal(t, 0, chunk.Arity())
	require.Equal(t, len(chunk.Code), len(chunk.Lines))
}

func TestCompileFunctionArity(t *testing.T) {
	fn, err := compiler.Compile(`
		fn add(a, b, c) { return a + b + c; }
	`)
	require.NoError(t, err)
	chunk := fn.Chunk.(*compiler.Chunk)
	// the function itself is the last emitted constant of the script chunk
	require.NotEmpty(t, chunk.Constants)
	add, ok := chunk.Constants[len(chunk.Constants)-1].(*value.Function)
	require.True(t, ok)
	require.Equal(t, 3, add.Chunk.Arity())
}

func TestCompileErrorReturnsFailed(t *testing.T) {
	_, err := compiler.Compile(`let ;`)
	require.Error(t, err)

	var failed *compiler.Failed
	require.ErrorAs(t, err, &failed)
	require.NotEmpty(t, failed.Errs)
}

func TestCompileErrorMessageFormat(t *testing.T) {
	_, err := compiler.Compile(`1 +;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Error at")
}

func TestCompileMultipleErrorsAreAllReported(t *testing.T) {
	_, err := compiler.Compile(`
		let ;
		let ;
	`)
	require.Error(t, err)

	var failed *compiler.Failed
	require.ErrorAs(t, err, &failed)
	require.GreaterOrEqual(t, len(failed.Errs), 2)
}

func TestReturnOutsideFunctionIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`return 1;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "can't return from top-level code")
}

func TestTooManyParametersIsCompileError(t *testing.T) {
	var b []byte
	b = append(b, []byte("fn f(")...)
	for i := 0; i < 256; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, byte('a'+(i%26)))
		b = append(b, byte('0'+(i/26)%10))
	}
	b = append(b, []byte(") { return 0; }")...)

	_, err := compiler.Compile(string(b))
	require.Error(t, err)
	require.Contains(t, err.Error(), "more than 255 parameters")
}

func TestVariableShadowingInSameScopeIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`
		{
			let x = 1;
			let x = 2;
		}
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already declared")
}

func TestReadingLocalInOwnInitializerIsCompileError(t *testing.T) {
	_, err := compiler.Compile(`
		{
			let x = x;
		}
	`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "its own initializer")
}

func TestDisassembleIncludesOpcodeNames(t *testing.T) {
	fn, err := compiler.Compile(`print 1 + 2;`)
	require.NoError(t, err)
	chunk := fn.Chunk.(*compiler.Chunk)
	out := chunk.Disassemble("test")
	require.Contains(t, out, "constant")
	require.Contains(t, out, "print")
	require.Contains(t, out, "return")
}
