package stdlib_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/cedar/lang/stdlib"
	"github.com/mna/cedar/lang/value"
)

func TestReadWriteFileRoundTrip(t *testing.T) {
	globals := stdlib.Load()
	write, ok := globals["write-file"].(*value.NativeFn)
	require.True(t, ok)
	read, ok := globals["read-file"].(*value.NativeFn)
	require.True(t, ok)

	path := filepath.Join(t.TempDir(), "out.txt")

	_, ok = write.Call([]value.Value{value.String(path), value.String("hello cedar")})
	require.True(t, ok)

	got, ok := read.Call([]value.Value{value.String(path)})
	require.True(t, ok)
	require.Equal(t, value.String("hello cedar"), got)
}

func TestReadFileMissingReturnsEmptyString(t *testing.T) {
	globals := stdlib.Load()
	read := globals["read-file"].(*value.NativeFn)

	got, ok := read.Call([]value.Value{value.String(filepath.Join(t.TempDir(), "missing.txt"))})
	require.True(t, ok)
	require.Equal(t, value.String(""), got)
}

func TestClockIsMonotonicallyIncreasing(t *testing.T) {
	globals := stdlib.Load()
	clock := globals["clock"].(*value.NativeFn)

	first, ok := clock.Call(nil)
	require.True(t, ok)
	second, ok := clock.Call(nil)
	require.True(t, ok)

	require.GreaterOrEqual(t, float64(second.(value.Number)), float64(first.(value.Number)))
}

func TestTypeOfReportsRuntimeVariant(t *testing.T) {
	globals := stdlib.Load()
	typeOf := globals["type-of"].(*value.NativeFn)

	got, ok := typeOf.Call([]value.Value{value.Number(1)})
	require.True(t, ok)
	require.Equal(t, value.String("number"), got)
}

func TestInstallPopulatesExistingMap(t *testing.T) {
	globals := make(map[string]value.Value)
	stdlib.Install(globals)
	require.Contains(t, globals, "read-file")
	require.Contains(t, globals, "write-file")
	require.Contains(t, globals, "clock")
	require.Contains(t, globals, "type-of")
}
