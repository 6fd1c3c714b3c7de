// Package stdlib registers Cedar's built-in native functions: the small
// set of host capabilities a script can reach without a language feature
// for it (spec §4.4, supplementing the original implementation's
// libstd/io.rs with a clock and a type introspection helper).
package stdlib

import (
	"os"
	"time"

	"github.com/mna/cedar/lang/native"
	"github.com/mna/cedar/lang/value"
)

// Load returns the name-to-function table a VM installs into its globals
// before running a script, mirroring libstd's load() in the original
// implementation.
func Load() map[string]value.Value {
	globals := make(map[string]value.Value)
	Install(globals)
	return globals
}

// Install defines every stdlib native into globals, for a VM that keeps
// its own globals map rather than accepting a pre-built one from Load.
func Install(globals map[string]value.Value) {
	globals["read-file"] = native.Adapt1("read-file", readFile)
	globals["write-file"] = native.Adapt2("write-file", writeFile)
	globals["clock"] = native.Adapt0("clock", clock)
	globals["type-of"] = &value.NativeFn{
		FnName: "type-of",
		Call: func(args []value.Value) (value.Value, bool) {
			if len(args) != 1 {
				return nil, false
			}
			return value.String(args[0].Type()), true
		},
	}
}

func readFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

func writeFile(path, content string) struct{} {
	_ = os.WriteFile(path, []byte(content), 0o644)
	return struct{}{}
}

// clock returns the current Unix time in fractional seconds, the usual
// clox/lox-family "clock" native used for measuring elapsed time between
// two calls from script code, not a VM-relative timestamp.
func clock() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
