// Package maincmd is the CLI driver: flag parsing, run-a-file vs. REPL
// dispatch, and exit-code mapping (spec §6 "Out of scope... specified
// only at their interface"). This is the one layer of the module allowed
// to touch os.Args, os.Stdin/Stdout/Stderr, and the process exit code.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "cedarc"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [--debug] [<script>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [--debug] [<script>]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and virtual machine for the Cedar scripting language.

With no <script>, %[1]s starts an interactive REPL (prompt '>> '); typing
exit, quit, or q, or sending EOF/Ctrl-C, terminates it. With one <script>
argument, %[1]s compiles and runs that file. More than one positional
argument is a usage error.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --debug                   Trace VM execution and disassemble every
                                 compiled chunk to stderr.
`, binName)
)

// Cmd holds the parsed command line and build stamp, in mainer's
// flag-tag-driven Parser convention.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Debug   bool `flag:"debug"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return errors.New("at most one script argument is allowed")
	}
	return nil
}

// Main is the process entry point's sole responsibility: parse flags,
// dispatch to RunFile or RunREPL, and translate the result into a
// mainer.ExitCode (spec §6 "Exit codes").
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(64)
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	var err error
	if len(c.args) == 1 {
		err = RunFile(ctx, stdio, c.args[0], c.Debug)
	} else {
		err = RunREPL(ctx, stdio, c.Debug)
	}
	return exitCodeFor(err)
}

// exitCodeFor maps a run error to one of the process exit codes the
// driver contract promises (spec §6): 0 success, 64 usage/compile error,
// 65 internal compiler error, 70 runtime error.
func exitCodeFor(err error) mainer.ExitCode {
	if err == nil {
		return mainer.Success
	}
	switch {
	case asICE(err):
		return mainer.ExitCode(65)
	case asCompileFailed(err):
		return mainer.ExitCode(64)
	default:
		return mainer.ExitCode(70)
	}
}
