package maincmd_test

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/mna/cedar/internal/filetest"
	"github.com/mna/cedar/internal/maincmd"
)

var updateGolden = flag.Bool("test.update-e2e-tests", false, "update the golden stdout fixtures for the e2e cedar-script tests")

// TestE2EScripts runs every .cdr fixture under testdata/scripts and diffs
// its stdout against the matching golden file in testdata/want, the same
// script-in/stdout-out contract the original implementation's tests/e2e.rs
// exercised.
func TestE2EScripts(t *testing.T) {
	const scriptsDir = "testdata/scripts"
	const wantDir = "testdata/want"

	fis := filetest.SourceFiles(t, scriptsDir, ".cdr")
	require.NotEmpty(t, fis)

	for _, fi := range fis {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			// native.cdr writes a file as a side effect; run it from a scratch
			// directory so the fixture doesn't leave stray output in the repo.
			dir := t.TempDir()
			cwd, err := os.Getwd()
			require.NoError(t, err)
			scriptPath := filepath.Join(cwd, scriptsDir, fi.Name())

			require.NoError(t, os.Chdir(dir))
			defer func() { require.NoError(t, os.Chdir(cwd)) }()

			var out bytes.Buffer
			stdio := mainer.Stdio{Stdout: &out, Stderr: &out}
			err = maincmd.RunFile(context.Background(), stdio, scriptPath, false)
			require.NoError(t, err)

			filetest.DiffOutput(t, fi, out.String(), wantDir, updateGolden)
		})
	}
}

func TestRunFileCompileErrorExitsWithUsageCode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cdr")
	require.NoError(t, os.WriteFile(path, []byte("let ;"), 0o644))

	var out bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &out}
	err := maincmd.RunFile(context.Background(), stdio, path, false)
	require.Error(t, err)

	c := &maincmd.Cmd{}
	require.Equal(t, mainer.ExitCode(64), c.Main([]string{"cedarc", path}, stdio))
}

func TestRunFileMissingScript(t *testing.T) {
	var out bytes.Buffer
	stdio := mainer.Stdio{Stdout: &out, Stderr: &out}
	err := maincmd.RunFile(context.Background(), stdio, filepath.Join(t.TempDir(), "missing.cdr"), false)
	require.Error(t, err)
}

func TestCmdMainPrintsUsageForTooManyArgs(t *testing.T) {
	var out bytes.Buffer
	c := &maincmd.Cmd{}
	code := c.Main([]string{"cedarc", "a.cdr", "b.cdr"}, mainer.Stdio{Stdout: &out, Stderr: &out})
	require.Equal(t, mainer.ExitCode(64), code)
	require.Contains(t, out.String(), "usage:")
}

func TestCmdMainVersion(t *testing.T) {
	var out bytes.Buffer
	c := &maincmd.Cmd{BuildVersion: "1.0.0", BuildDate: "2026-01-01"}
	code := c.Main([]string{"cedarc", "--version"}, mainer.Stdio{Stdout: &out, Stderr: &out})
	require.Equal(t, mainer.Success, code)
	require.Contains(t, out.String(), "1.0.0")
}
