package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mna/mainer"
	"github.com/peterh/liner"
)

const replPrompt = ">> "

// RunREPL runs an interactive read-eval-print loop on one persisted VM, so
// globals defined on one line are visible on the next (spec §6 "REPL
// behavior"). A per-line compile or runtime error is printed and the loop
// continues; it never causes the REPL itself to exit non-zero.
func RunREPL(ctx context.Context, stdio mainer.Stdio, debug bool) error {
	vm := newVM(stdio, debug)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input, err := line.Prompt(replPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
			return err
		}

		switch strings.TrimSpace(input) {
		case "":
			continue
		case "exit", "quit", "q":
			return nil
		}

		line.AppendHistory(input)
		if err := run(ctx, stdio, vm, input); err != nil {
			// per-line errors are reported but don't end the session (spec §6).
			continue
		}
	}
}
