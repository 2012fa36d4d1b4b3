// Package repl implements an interactive line-at-a-time driver: each line
// is compiled and run against a persistent VM, so globals defined on one
// line are visible on the next; a runtime error is printed to the
// diagnostic stream without ending the session.
package repl

import (
	"io"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"lumen/vm"
)

const prompt = "lumen> "

// Start runs the REPL, reading lines from in and writing output to out
// until EOF or an interrupt.
func Start(in io.Reader, out io.Writer, trace bool) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           io.NopCloser(in),
		Stdout:          out,
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	machine := vm.New()
	machine.SetTrace(trace)
	machine.Stdout = out

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if len(line) == 0 {
			continue
		}

		if runErr := machine.Interpret(line); runErr != nil {
			// The VM has already written its own diagnostic; a compile
			// error has not, so surface it here in the same color CLI
			// errors use.
			if _, isRuntime := runErr.(*vm.RuntimeError); !isRuntime {
				color.New(color.FgRed).Fprintln(out, runErr.Error())
			}
		}
	}
}
