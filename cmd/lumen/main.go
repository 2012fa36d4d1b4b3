// Command lumen is the CLI driver: run a script file once, or open a REPL
// when invoked with no arguments.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lumen/compiler"
	"lumen/internal/errs"
	"lumen/repl"
	"lumen/vm"
)

const (
	exitOK           = 0
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

var trace bool

func main() {
	root := &cobra.Command{
		Use:   "lumen [script]",
		Short: "lumen compiles and runs a small bytecode-VM scripting language",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return repl.Start(os.Stdin, os.Stdout, trace)
			}
			return runFile(args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.Flags().BoolVar(&trace, "trace", false, "log each dispatched instruction to stderr")

	if err := root.Execute(); err != nil {
		// A runtime error has already had its message and stack trace
		// written to stderr by the VM itself; anything else (a compile
		// error, an I/O failure) still needs to be surfaced here.
		if _, isRuntime := err.(*vm.RuntimeError); !isRuntime {
			fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		}
		os.Exit(exitCodeFor(err))
	}
}

type ioError struct{ error }

func runFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return ioError{errs.Wrapf(err, "reading %s", path)}
	}

	machine := vm.New()
	machine.SetTrace(trace)

	err = machine.Interpret(string(source))
	if err != nil {
		return err
	}
	return nil
}

func exitCodeFor(err error) int {
	switch err.(type) {
	case ioError:
		return exitIOError
	case *compiler.CompileError:
		return exitCompileError
	case *vm.RuntimeError:
		return exitRuntimeError
	default:
		return exitRuntimeError
	}
}
