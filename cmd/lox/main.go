// Command lox is the CLI front end for the lox compiler/VM: zero
// arguments starts a REPL, one argument runs a file, anything else is a
// usage error. Source I/O, REPL line-reading, and exit-code mapping all
// live here — spec.md §1 calls these external collaborators, so
// pkg/compiler never imports "os", and pkg/vm imports it only to default
// its output writer to os.Stdout.
package main

import (
	"fmt"
	"io"
	"os"

	heredoc "github.com/MakeNowJust/heredoc/v2"
	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	"github.com/kristofer/loxvm/pkg/chunk"
	"github.com/kristofer/loxvm/pkg/compiler"
	"github.com/kristofer/loxvm/pkg/debug"
	"github.com/kristofer/loxvm/pkg/vm"
)

// Exit codes, per spec.md §6.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

var trace bool

func main() {
	root := &cobra.Command{
		Use:           "lox [path]",
		Short:         "lox — a bytecode compiler and VM",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		// Bare invocation follows spec.md §6 exactly: zero args starts
		// the REPL, one arg runs that file, anything else is a usage
		// error — kept separate from the `run`/`disasm` subcommands
		// below, which exist for parity with kristofer-smog's explicit
		// subcommand style.
		RunE: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0:
				repl()
				return nil
			case 1:
				os.Exit(runFile(args[0]))
				return nil
			default:
				fmt.Fprint(os.Stderr, usage())
				os.Exit(exitUsage)
				return nil
			}
		},
	}
	root.PersistentFlags().BoolVar(&trace, "trace", false, "log each dispatched instruction and stack contents")

	root.AddCommand(runCmd(), disasmCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &easy.Formatter{
		TimestampFormat: "",
		LogFormat:       "%msg%\n",
	}
	if trace || os.Getenv("LOX_TRACE") != "" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <path>",
		Short: "compile and execute a .lox source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(runFile(args[0]))
			return nil
		},
	}
}

func disasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <path>",
		Short: "compile a .lox file and print its disassembly, without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(disasmFile(args[0]))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the lox version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("lox 0.1.0")
		},
	}
}

func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", path)
	}
	return string(data), nil
}

func runFile(path string) int {
	source, err := readSource(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	v := vm.New()
	v.Log = newLogger()
	defer v.Free()

	switch v.Interpret(source) {
	case vm.InterpretCompileError:
		return exitCompileError
	case vm.InterpretRuntimeError:
		return exitRuntimeError
	default:
		return exitOK
	}
}

func disasmFile(path string) int {
	source, err := readSource(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitIOError
	}

	c := chunk.New()
	v := vm.New()
	if err := compiler.Compile(source, c, v); err != nil {
		fmt.Println(err)
		return exitCompileError
	}
	fmt.Print(debug.Disassemble(c, path))
	return exitOK
}

// replLineLimit bounds a single REPL line, per spec.md §6's "≤1024
// bytes" REPL contract.
const replLineLimit = 1024

// repl prints a "> " prompt, reads one line at a time via readline (for
// history/editing — golox's dependency, replacing kristofer-smog's bare
// bufio.Scanner), and feeds each to a persistent VM. It exits cleanly on
// EOF, printing a trailing newline, per spec.md §6.
func repl() {
	rl, err := readline.NewEx(&readline.Config{Prompt: "> "})
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "starting REPL"))
		os.Exit(exitIOError)
	}
	defer rl.Close()

	v := vm.New()
	v.Log = newLogger()
	defer v.Free()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		if len(line) > replLineLimit {
			line = line[:replLineLimit]
		}
		v.Interpret(line)
	}
}

func usage() string {
	return heredoc.Doc(`
		Usage: lox [path]

		  lox                 start the REPL
		  lox <path>           run a .lox source file
		  lox run <path>       run a .lox source file
		  lox disasm <path>    print a file's bytecode disassembly
		  lox version          print the version
	`)
}
