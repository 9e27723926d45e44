// Package maincmd implements the clox command-line driver described in
// spec.md §6: run a source file, or start an interactive REPL when no path
// is given, following the teacher's own mainer.Cmd/mainer.Stdio convention
// for argument parsing and process lifecycle.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arborvm/clox/lang/compiler"
	"github.com/arborvm/clox/lang/intern"
	"github.com/arborvm/clox/lang/vm"
	"github.com/caarlos0/env/v6"
	"github.com/chzyer/readline"
	"github.com/mna/mainer"
	"github.com/sirupsen/logrus"
)

const binName = "clox"

// usage is printed verbatim on CLI misuse, per spec.md §6: exactly
// "Usage: clox [path]" on stderr, exit code 64.
var usage = fmt.Sprintf("Usage: %s [path]\n", binName)

const (
	exitUsage   mainer.ExitCode = 64
	exitCompile mainer.ExitCode = 65
	exitRuntime mainer.ExitCode = 70
	exitIOError mainer.ExitCode = 74
)

// config holds the process-level settings sourced from the environment,
// parsed with caarlos0/env the way the teacher's own config layer would.
type config struct {
	Trace bool `env:"CLOX_TRACE" envDefault:"false"`
}

// Cmd is the mainer.Cmd implementation for the clox binary: at most one
// positional argument, the path to a script to run.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	args []string
}

func (c *Cmd) SetArgs(args []string)         { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool)    {}

func (c *Cmd) Validate() error {
	if len(c.args) > 1 {
		return errors.New("too many arguments")
	}
	return nil
}

// Main dispatches to the REPL or to file execution, per spec.md §6, and
// maps the outcome to the process exit codes the spec requires.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprint(stdio.Stderr, usage)
		return exitUsage
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid environment: %s\n", err)
		return exitUsage
	}

	logger := logrus.New()
	logger.SetOutput(stdio.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if cfg.Trace {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 1 {
		return runFile(ctx, stdio, logger, cfg.Trace, c.args[0])
	}
	return runREPL(ctx, stdio, logger, cfg.Trace)
}

// runFile implements spec.md §6's "clox <path>" form: compile the whole
// file, then run it if compilation produced no errors.
func runFile(_ context.Context, stdio mainer.Stdio, logger *logrus.Logger, trace bool, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return exitIOError
	}

	table := intern.New(64)
	functions, err := compiler.Compile(string(src), table)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitCompile
	}

	machine := vm.New(table, vm.WithStdout(stdio.Stdout), vm.WithTrace(trace), vm.WithLogger(logger))
	if err := machine.Interpret(functions); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitRuntime
	}
	return mainer.Success
}

// runREPL implements spec.md §6's interactive mode, matching
// original_source/src/main.rs's repl(): a single buffer is allocated once
// outside the loop and every line read is appended to it, never cleared, and
// the whole accumulated buffer is recompiled and reinterpreted from scratch
// on each iteration — so earlier lines are re-executed again each time a new
// line is typed, exactly as the reference implementation does.
func runREPL(ctx context.Context, stdio mainer.Stdio, logger *logrus.Logger, trace bool) mainer.ExitCode {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		Stdin:  io.NopCloser(stdio.Stdin),
		Stdout: stdio.Stdout,
		Stderr: stdio.Stderr,
	})
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return exitIOError
	}
	defer rl.Close()

	table := intern.New(64)
	machine := vm.New(table, vm.WithStdout(stdio.Stdout), vm.WithTrace(trace), vm.WithLogger(logger))

	var buffer strings.Builder

	for {
		select {
		case <-ctx.Done():
			return mainer.Success
		default:
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return mainer.Success
		case err != nil:
			fmt.Fprintln(stdio.Stderr, err)
			return mainer.Failure
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		buffer.WriteString(line)
		buffer.WriteByte('\n')

		functions, err := compiler.Compile(buffer.String(), table)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}
		if err := machine.Interpret(functions); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
		}
	}
}
