// Command deet is an interactive source-level debugger for native
// ELF/x86-64 executables on Linux, built on ptrace.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jackc/deet/internal/command"
	"github.com/jackc/deet/internal/config"
	"github.com/jackc/deet/internal/debugger"
	"github.com/jackc/deet/internal/dwarfdata"
	"github.com/jackc/deet/internal/repl"
	"github.com/jackc/deet/internal/ui"
)

func main() {
	// Every ptrace call against a tracee must come from the OS thread
	// that attached it.
	runtime.LockOSThread()

	// Ctrl-C belongs to the foreground tracee, not to this process.
	signal.Ignore(syscall.SIGINT)

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the cobra root command. Flag parsing is
// disabled: the third argv token is a bare positional word compared
// literally against "-i", not a registered flag, so cobra is used only
// for argument-count validation and usage text, not option parsing.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "deet <target program> [-i]",
		Short:         "An interactive source-level debugger for native executables",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 2 {
				return fmt.Errorf("Usage: %s <target program> [-i]", os.Args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dumpInfo := false
			if len(args) == 2 {
				if args[1] == "-i" {
					dumpInfo = true
				} else {
					fmt.Fprintf(os.Stderr, "Unknown option %s\n", args[1])
				}
			}
			return run(args[0], dumpInfo)
		},
	}
	cmd.DisableFlagParsing = true
	return cmd
}

// run loads the target's debug information, opens the REPL, and drives
// commands into a debugger.Session until the user quits.
func run(target string, dumpInfo bool) error {
	cfg := config.Load()
	if cfg.NoColor {
		ui.SetColorEnabled(false)
	}

	oracle, err := dwarfdata.Load(target)
	if err != nil {
		return fmt.Errorf("could not load debug info for %s: %w", target, err)
	}
	defer oracle.Close()

	if dumpInfo || cfg.DumpInfo {
		oracle.PrintSummary(os.Stdout)
	}

	printer := ui.NewPrinter(os.Stdout)
	sess := debugger.NewSession(target, debugger.WrapOracle(oracle), printer)

	line, err := repl.New(ui.Prompt(), cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("could not start line editor: %w", err)
	}
	defer line.Close()

	for {
		cmd, ok, err := line.Next()
		if err != nil {
			if errors.Is(err, repl.ErrQuit) {
				sess.Quit()
				return nil
			}
			return err
		}
		if !ok {
			printer.UnrecognizedCommand()
			continue
		}

		switch cmd.Kind {
		case command.Run:
			sess.Run(cmd.Args)
		case command.Continue:
			sess.Continue()
		case command.Backtrace:
			sess.Backtrace()
		case command.Break:
			if len(cmd.Args) == 1 {
				sess.Breakpoint(cmd.Args[0])
			} else {
				printer.InvalidBreakpointTarget()
			}
		case command.Quit:
			sess.Quit()
			return nil
		}
	}
}
