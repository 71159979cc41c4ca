// Package repl implements line editing and history persistence for the
// interactive session, built on github.com/chzyer/readline.
package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jackc/deet/internal/command"
)

// ErrQuit is returned from Next when the user signals end-of-session
// via EOF (Ctrl-D), treated the same as the quit command.
var ErrQuit = errors.New("repl: quit")

// REPL reads command lines from the user, persisting history to
// historyPath as it goes.
type REPL struct {
	instance *readline.Instance
}

// New builds a REPL prompting with prompt and loading/saving history at
// historyPath. An empty historyPath disables history persistence.
func New(prompt, historyPath string) (*REPL, error) {
	cfg := &readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyPath,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	}

	instance, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return &REPL{instance: instance}, nil
}

// Close releases the underlying terminal state.
func (r *REPL) Close() error {
	return r.instance.Close()
}

// Next blocks for one line of input and parses it into a Command. It
// loops past blank lines and Ctrl-C: SIGINT is meant for the foreground
// tracee, not the debugger, so readline's own interrupt signaling here
// just re-prompts with a hint to use "quit". Ctrl-D (EOF) returns
// ErrQuit. An unrecognized command word returns ok=false so the caller
// can print "Unrecognized command." and re-prompt.
func (r *REPL) Next() (command.Command, bool, error) {
	for {
		line, err := r.instance.Readline()
		switch {
		case err == readline.ErrInterrupt:
			fmt.Println(`Type "quit" to exit`)
			continue
		case err == io.EOF:
			return command.Command{}, false, ErrQuit
		case err != nil:
			return command.Command{}, false, err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, ok := command.Parse(line)
		return cmd, ok, nil
	}
}
