// Package debugger implements the Debugger Session: the stateful driver
// that orchestrates the command loop, holds the pending breakpoint list
// and the optional live inferior, and translates user intents into
// inferior-controller calls.
package debugger

import (
	"log"
	"strconv"
	"strings"

	"github.com/jackc/deet/internal/inferior"
	"github.com/jackc/deet/internal/ui"
)

// FunctionHandle is the opaque handle FindFunction returns, to be
// passed on to a follow-up AddrOfFunction lookup.
type FunctionHandle struct {
	Name  string
	Entry uint64
}

// Oracle is the debug-info interface the Session consumes.
// Implemented for real by dwarfdata.Oracle via WrapOracle; faked in
// tests that don't want to load an ELF binary.
type Oracle interface {
	FunctionAt(pc uint64) (string, bool)
	LineAt(pc uint64) (file string, line int, ok bool)
	AddrOfLine(unit *string, line int) (uint64, bool)
	AddrOfFunction(unit *string, name string) (uint64, bool)
	FindFunction(name string) (*FunctionHandle, bool)
}

// InferiorController is the subset of *inferior.Inferior's method set
// the Session drives. *inferior.Inferior satisfies it directly.
type InferiorController interface {
	Go() (inferior.Status, error)
	Kill() (inferior.Status, error)
	InstallBreakpoint(addr uint64) error
	Backtrace(sym inferior.Symbolicator) ([]inferior.Frame, error)
}

// Spawner starts a new inferior. The default wraps inferior.Spawn;
// tests substitute a fake to avoid forking real processes.
type Spawner func(target string, args []string, breakpoints []uint64) (InferiorController, error)

func defaultSpawner(target string, args []string, breakpoints []uint64) (InferiorController, error) {
	inf, err := inferior.Spawn(target, args, breakpoints)
	if err != nil {
		return nil, err
	}
	return inf, nil
}

// Session holds the pending breakpoint list, the optional current
// inferior, and the debug-info oracle.
type Session struct {
	target      string
	breakpoints []uint64
	current     InferiorController
	oracle      Oracle
	out         *ui.Printer
	spawn       Spawner
}

// NewSession builds a Session for target, reporting output to out and
// resolving breakpoint targets through oracle.
func NewSession(target string, oracle Oracle, out *ui.Printer) *Session {
	return &Session{
		target: target,
		oracle: oracle,
		out:    out,
		spawn:  defaultSpawner,
	}
}

// WithSpawner overrides the Session's process-spawning function; used by
// tests to avoid forking real processes.
func (s *Session) WithSpawner(spawn Spawner) *Session {
	s.spawn = spawn
	return s
}

// Breakpoints returns a copy of the pending breakpoint address list, in
// the order their indices were assigned.
func (s *Session) Breakpoints() []uint64 {
	out := make([]uint64, len(s.breakpoints))
	copy(out, s.breakpoints)
	return out
}

// Running reports whether the Session currently owns a live inferior.
func (s *Session) Running() bool {
	return s.current != nil
}

// Run spawns a new inferior with the current breakpoint list, killing
// any prior one first, and resumes it.
func (s *Session) Run(args []string) {
	if s.current != nil {
		if _, err := s.current.Kill(); err != nil {
			log.Printf("killing previous inferior: %v", err)
		}
		s.current = nil
	}

	inf, err := s.spawn(s.target, args, s.breakpoints)
	if err != nil {
		s.out.SpawnFailed()
		return
	}

	s.current = inf
	s.resumeAndReport()
}

// Continue resumes the live inferior, or prints the refusal message if
// none exists.
func (s *Session) Continue() {
	if s.current == nil {
		s.out.NotRunning()
		return
	}
	s.resumeAndReport()
}

func (s *Session) resumeAndReport() {
	status, err := s.current.Go()
	if err != nil {
		s.out.ContinueFailed()
		return
	}
	s.reportStatus(status)
}

func (s *Session) reportStatus(status inferior.Status) {
	switch status.Kind {
	case inferior.Exited:
		s.out.Exited(status.ExitCode)
		s.current = nil
	case inferior.Stopped:
		var line string
		if s.oracle != nil {
			if file, ln, ok := s.oracle.LineAt(status.PC); ok {
				line = file + ":" + strconv.Itoa(ln)
			}
		}
		s.out.Stopped(status.Signal, line)
	case inferior.Signaled:
		s.current = nil
	}
}

// Backtrace walks and prints the call stack, or prints the refusal
// message if no inferior is live. Walk errors are non-fatal and
// suppressed.
func (s *Session) Backtrace() {
	if s.current == nil {
		s.out.NotRunning()
		return
	}

	frames, err := s.current.Backtrace(s.oracle)
	if err != nil {
		return
	}

	for _, f := range frames {
		s.out.BacktraceFrame(f.String())
	}
}

// Breakpoint parses target against a three-way grammar (*address,
// line number, function name), appends a resolved address to the
// pending list, and installs it in the live inferior if one exists.
func (s *Session) Breakpoint(target string) {
	if strings.HasPrefix(target, "*") {
		addr, err := parseHexAddress(target[1:])
		if err != nil {
			s.out.InvalidAddress()
			return
		}
		s.record(addr)
		return
	}

	if line, err := strconv.Atoi(target); err == nil {
		if addr, ok := s.oracle.AddrOfLine(nil, line); ok {
			s.record(addr)
		}
		// A syntactically valid line number that resolves to no
		// address is silently dropped.
		return
	}

	if handle, ok := s.oracle.FindFunction(target); ok {
		if addr, ok := s.oracle.AddrOfFunction(nil, handle.Name); ok {
			s.record(addr)
		}
		return
	}

	s.out.InvalidBreakpointTarget()
}

func (s *Session) record(addr uint64) {
	index := len(s.breakpoints)
	s.breakpoints = append(s.breakpoints, addr)
	s.out.BreakpointSet(index, addr)

	if s.current != nil {
		s.current.InstallBreakpoint(addr)
	}
}

// Quit kills any live inferior. The REPL loop terminates the session
// after calling this.
func (s *Session) Quit() {
	if s.current != nil {
		if _, err := s.current.Kill(); err != nil {
			log.Printf("killing inferior: %v", err)
		}
		s.current = nil
	}
}

func parseHexAddress(s string) (uint64, error) {
	rest := s
	if len(s) >= 2 && strings.EqualFold(s[:2], "0x") {
		rest = s[2:]
	}
	return strconv.ParseUint(rest, 16, 64)
}
