package debugger_test

import (
	"bytes"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackc/deet/internal/debugger"
	"github.com/jackc/deet/internal/inferior"
	"github.com/jackc/deet/internal/ui"
)

type fakeOracle struct {
	lines     map[int]uint64
	functions map[string]uint64
	lineAt    map[uint64]string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		lines:     map[int]uint64{},
		functions: map[string]uint64{},
		lineAt:    map[uint64]string{},
	}
}

func (f *fakeOracle) FunctionAt(pc uint64) (string, bool) {
	for name, addr := range f.functions {
		if addr == pc {
			return name, true
		}
	}
	return "", false
}

func (f *fakeOracle) LineAt(pc uint64) (string, int, bool) {
	s, ok := f.lineAt[pc]
	if !ok {
		return "", 0, false
	}
	return s, int(pc), true
}

func (f *fakeOracle) AddrOfLine(unit *string, line int) (uint64, bool) {
	addr, ok := f.lines[line]
	return addr, ok
}

func (f *fakeOracle) AddrOfFunction(unit *string, name string) (uint64, bool) {
	addr, ok := f.functions[name]
	return addr, ok
}

func (f *fakeOracle) FindFunction(name string) (*debugger.FunctionHandle, bool) {
	addr, ok := f.functions[name]
	if !ok {
		return nil, false
	}
	return &debugger.FunctionHandle{Name: name, Entry: addr}, true
}

type fakeInferior struct {
	goStatus    inferior.Status
	goErr       error
	killed      bool
	installed   []uint64
	backtrace   []inferior.Frame
	backtraceEr error
}

func (f *fakeInferior) Go() (inferior.Status, error) { return f.goStatus, f.goErr }
func (f *fakeInferior) Kill() (inferior.Status, error) {
	f.killed = true
	return inferior.Status{Kind: inferior.Signaled, Signal: syscall.SIGKILL}, nil
}
func (f *fakeInferior) InstallBreakpoint(addr uint64) error {
	f.installed = append(f.installed, addr)
	return nil
}
func (f *fakeInferior) Backtrace(sym inferior.Symbolicator) ([]inferior.Frame, error) {
	return f.backtrace, f.backtraceEr
}

func newSession(t *testing.T, oracle *fakeOracle) (*debugger.Session, *bytes.Buffer, *fakeInferior) {
	t.Helper()
	buf := &bytes.Buffer{}
	inf := &fakeInferior{goStatus: inferior.Status{Kind: inferior.Exited, ExitCode: 0}}

	sess := debugger.NewSession("/bin/true", oracle, ui.NewPrinter(buf)).WithSpawner(
		func(target string, args []string, breakpoints []uint64) (debugger.InferiorController, error) {
			return inf, nil
		},
	)
	return sess, buf, inf
}

func TestContinueWithoutRunPrintsRefusal(t *testing.T) {
	sess, buf, _ := newSession(t, newFakeOracle())
	sess.Continue()
	assert.Contains(t, buf.String(), "The program is not being run.")
}

func TestBacktraceWithoutRunPrintsRefusal(t *testing.T) {
	sess, buf, _ := newSession(t, newFakeOracle())
	sess.Backtrace()
	assert.Contains(t, buf.String(), "The program is not being run.")
}

func TestBreakpointBeforeRunIsPending(t *testing.T) {
	oracle := newFakeOracle()
	sess, buf, _ := newSession(t, oracle)

	sess.Breakpoint("*0x400abc")

	require.Equal(t, []uint64{0x400abc}, sess.Breakpoints())
	assert.Contains(t, buf.String(), "Set breakpoint 0 at 0x400abc")
}

func TestBreakpointInvalidAddress(t *testing.T) {
	sess, buf, _ := newSession(t, newFakeOracle())
	sess.Breakpoint("*notahexvalue")
	assert.Contains(t, buf.String(), "Invalid address.")
	assert.Empty(t, sess.Breakpoints())
}

func TestBreakpointByFunctionName(t *testing.T) {
	oracle := newFakeOracle()
	oracle.functions["main"] = 0x401000
	sess, buf, _ := newSession(t, oracle)

	sess.Breakpoint("main")

	require.Equal(t, []uint64{0x401000}, sess.Breakpoints())
	assert.Contains(t, buf.String(), "Set breakpoint 0 at 0x401000")
}

func TestBreakpointByLineNumber(t *testing.T) {
	oracle := newFakeOracle()
	oracle.lines[42] = 0x401042
	sess, buf, _ := newSession(t, oracle)

	sess.Breakpoint("42")

	require.Equal(t, []uint64{0x401042}, sess.Breakpoints())
	assert.Contains(t, buf.String(), "Set breakpoint 0 at 0x401042")
}

func TestBreakpointLineNumberMissSilent(t *testing.T) {
	sess, buf, _ := newSession(t, newFakeOracle())
	sess.Breakpoint("999")
	assert.Empty(t, sess.Breakpoints())
	assert.Empty(t, buf.String())
}

func TestBreakpointUnknownTargetIsInvalid(t *testing.T) {
	sess, buf, _ := newSession(t, newFakeOracle())
	sess.Breakpoint("no_such_function")
	assert.Contains(t, buf.String(), "Invalid breakpoint target.")
	assert.Empty(t, sess.Breakpoints())
}

func TestRunReportsExitAndDiscardsInferior(t *testing.T) {
	sess, buf, inf := newSession(t, newFakeOracle())
	inf.goStatus = inferior.Status{Kind: inferior.Exited, ExitCode: 0}

	sess.Run(nil)

	assert.Contains(t, buf.String(), "Child exited (status 0)")
	assert.False(t, sess.Running())
}

func TestRunSpawnFailurePrintsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	sess := debugger.NewSession("/bin/true", newFakeOracle(), ui.NewPrinter(buf)).WithSpawner(
		func(target string, args []string, breakpoints []uint64) (debugger.InferiorController, error) {
			return nil, errors.New("boom")
		},
	)

	sess.Run(nil)

	assert.Contains(t, buf.String(), "Error starting subprocess")
	assert.False(t, sess.Running())
}

func TestSecondRunKillsFirstInferior(t *testing.T) {
	oracle := newFakeOracle()
	buf := &bytes.Buffer{}

	first := &fakeInferior{goStatus: inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1}}
	second := &fakeInferior{goStatus: inferior.Status{Kind: inferior.Exited, ExitCode: 0}}
	calls := 0

	sess := debugger.NewSession("/bin/true", oracle, ui.NewPrinter(buf)).WithSpawner(
		func(target string, args []string, breakpoints []uint64) (debugger.InferiorController, error) {
			calls++
			if calls == 1 {
				return first, nil
			}
			return second, nil
		},
	)

	sess.Run(nil)
	sess.Run(nil)

	assert.True(t, first.killed)
	assert.False(t, sess.Running())
}

func TestContinueStoppedReportsSourceLine(t *testing.T) {
	oracle := newFakeOracle()
	oracle.lineAt[0x1000] = "main.c"
	sess, buf, inf := newSession(t, oracle)

	inf.goStatus = inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1000}
	sess.Run(nil)
	buf.Reset()

	sess.Continue()

	out := buf.String()
	assert.Contains(t, out, "Child stopped (signal")
	assert.Contains(t, out, "Stopped at main.c:4096")
	assert.True(t, sess.Running())
}

func TestContinueFailureIsReportedAndInferiorRetained(t *testing.T) {
	sess, buf, inf := newSession(t, newFakeOracle())
	sess.Run(nil)

	inf.goStatus = inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1}
	sess.Run(nil)
	buf.Reset()

	inf.goErr = errors.New("ptrace failed")
	sess.Continue()

	assert.Contains(t, buf.String(), "continue fails!")
	assert.True(t, sess.Running())
}

func TestBacktracePrintsFrames(t *testing.T) {
	sess, buf, inf := newSession(t, newFakeOracle())
	sess.Run(nil)

	inf.goStatus = inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1}
	sess.Run(nil)
	buf.Reset()

	inf.backtrace = []inferior.Frame{
		{Function: "sleepytime", File: "hello.go", Line: 5},
		{Function: "main", File: "hello.go", Line: 10},
	}
	sess.Backtrace()

	out := buf.String()
	assert.Contains(t, out, "sleepytime (hello.go:5)")
	assert.Contains(t, out, "main (hello.go:10)")
}

func TestQuitKillsLiveInferior(t *testing.T) {
	sess, _, inf := newSession(t, newFakeOracle())
	sess.Run(nil)

	inf.goStatus = inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1}
	sess.Run(nil)

	sess.Quit()
	assert.True(t, inf.killed)
	assert.False(t, sess.Running())
}

func TestContinueSignaledDiscardsInferior(t *testing.T) {
	sess, _, inf := newSession(t, newFakeOracle())
	sess.Run(nil)

	inf.goStatus = inferior.Status{Kind: inferior.Stopped, Signal: syscall.SIGTRAP, PC: 0x1}
	sess.Run(nil)
	require.True(t, sess.Running())

	inf.goStatus = inferior.Status{Kind: inferior.Signaled, Signal: syscall.SIGSEGV}
	sess.Continue()

	assert.False(t, sess.Running())
}
