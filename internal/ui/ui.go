// Package ui formats the Session's output. Message text is literal and
// stable so callers and tests can match on it; color is layered on top
// via github.com/fatih/color, which disables ANSI sequences
// automatically when stdout isn't a terminal (as under `go test`), so
// the strings tests assert on are always the plain, uncolored text.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorPrompt     = color.New(color.FgBlue, color.Bold)
	colorBreakpoint = color.New(color.FgRed, color.Bold)
	colorError      = color.New(color.FgRed, color.Bold)
	colorSuccess    = color.New(color.FgGreen)
	colorInfo       = color.New(color.FgWhite)
)

// Prompt is the interactive session prompt, colorized.
func Prompt() string {
	return colorPrompt.Sprint("(deet) ")
}

// SetColorEnabled forces color output on or off, overriding fatih/color's
// own terminal auto-detection. Used by cmd/deet to honor a "no_color"
// session configuration setting.
func SetColorEnabled(enabled bool) {
	color.NoColor = !enabled
}

// Printer writes Session-facing messages to an underlying writer,
// coloring some message classes; coloring never changes the message
// text itself.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.w, s)
}

// NotRunning prints the refusal message for Continue/Backtrace issued
// with no live inferior.
func (p *Printer) NotRunning() {
	p.println("The program is not being run.")
}

// SpawnFailed prints a generic spawn-failure message.
func (p *Printer) SpawnFailed() {
	p.println(colorError.Sprint("Error starting subprocess"))
}

// ContinueFailed prints a message for a ptrace/wait error mid-session.
func (p *Printer) ContinueFailed() {
	p.println(colorError.Sprint("continue fails!"))
}

// Exited prints the exit status line.
func (p *Printer) Exited(code int) {
	p.println(fmt.Sprintf("Child exited (status %d)", code))
}

// Stopped prints the stop line, plus the source location line when
// the oracle resolves one. line is empty when unresolved.
func (p *Printer) Stopped(signal fmt.Stringer, line string) {
	p.println(fmt.Sprintf("Child stopped (signal %s)", signal))
	if line != "" {
		p.println(fmt.Sprintf("Stopped at %s", line))
	}
}

// BreakpointSet prints a breakpoint-installed confirmation line.
func (p *Printer) BreakpointSet(index int, addr uint64) {
	p.println(colorBreakpoint.Sprintf("Set breakpoint %d at %#x", index, addr))
}

// InvalidAddress prints the address-parse-failure message.
func (p *Printer) InvalidAddress() {
	p.println(colorError.Sprint("Invalid address."))
}

// InvalidBreakpointTarget prints the catch-all breakpoint-target
// failure message.
func (p *Printer) InvalidBreakpointTarget() {
	p.println(colorError.Sprint("Invalid breakpoint target."))
}

// UnrecognizedCommand prints the unrecognized-command-word message.
func (p *Printer) UnrecognizedCommand() {
	p.println(colorError.Sprint("Unrecognized command."))
}

// BacktraceFrame prints one formatted backtrace line.
func (p *Printer) BacktraceFrame(line string) {
	p.println(colorInfo.Sprint(line))
}

// Info prints an informational line for non-protocol output. The "-i"
// debug-info summary does not use it; that is written by the oracle's
// PrintSummary.
func (p *Printer) Info(format string, args ...interface{}) {
	p.println(colorSuccess.Sprintf(format, args...))
}
