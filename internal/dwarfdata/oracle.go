// Package dwarfdata resolves address<->source-line and
// address<->function lookups against a target ELF executable's debug
// information.
//
// Two independent sources are consulted: the Go symbol table
// (.gosymtab/.gopclntab, read with debug/gosym) for binaries built by
// the Go toolchain, and the DWARF line/subprogram tables (debug/dwarf)
// for any DWARF-emitting toolchain. A lookup tries whichever source is
// present and falls back to the other if the first one's table doesn't
// cover the address.
package dwarfdata

import (
	"debug/dwarf"
	"debug/elf"
	"debug/gosym"
	"fmt"
	"io"
	"sort"
)

// Line is a source location resolved from an address.
type Line struct {
	File    string
	Number  int
	Address uint64
}

func (l Line) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Number)
}

// Function is a resolved function entry point.
type Function struct {
	Name  string
	Entry uint64
}

// dwarfFunc is one TagSubprogram entry extracted from the DWARF info,
// consulted when the Go symbol table is absent or does not cover an
// address.
type dwarfFunc struct {
	name   string
	lowPC  uint64
	highPC uint64
}

// dwarfLine is one row of the decoded DWARF line table.
type dwarfLine struct {
	file    string
	line    int
	address uint64
}

// Oracle answers address/function/line queries against a single
// opened executable.
type Oracle struct {
	path string
	file *elf.File

	symtab *gosym.Table // nil if the binary has no Go symbol sections

	dwarfFuncs []dwarfFunc // sorted by lowPC; nil if no DWARF .debug_info
	dwarfLines []dwarfLine // sorted by address; nil if no DWARF .debug_line

	primaryUnit string
}

// Load opens target and decodes whichever debug information it
// carries. It is not an error for a binary to have only one of the two
// sources; it is an error for it to have neither, since the oracle
// would then be unable to answer any query.
func Load(target string) (*Oracle, error) {
	f, err := elf.Open(target)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}

	o := &Oracle{path: target, file: f}

	gotGoSyms := o.loadGoSymbols()
	gotDwarf := o.loadDwarf()

	if !gotGoSyms && !gotDwarf {
		f.Close()
		return nil, fmt.Errorf("%s has neither a Go symbol table nor DWARF debug info", target)
	}

	return o, nil
}

// Close releases the underlying file handle.
func (o *Oracle) Close() error {
	return o.file.Close()
}

// PrimaryUnit is the source file the oracle treats as the program's
// primary compile unit, consulted when a break target omits a unit.
func (o *Oracle) PrimaryUnit() string {
	return o.primaryUnit
}

func (o *Oracle) loadGoSymbols() bool {
	textSection := o.file.Section(".text")
	symSection := o.file.Section(".gosymtab")
	lineSection := o.file.Section(".gopclntab")
	if textSection == nil || symSection == nil || lineSection == nil {
		return false
	}

	symData, err := symSection.Data()
	if err != nil {
		return false
	}
	lineData, err := lineSection.Data()
	if err != nil {
		return false
	}

	pcln := gosym.NewLineTable(lineData, textSection.Addr)
	tab, err := gosym.NewTable(symData, pcln)
	if err != nil {
		return false
	}

	o.symtab = tab
	if fn := tab.LookupFunc("main.main"); fn != nil {
		if file, _, _ := tab.PCToLine(fn.Entry); file != "" {
			o.primaryUnit = file
		}
	}
	return true
}

func (o *Oracle) loadDwarf() bool {
	data, err := o.file.DWARF()
	if err != nil {
		return false
	}

	reader := data.Reader()
	for {
		entry, err := reader.Next()
		if err != nil || entry == nil {
			break
		}

		switch entry.Tag {
		case dwarf.TagCompileUnit:
			if name, ok := entry.Val(dwarf.AttrName).(string); ok && o.primaryUnit == "" {
				o.primaryUnit = name
			}
			o.collectLines(data, entry)
		case dwarf.TagSubprogram:
			name, _ := entry.Val(dwarf.AttrName).(string)
			low, lowOK := entry.Val(dwarf.AttrLowpc).(uint64)
			if name == "" || !lowOK {
				continue
			}
			high := low
			switch h := entry.Val(dwarf.AttrHighpc).(type) {
			case uint64:
				high = h
			case int64:
				// DWARF4+ commonly encodes highpc as an offset from lowpc.
				high = low + uint64(h)
			}
			o.dwarfFuncs = append(o.dwarfFuncs, dwarfFunc{name: name, lowPC: low, highPC: high})
		}
	}

	sort.Slice(o.dwarfFuncs, func(i, j int) bool { return o.dwarfFuncs[i].lowPC < o.dwarfFuncs[j].lowPC })
	sort.Slice(o.dwarfLines, func(i, j int) bool { return o.dwarfLines[i].address < o.dwarfLines[j].address })

	return len(o.dwarfFuncs) > 0 || len(o.dwarfLines) > 0
}

func (o *Oracle) collectLines(data *dwarf.Data, cu *dwarf.Entry) {
	lr, err := data.LineReader(cu)
	if err != nil || lr == nil {
		return
	}

	var entry dwarf.LineEntry
	for {
		if err := lr.Next(&entry); err != nil {
			if err == io.EOF {
				break
			}
			return
		}
		if entry.File == nil {
			continue
		}
		o.dwarfLines = append(o.dwarfLines, dwarfLine{
			file:    entry.File.Name,
			line:    entry.Line,
			address: entry.Address,
		})
	}
}

// FunctionAt resolves an address to the name of its enclosing function.
func (o *Oracle) FunctionAt(addr uint64) (string, bool) {
	if o.symtab != nil {
		if _, _, fn := o.symtab.PCToLine(addr); fn != nil {
			return fn.Name, true
		}
	}
	if i := sort.Search(len(o.dwarfFuncs), func(i int) bool { return o.dwarfFuncs[i].highPC > addr }); i < len(o.dwarfFuncs) {
		f := o.dwarfFuncs[i]
		if addr >= f.lowPC && addr < f.highPC {
			return f.name, true
		}
	}
	return "", false
}

// LineAt resolves an address to its source file and line number.
func (o *Oracle) LineAt(addr uint64) (string, int, bool) {
	if l, ok := o.lineAt(addr); ok {
		return l.File, l.Number, true
	}
	return "", 0, false
}

func (o *Oracle) lineAt(addr uint64) (Line, bool) {
	if o.symtab != nil {
		if file, line, _ := o.symtab.PCToLine(addr); file != "" {
			return Line{File: file, Number: line, Address: addr}, true
		}
	}
	if len(o.dwarfLines) > 0 {
		i := sort.Search(len(o.dwarfLines), func(i int) bool { return o.dwarfLines[i].address > addr }) - 1
		if i >= 0 {
			l := o.dwarfLines[i]
			return Line{File: l.file, Number: l.line, Address: l.address}, true
		}
	}
	return Line{}, false
}

// AddrOfLine resolves a (unit, line) pair to an address. unit is
// optional; a nil unit means "the primary source unit".
func (o *Oracle) AddrOfLine(unit *string, line int) (uint64, bool) {
	u := o.PrimaryUnit()
	if unit != nil {
		u = *unit
	}

	if o.symtab != nil {
		if addr, _, _ := o.symtab.LineToPC(u, line); addr != 0 {
			return addr, true
		}
	}

	for _, l := range o.dwarfLines {
		if l.line == line && (u == "" || sameFile(l.file, u)) {
			return l.address, true
		}
	}

	return 0, false
}

// AddrOfFunction resolves a function name to its entry address.
func (o *Oracle) AddrOfFunction(unit *string, name string) (uint64, bool) {
	_ = unit // the Go symbol table and DWARF subprogram names are already
	// unit-qualified (e.g. "main.foo"); no additional unit scoping
	// applies for a single compile unit.

	if o.symtab != nil {
		if fn := o.symtab.LookupFunc(name); fn != nil {
			return fn.Entry, true
		}
	}

	for _, f := range o.dwarfFuncs {
		if f.name == name {
			return f.lowPC, true
		}
	}

	return 0, false
}

// FindFunction looks up a function by name, returning a handle suitable
// for a follow-up AddrOfFunction call.
func (o *Oracle) FindFunction(name string) (*Function, bool) {
	if addr, ok := o.AddrOfFunction(nil, name); ok {
		return &Function{Name: name, Entry: addr}, true
	}
	return nil, false
}

// PrintSummary dumps a human-readable summary of the loaded debug
// information, used by the "-i" startup flag.
func (o *Oracle) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "debug info for %s\n", o.path)
	if o.symtab != nil {
		fmt.Fprintf(w, "  go symbol table: %d files\n", len(o.symtab.Files))
	}
	if len(o.dwarfFuncs) > 0 {
		fmt.Fprintf(w, "  dwarf functions: %d\n", len(o.dwarfFuncs))
	}
	if len(o.dwarfLines) > 0 {
		fmt.Fprintf(w, "  dwarf line rows: %d\n", len(o.dwarfLines))
	}
	if o.primaryUnit != "" {
		fmt.Fprintf(w, "  primary unit: %s\n", o.primaryUnit)
	}
}

func sameFile(dwarfPath, requested string) bool {
	if dwarfPath == requested {
		return true
	}
	n := len(requested)
	return len(dwarfPath) >= n && dwarfPath[len(dwarfPath)-n:] == requested
}
