package debugger

import "github.com/jackc/deet/internal/dwarfdata"

// oracleAdapter adapts a *dwarfdata.Oracle to the Oracle interface this
// package consumes, translating dwarfdata's own *Function handle type
// into this package's FunctionHandle.
type oracleAdapter struct {
	*dwarfdata.Oracle
}

// WrapOracle adapts a loaded dwarfdata.Oracle for use by a Session.
func WrapOracle(o *dwarfdata.Oracle) Oracle {
	return oracleAdapter{Oracle: o}
}

func (a oracleAdapter) FindFunction(name string) (*FunctionHandle, bool) {
	fn, ok := a.Oracle.FindFunction(name)
	if !ok {
		return nil, false
	}
	return &FunctionHandle{Name: fn.Name, Entry: fn.Entry}, true
}
