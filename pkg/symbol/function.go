package symbol

import (
	"debug/dwarf"
	"errors"
)

// Function function
//
// see DWARFv4 3.3 subroutine and entry point entries
type Function struct {
	name        string
	linkageName string
	lowpc       uint64
	highpc      uint64

	cu *CompileUnit
}

func (f *Function) Name() string {
	return f.name
}

// LinkageName returns the mangled name when the compiler recorded one.
func (f *Function) LinkageName() string {
	if f.linkageName != "" {
		return f.linkageName
	}
	return f.name
}

// CompileUnit returns the name of the unit declaring f
func (f *Function) CompileUnit() string {
	if f.cu == nil {
		return ""
	}
	return f.cu.name()
}

func (f *Function) parseFrom(curEntry *dwarf.Entry) error {
	var (
		highpc   uint64
		relative bool
	)

	for _, field := range curEntry.Field {
		switch field.Attr {
		case dwarf.AttrName:
			if val, ok := field.Val.(string); ok {
				f.name = val
			}
		case dwarf.AttrLinkageName:
			if val, ok := field.Val.(string); ok {
				f.linkageName = val
			}
		case dwarf.AttrLowpc:
			if val, ok := field.Val.(uint64); ok {
				f.lowpc = val
			}
		case dwarf.AttrHighpc:
			// DWARFv4: highpc of constant class is an offset from lowpc
			switch val := field.Val.(type) {
			case uint64:
				highpc = val
			case int64:
				highpc = uint64(val)
				relative = true
			}
		}
	}

	if relative {
		highpc += f.lowpc
	}
	f.highpc = highpc

	if f.name == "" && f.linkageName == "" {
		return errors.New("anonymous subprogram")
	}
	return nil
}
