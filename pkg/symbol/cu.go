package symbol

import (
	"debug/dwarf"
	"io"
)

// CompileUnit compilation unit
//
// see DWARFv4 3.1.1 normal and partial compilation unit entries
type CompileUnit struct {
	entry *dwarf.Entry
	bi    *BinaryInfo
}

// LineRow one row of the line number program
type LineRow struct {
	Address     uint64
	File        string
	Line        int
	EndSequence bool
}

// parseLineSection parses .(z)debug_line of this unit and appends the rows
// to the binary's line table
//
// note: one compile unit may contains more than one source files.
func (c *CompileUnit) parseLineSection(lineReader *dwarf.LineReader) error {
	entry := dwarf.LineEntry{}

	for {
		// scan next entry
		err := lineReader.Next(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if entry.File == nil && !entry.EndSequence {
			continue
		}

		row := LineRow{
			Address:     entry.Address,
			Line:        entry.Line,
			EndSequence: entry.EndSequence,
		}
		if entry.File != nil {
			row.File = entry.File.Name
		}
		c.bi.Lines = append(c.bi.Lines, row)
	}

	return nil
}

func (c *CompileUnit) name() string {
	name, _ := c.entry.Val(dwarf.AttrName).(string)
	return name
}
