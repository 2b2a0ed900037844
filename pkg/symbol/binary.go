package symbol

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/symdbg/pkg/logflags"
)

// Symbol an entry of .symtab/.dynsym, or a DWARF subprogram when the image
// has no symbol table
type Symbol struct {
	Name  string
	Value uint64 // link-time address
	Size  uint64
}

// BinaryInfo binary info
type BinaryInfo struct {
	Path          string
	DebugInfoPath string
	BuildID       string

	Type  elf.Type
	Vaddr uint64 // lowest PT_LOAD vaddr
	Size  uint64 // span of all PT_LOAD segments

	Symbols      []Symbol // sorted by Value
	Functions    []*Function
	CompileUnits []*CompileUnit
	Lines        []LineRow // sorted by Address

	byName map[string]int

	// only used for parsing purpose
	curCompileUnit *CompileUnit

	log *logrus.Entry
}

// Analyze analyzes executable or shared object `execFile` and returns the
// binary info. Debug info is read from the image itself, or from a separate
// debug file found in searchDirs. Missing or corrupt debug info is not an
// error: the image's symbol table is still usable.
func Analyze(execFile string, searchDirs []string) (*BinaryInfo, error) {
	file, err := elf.Open(execFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	bi := &BinaryInfo{
		Path:   execFile,
		Type:   file.Type,
		byName: map[string]int{},
		log:    logflags.ProviderLogger().WithField("image", execFile),
	}
	bi.parseSegments(file)
	bi.BuildID = buildID(file)
	bi.parseSymbols(file)

	dwarfData, debugPath, err := bi.openDWARF(file, searchDirs)
	if err != nil {
		bi.log.Debugf("no debug info: %v", err)
	} else {
		bi.DebugInfoPath = debugPath
		if err := bi.ParseLineAndInfo(dwarfData); err != nil {
			bi.log.Warnf("parse debug info err: %v", err)
		}
	}

	// stripped image, fall back to DWARF subprograms
	if len(bi.Symbols) == 0 {
		for _, fn := range bi.Functions {
			if fn.name == "" || fn.lowpc == 0 {
				continue
			}
			bi.Symbols = append(bi.Symbols, Symbol{Name: fn.LinkageName(), Value: fn.lowpc, Size: fn.highpc - fn.lowpc})
		}
	}
	bi.sortSymbols()

	return bi, nil
}

func (bi *BinaryInfo) parseSegments(file *elf.File) {
	var (
		low  uint64
		high uint64
		seen bool
	)
	for _, p := range file.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if !seen || p.Vaddr < low {
			low = p.Vaddr
		}
		if end := p.Vaddr + p.Memsz; end > high {
			high = end
		}
		seen = true
	}
	bi.Vaddr = low
	bi.Size = high - low
}

func (bi *BinaryInfo) parseSymbols(file *elf.File) {
	seen := map[Symbol]bool{}
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			typ := elf.ST_TYPE(s.Info)
			if typ != elf.STT_FUNC && typ != elf.STT_OBJECT {
				continue
			}
			if s.Value == 0 || s.Name == "" || s.Section == elf.SHN_UNDEF {
				continue
			}
			sym := Symbol{Name: s.Name, Value: s.Value, Size: s.Size}
			if seen[sym] {
				continue
			}
			seen[sym] = true
			bi.Symbols = append(bi.Symbols, sym)
		}
	}

	if syms, err := file.Symbols(); err == nil {
		add(syms)
	} else if !errors.Is(err, elf.ErrNoSymbols) {
		bi.log.Debugf("read .symtab err: %v", err)
	}
	if syms, err := file.DynamicSymbols(); err == nil {
		add(syms)
	} else if !errors.Is(err, elf.ErrNoSymbols) {
		bi.log.Debugf("read .dynsym err: %v", err)
	}
}

func (bi *BinaryInfo) sortSymbols() {
	sort.SliceStable(bi.Symbols, func(i, j int) bool {
		if bi.Symbols[i].Value != bi.Symbols[j].Value {
			return bi.Symbols[i].Value < bi.Symbols[j].Value
		}
		return bi.Symbols[i].Size > bi.Symbols[j].Size
	})
	for i, s := range bi.Symbols {
		if _, ok := bi.byName[s.Name]; !ok {
			bi.byName[s.Name] = i
		}
	}
}

// openDWARF returns the DWARF data of the image, or of a separate debug file
// found in searchDirs, together with the path it was read from.
func (bi *BinaryInfo) openDWARF(file *elf.File, searchDirs []string) (*dwarf.Data, string, error) {
	if hasDebugInfo(file) {
		data, err := file.DWARF()
		if err != nil {
			return nil, "", err
		}
		return data, bi.Path, nil
	}

	debugFile := findDebugFile(searchDirs, bi.Path, bi.BuildID)
	if debugFile == "" {
		return nil, "", ErrNoDebugInfo
	}
	df, err := elf.Open(debugFile)
	if err != nil {
		return nil, "", err
	}
	defer df.Close()

	data, err := df.DWARF()
	if err != nil {
		return nil, "", fmt.Errorf("debug file %s: %w", debugFile, err)
	}
	return data, debugFile, nil
}

// ParseLineAndInfo parses .(z)debug_line and .(z)debug_info sections
//
// unit entries: see DWARF v4 chapter 3.3.1 normal and partial compilation unit entries
func (bi *BinaryInfo) ParseLineAndInfo(dwarfData *dwarf.Data) error {
	reader := dwarfData.Reader()
	for {
		entry, err := reader.Next()
		if err != nil {
			bi.sortLines()
			return err
		}
		if entry == nil { // reaches the end
			break
		}

		switch entry.Tag {
		case dwarf.TagCompileUnit, dwarf.TagPartialUnit:
			cu := &CompileUnit{entry: entry, bi: bi}
			bi.curCompileUnit = cu
			bi.CompileUnits = append(bi.CompileUnits, cu)

			rd, err := dwarfData.LineReader(entry)
			if err != nil {
				// one bad compile unit should not hide the others
				bi.log.Debugf("line reader for %s err: %v", cu.name(), err)
				continue
			}
			if rd == nil {
				continue
			}
			if err := cu.parseLineSection(rd); err != nil {
				bi.log.Debugf("line table of %s err: %v", cu.name(), err)
			}

		case dwarf.TagSubprogram:
			fn := &Function{cu: bi.curCompileUnit}
			if err := fn.parseFrom(entry); err != nil {
				continue
			}
			bi.Functions = append(bi.Functions, fn)
		}
	}

	bi.sortLines()
	return nil
}

func (bi *BinaryInfo) sortLines() {
	// at equal addresses the end of a sequence sorts before the start of
	// the next one, so a lookup lands on the start row
	sort.SliceStable(bi.Lines, func(i, j int) bool {
		if bi.Lines[i].Address != bi.Lines[j].Address {
			return bi.Lines[i].Address < bi.Lines[j].Address
		}
		return bi.Lines[i].EndSequence && !bi.Lines[j].EndSequence
	})
}

// LookupSymbol returns the symbol whose range covers link-time address pc,
// and the displacement of pc inside it.
func (bi *BinaryInfo) LookupSymbol(pc uint64) (Symbol, uint64, error) {
	idx := sort.Search(len(bi.Symbols), func(i int) bool {
		return bi.Symbols[i].Value > pc
	}) - 1
	if idx < 0 {
		return Symbol{}, 0, ErrNotFound
	}

	// prefer a sized symbol covering pc over a nearer unsized one
	for i := idx; i >= 0 && i > idx-8; i-- {
		s := bi.Symbols[i]
		if s.Size != 0 && pc < s.Value+s.Size {
			return s, pc - s.Value, nil
		}
	}
	s := bi.Symbols[idx]
	if s.Size != 0 {
		return Symbol{}, 0, ErrNotFound
	}
	return s, pc - s.Value, nil
}

// LookupName returns the link-time address of the symbol named name.
func (bi *BinaryInfo) LookupName(name string) (uint64, error) {
	idx, ok := bi.byName[name]
	if !ok {
		return 0, ErrNotFound
	}
	return bi.Symbols[idx].Value, nil
}

// PCToFileLine returns the source position of link-time address pc.
func (bi *BinaryInfo) PCToFileLine(pc uint64) (string, int, error) {
	if len(bi.Lines) == 0 {
		return "", 0, ErrNoDebugInfo
	}
	idx := sort.Search(len(bi.Lines), func(i int) bool {
		return bi.Lines[i].Address > pc
	}) - 1
	if idx < 0 || bi.Lines[idx].EndSequence {
		return "", 0, ErrNotFound
	}
	row := bi.Lines[idx]
	return row.File, row.Line, nil
}

// PCToFunction returns the function whose range covers PC
//
// note: not considered inline function
func (bi *BinaryInfo) PCToFunction(pc uint64) (*Function, error) {
	for _, f := range bi.Functions {
		if f.lowpc != 0 && f.lowpc <= pc && pc < f.highpc {
			return f, nil
		}
	}
	return nil, ErrNotFound
}

func hasDebugInfo(file *elf.File) bool {
	return file.Section(".debug_info") != nil || file.Section(".zdebug_info") != nil
}

// buildID reads the GNU build-id note, see `readelf -n`.
func buildID(file *elf.File) string {
	sec := file.Section(".note.gnu.build-id")
	if sec == nil {
		return ""
	}
	data, err := sec.Data()
	if err != nil || len(data) < 16 {
		return ""
	}
	namesz := file.ByteOrder.Uint32(data[0:4])
	descsz := file.ByteOrder.Uint32(data[4:8])
	typ := file.ByteOrder.Uint32(data[8:12])
	if typ != 3 { // NT_GNU_BUILD_ID
		return ""
	}
	off := 12 + (uint64(namesz)+3)&^3
	if off+uint64(descsz) > uint64(len(data)) {
		return ""
	}
	return hex.EncodeToString(data[off : off+uint64(descsz)])
}
