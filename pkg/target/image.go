package target

import (
	"debug/elf"
	"fmt"
	"path/filepath"
)

// Image a single executable analyzed without running it
type Image struct {
	Path string
	tbl  table
}

// OpenImage maps the executable at path at its preferred load address
func OpenImage(path string) (*Image, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	file, err := elf.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open image err: %v", err)
	}
	defer file.Close()

	var (
		low, high uint64
		seen      bool
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
	if !seen {
		return nil, fmt.Errorf("image %s has no loadable segment", abs)
	}

	return &Image{
		Path: abs,
		tbl:  table{{Base: low &^ 0xfff, End: high, Path: abs}},
	}, nil
}

func (i *Image) Kind() Kind { return EXEC }

func (i *Image) Update() error { return nil }

func (i *Image) String() string { return i.Path }

func (i *Image) Mappings() []Mapping {
	return append([]Mapping(nil), i.tbl...)
}

func (i *Image) ModuleNameFromAddr(addr uint64, withExt bool) (string, bool) {
	return i.tbl.moduleName(addr, withExt)
}

func (i *Image) FilePathForLoadedModule(base uint64) (string, bool) {
	return i.tbl.filePath(base)
}

func (i *Image) ReadMemory(addr uint64, buf []byte) (int, error) {
	return 0, ErrNotSupported
}
