package symbol

import (
	"debug/elf"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/symdbg/pkg/logflags"
)

const pageMask = 0xfff

// ELFProvider is a Provider backed by ELF images and their DWARF data
type ELFProvider struct {
	mu         sync.Mutex
	searchPath string
	modules    map[uint64]*loadedModule // key=load base

	log *logrus.Entry
}

type loadedModule struct {
	base uint64
	bias uint64 // runtime address - link-time address
	bi   *BinaryInfo
}

func (m *loadedModule) contains(addr uint64) bool {
	size := m.bi.Size
	if size == 0 {
		size = 1
	}
	return m.base <= addr && addr < m.base+size
}

func (m *loadedModule) info() ModuleInfo {
	return ModuleInfo{
		Base:          m.base,
		Size:          m.bi.Size,
		Name:          boundName(filepath.Base(m.bi.Path)),
		ImagePath:     m.bi.Path,
		DebugInfoPath: m.bi.DebugInfoPath,
	}
}

// NewELFProvider creates a provider with the given initial search path
func NewELFProvider(searchPath string) *ELFProvider {
	return &ELFProvider{
		searchPath: searchPath,
		modules:    map[uint64]*loadedModule{},
		log:        logflags.ProviderLogger(),
	}
}

func (p *ELFProvider) Modules() ([]ModuleRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mods := make([]ModuleRecord, 0, len(p.modules))
	for _, m := range p.modules {
		mods = append(mods, ModuleRecord{Base: m.base, Name: boundName(filepath.Base(m.bi.Path))})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Base < mods[j].Base })
	return mods, nil
}

func (p *ELFProvider) EnumerateSymbols(base uint64, fn func(RawSymbol) bool) error {
	p.mu.Lock()
	m, ok := p.modules[base]
	p.mu.Unlock()
	if !ok {
		return opError("enumerate symbols", base, ErrModuleNotLoaded)
	}

	// m.bi is immutable once loaded, iterate without holding the lock
	for _, s := range m.bi.Symbols {
		if !fn(RawSymbol{Name: s.Name, Address: s.Value + m.bias, ModBase: m.base}) {
			break
		}
	}
	return nil
}

func (p *ELFProvider) NameToAddress(name string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range p.sortedModules() {
		if v, err := m.bi.LookupName(name); err == nil {
			return v + m.bias, nil
		}
	}
	return 0, opError("name to address "+name, 0, ErrNotFound)
}

func (p *ELFProvider) AddressToName(addr uint64) (string, uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.moduleFor(addr)
	if m == nil {
		return "", 0, opError("address to name", addr, ErrModuleNotLoaded)
	}
	pc := addr - m.bias
	s, disp, err := m.bi.LookupSymbol(pc)
	if err != nil {
		// local functions missing from the symbol table still have DWARF
		if fn, ferr := m.bi.PCToFunction(pc); ferr == nil {
			p.log.Debugf("%#x resolved to %s of %s by debug info", addr, fn.Name(), fn.CompileUnit())
			return fn.LinkageName(), pc - fn.lowpc, nil
		}
		return "", 0, opError("address to name", addr, err)
	}
	return s.Name, disp, nil
}

func (p *ELFProvider) AddressToLine(addr uint64) (string, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.moduleFor(addr)
	if m == nil {
		return "", 0, opError("address to line", addr, ErrModuleNotLoaded)
	}
	file, line, err := m.bi.PCToFileLine(addr - m.bias)
	if err != nil {
		return "", 0, opError("address to line", addr, err)
	}
	return file, line, nil
}

func (p *ELFProvider) ModuleInfo(addr uint64) (ModuleInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.moduleFor(addr)
	if m == nil {
		return ModuleInfo{}, opError("module info", addr, ErrModuleNotLoaded)
	}
	return m.info(), nil
}

// LoadModule analyzes the image at path and maps it at base. Debug info
// is looked up with the current search path.
func (p *ELFProvider) LoadModule(base uint64, path string) error {
	p.mu.Lock()
	if _, ok := p.modules[base]; ok {
		p.mu.Unlock()
		return opError("load module", base, ErrModuleLoaded)
	}
	dirs := SearchDirs(p.searchPath)
	p.mu.Unlock()

	bi, err := Analyze(path, dirs)
	if err != nil {
		return opError("load module", base, err)
	}

	m := &loadedModule{base: base, bi: bi}
	if bi.Type == elf.ET_DYN {
		m.bias = base - bi.Vaddr&^pageMask
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.modules[base]; ok {
		return opError("load module", base, ErrModuleLoaded)
	}
	p.modules[base] = m
	p.log.Debugf("loaded %s at %#x, bias %#x, debug info %q", path, base, m.bias, bi.DebugInfoPath)
	return nil
}

func (p *ELFProvider) UnloadModule(base uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.modules[base]; !ok {
		return opError("unload module", base, ErrModuleNotLoaded)
	}
	delete(p.modules, base)
	return nil
}

func (p *ELFProvider) SearchPath() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.searchPath, nil
}

func (p *ELFProvider) SetSearchPath(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searchPath = path
	return nil
}

func (p *ELFProvider) sortedModules() []*loadedModule {
	mods := make([]*loadedModule, 0, len(p.modules))
	for _, m := range p.modules {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].base < mods[j].base })
	return mods
}

func (p *ELFProvider) moduleFor(addr uint64) *loadedModule {
	for _, m := range p.modules {
		if m.contains(addr) {
			return m
		}
	}
	return nil
}

func boundName(name string) string {
	if len(name) > MaxModuleNameLen {
		return name[:MaxModuleNameLen]
	}
	return name
}
