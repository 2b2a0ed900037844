package symres

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

type fakeLine struct {
	file string
	line int
}

type fakeModule struct {
	base      uint64
	size      uint64
	path      string
	debugPath string
	symbols   []symbol.RawSymbol
	lines     map[uint64]fakeLine
}

// fakeProvider an in-memory symbol.Provider recording its calls
type fakeProvider struct {
	loaded map[uint64]*fakeModule
	images map[string]*fakeModule // LoadModule source, key=path

	searchPath string

	modulesErr    error
	enumErr       error
	enumFailAfter int
	infoErr       error
	getPathErr    error
	setPathErr    error
	restoreErr    error
	failLoad      map[uint64]bool
	failUnload    map[uint64]bool

	nameCalls      int
	setPathCalls   []string
	unloadCalls    []uint64
	loadCalls      []uint64
	loadSearchPath map[uint64]string

	inside  int32
	overlap int32
}

func newFakeProvider(mods ...*fakeModule) *fakeProvider {
	p := &fakeProvider{
		loaded:         map[uint64]*fakeModule{},
		images:         map[string]*fakeModule{},
		searchPath:     "/orig/path",
		failLoad:       map[uint64]bool{},
		failUnload:     map[uint64]bool{},
		loadSearchPath: map[uint64]string{},
	}
	for _, m := range mods {
		p.loaded[m.base] = m
		p.images[m.path] = m
	}
	return p
}

func (p *fakeProvider) enter() func() {
	if atomic.AddInt32(&p.inside, 1) > 1 {
		atomic.StoreInt32(&p.overlap, 1)
	}
	return func() { atomic.AddInt32(&p.inside, -1) }
}

func (p *fakeProvider) Modules() ([]symbol.ModuleRecord, error) {
	defer p.enter()()
	if p.modulesErr != nil {
		return nil, p.modulesErr
	}
	var mods []symbol.ModuleRecord
	for _, m := range p.loaded {
		mods = append(mods, symbol.ModuleRecord{Base: m.base})
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Base < mods[j].Base })
	return mods, nil
}

func (p *fakeProvider) EnumerateSymbols(base uint64, fn func(symbol.RawSymbol) bool) error {
	defer p.enter()()
	m, ok := p.loaded[base]
	if !ok {
		return &symbol.ProviderError{Op: "enumerate symbols", Addr: base, Err: symbol.ErrModuleNotLoaded}
	}
	for i, s := range m.symbols {
		if p.enumErr != nil && i == p.enumFailAfter {
			return p.enumErr
		}
		if !fn(s) {
			return nil
		}
	}
	return nil
}

func (p *fakeProvider) NameToAddress(name string) (uint64, error) {
	defer p.enter()()
	p.nameCalls++
	for _, m := range p.loaded {
		for _, s := range m.symbols {
			if s.Name == name {
				return s.Address, nil
			}
		}
	}
	return 0, &symbol.ProviderError{Op: "name to address", Err: symbol.ErrNotFound}
}

func (p *fakeProvider) module(addr uint64) *fakeModule {
	for _, m := range p.loaded {
		if m.base <= addr && addr < m.base+m.size {
			return m
		}
	}
	return nil
}

func (p *fakeProvider) AddressToName(addr uint64) (string, uint64, error) {
	defer p.enter()()
	m := p.module(addr)
	if m == nil {
		return "", 0, &symbol.ProviderError{Op: "address to name", Addr: addr, Err: symbol.ErrModuleNotLoaded}
	}
	var (
		best  *symbol.RawSymbol
		found bool
	)
	for i := range m.symbols {
		s := &m.symbols[i]
		if s.Address <= addr && (!found || s.Address > best.Address) {
			best, found = s, true
		}
	}
	if !found {
		return "", 0, &symbol.ProviderError{Op: "address to name", Addr: addr, Err: symbol.ErrNotFound}
	}
	return best.Name, addr - best.Address, nil
}

func (p *fakeProvider) AddressToLine(addr uint64) (string, int, error) {
	defer p.enter()()
	m := p.module(addr)
	if m == nil {
		return "", 0, &symbol.ProviderError{Op: "address to line", Addr: addr, Err: symbol.ErrModuleNotLoaded}
	}
	l, ok := m.lines[addr]
	if !ok {
		return "", 0, &symbol.ProviderError{Op: "address to line", Addr: addr, Err: symbol.ErrNotFound}
	}
	return l.file, l.line, nil
}

func (p *fakeProvider) ModuleInfo(addr uint64) (symbol.ModuleInfo, error) {
	defer p.enter()()
	if p.infoErr != nil {
		return symbol.ModuleInfo{}, p.infoErr
	}
	m := p.module(addr)
	if m == nil {
		return symbol.ModuleInfo{}, &symbol.ProviderError{Op: "module info", Addr: addr, Err: symbol.ErrModuleNotLoaded}
	}
	return symbol.ModuleInfo{Base: m.base, Size: m.size, ImagePath: m.path, DebugInfoPath: m.debugPath}, nil
}

func (p *fakeProvider) LoadModule(base uint64, path string) error {
	defer p.enter()()
	p.loadCalls = append(p.loadCalls, base)
	p.loadSearchPath[base] = p.searchPath
	if p.failLoad[base] {
		return fmt.Errorf("load %#x: corrupt image", base)
	}
	if _, ok := p.loaded[base]; ok {
		return &symbol.ProviderError{Op: "load module", Addr: base, Err: symbol.ErrModuleLoaded}
	}
	img, ok := p.images[path]
	if !ok {
		return &symbol.ProviderError{Op: "load module", Addr: base, Err: errors.New("no such file")}
	}
	p.loaded[base] = img
	return nil
}

func (p *fakeProvider) UnloadModule(base uint64) error {
	defer p.enter()()
	p.unloadCalls = append(p.unloadCalls, base)
	if p.failUnload[base] {
		return fmt.Errorf("unload %#x: bad handle", base)
	}
	if _, ok := p.loaded[base]; !ok {
		return &symbol.ProviderError{Op: "unload module", Addr: base, Err: symbol.ErrModuleNotLoaded}
	}
	delete(p.loaded, base)
	return nil
}

func (p *fakeProvider) SearchPath() (string, error) {
	defer p.enter()()
	if p.getPathErr != nil {
		return "", p.getPathErr
	}
	return p.searchPath, nil
}

func (p *fakeProvider) SetSearchPath(path string) error {
	defer p.enter()()
	p.setPathCalls = append(p.setPathCalls, path)
	if p.setPathErr != nil {
		return p.setPathErr
	}
	if p.restoreErr != nil && len(p.setPathCalls) > 1 {
		return p.restoreErr
	}
	p.searchPath = path
	return nil
}

// fakeLoaded the target's module list
type fakeLoaded struct {
	names map[uint64]string // base -> file name
	sizes map[uint64]uint64
	paths map[uint64]string
}

func (f *fakeLoaded) ModuleNameFromAddr(addr uint64, withExt bool) (string, bool) {
	for base, name := range f.names {
		if base <= addr && addr < base+f.sizes[base] {
			if !withExt {
				if idx := indexDot(name); idx > 0 {
					name = name[:idx]
				}
			}
			return name, true
		}
	}
	return "", false
}

func (f *fakeLoaded) FilePathForLoadedModule(base uint64) (string, bool) {
	path, ok := f.paths[base]
	return path, ok
}

func indexDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

type fakeLabels map[uint64]string

func (f fakeLabels) Get(addr uint64) (string, bool) {
	name, ok := f[addr]
	return name, ok
}

type progressLog struct {
	lines []string
}

func (p *progressLog) Printf(format string, args ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, args...))
}
