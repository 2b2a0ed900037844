package symres

import (
	"fmt"
	"strings"

	"github.com/hitzhangjie/symdbg/pkg/demangle"
	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// SourceLine a source position
type SourceLine struct {
	File string
	Line int
}

func (s SourceLine) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// ResolveAddress returns the address of the symbol named name. Empty names
// and ordinal placeholders are rejected without asking the provider.
func (e *Engine) ResolveAddress(name string) (uint64, bool) {
	if name == "" || hasOrdinalPrefix(name) {
		return 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if addr, ok := e.addrCache.Get(name); ok {
		return addr, true
	}
	addr, err := e.provider.NameToAddress(name)
	if err != nil {
		if !symbol.IsNotFound(err) {
			e.log.Debugf("resolve %s err: %v", name, err)
		}
		return 0, false
	}
	e.addrCache.Add(name, addr)
	return addr, true
}

// ResolveSymbolicName returns the name of the symbol starting exactly at
// addr, formatted as module.label, or <label> when no module covers addr.
// A user label for addr wins over the provider's symbol.
func (e *Engine) ResolveSymbolicName(addr uint64) (string, bool) {
	label, ok := e.labels.Get(addr)
	if !ok {
		e.mu.Lock()
		name, displacement, err := e.provider.AddressToName(addr)
		e.mu.Unlock()
		if err != nil {
			if !symbol.IsNotFound(err) {
				e.log.Debugf("resolve %#x err: %v", addr, err)
			}
			return "", false
		}
		// only accept a symbol that starts at addr
		if displacement != 0 {
			return "", false
		}

		label = name
		if e.cfg.UndecorateNames() {
			if undecorated, ok := demangle.Demangle(name); ok {
				label = undecorated
			}
		}
	}

	if modname, ok := e.loaded.ModuleNameFromAddr(addr, false); ok && modname != "" {
		return modname + "." + label, true
	}
	return "<" + label + ">", true
}

// Symbolize returns the symbol covering addr and its start address, the
// contract of x86asm.SymLookup. Interior addresses are accepted.
func (e *Engine) Symbolize(addr uint64) (string, uint64) {
	if label, ok := e.labels.Get(addr); ok {
		return label, addr
	}

	e.mu.Lock()
	name, displacement, err := e.provider.AddressToName(addr)
	e.mu.Unlock()
	if err != nil {
		return "", 0
	}
	if e.cfg.UndecorateNames() {
		if undecorated, ok := demangle.Demangle(name); ok {
			name = undecorated
		}
	}
	return name, addr - displacement
}

// ResolveSourceLine returns the source position of addr. A relative file
// name is resolved against the directory of the module's debug info file,
// and stays relative when that path has no directory. Failing to get the
// module's info is an error.
func (e *Engine) ResolveSourceLine(addr uint64) (SourceLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, line, err := e.provider.AddressToLine(addr)
	if err != nil {
		e.log.Debugf("line of %#x err: %v", addr, err)
		return SourceLine{}, fmt.Errorf("%w at %#x: %v", ErrNoLineInfo, addr, err)
	}

	if isAbsPath(file) {
		return SourceLine{File: file, Line: line}, nil
	}

	info, err := e.provider.ModuleInfo(addr)
	if err != nil {
		return SourceLine{}, fmt.Errorf("module info of %#x: %w", addr, err)
	}
	return SourceLine{File: dirOf(info.DebugInfoPath) + file, Line: line}, nil
}

// isAbsPath accepts drive-letter roots (C:\, C:/), UNC paths and rooted
// unix paths
func isAbsPath(path string) bool {
	switch {
	case len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/'):
		return true
	case strings.HasPrefix(path, `\\`):
		return true
	case strings.HasPrefix(path, "/"):
		return true
	}
	return false
}

// dirOf strips the last path component, keeping the trailing separator
func dirOf(path string) string {
	idx := strings.LastIndexAny(path, `\/`)
	if idx < 0 {
		return ""
	}
	return path[:idx+1]
}
