package symbol

import (
	"errors"
	"fmt"
)

// MaxModuleNameLen bounds the length of a module name kept in a ModuleRecord.
const MaxModuleNameLen = 256

var (
	ErrNotFound        = errors.New("not found")
	ErrModuleNotLoaded = errors.New("module not loaded")
	ErrModuleLoaded    = errors.New("module already loaded")
	ErrNoDebugInfo     = errors.New("no debug info")
)

// ModuleRecord a module known to the symbol provider
type ModuleRecord struct {
	Base uint64 // load address
	Name string // file name, empty if unknown
}

// ModuleInfo describes a module loaded into the provider
type ModuleInfo struct {
	Base          uint64
	Size          uint64
	Name          string
	ImagePath     string // the image the module was loaded from
	DebugInfoPath string // the file debug information was read from, empty if none
}

// RawSymbol a symbol as reported by the provider, before any filtering or
// demangling is applied
type RawSymbol struct {
	Name    string
	Address uint64
	ModBase uint64
}

// Provider is the debug information backend.
//
// Every operation may fail; failures are reported as *ProviderError. All
// calls are synchronous and may block on disk access. Implementations are
// not required to be safe for concurrent use.
type Provider interface {
	// Modules lists the modules whose debug info is loaded.
	Modules() ([]ModuleRecord, error)
	// EnumerateSymbols calls fn for each symbol of the module at base, in
	// provider order. Enumeration stops when fn returns false.
	EnumerateSymbols(base uint64, fn func(RawSymbol) bool) error
	NameToAddress(name string) (uint64, error)
	// AddressToName returns the symbol covering addr and the offset of addr
	// from the symbol start.
	AddressToName(addr uint64) (name string, displacement uint64, err error)
	AddressToLine(addr uint64) (file string, line int, err error)
	// ModuleInfo returns the module covering addr.
	ModuleInfo(addr uint64) (ModuleInfo, error)
	LoadModule(base uint64, path string) error
	UnloadModule(base uint64) error
	SearchPath() (string, error)
	SetSearchPath(path string) error
}

// ProviderError is returned by Provider operations
type ProviderError struct {
	Op   string
	Addr uint64
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s %#x: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func opError(op string, addr uint64, err error) error {
	return &ProviderError{Op: op, Addr: addr, Err: err}
}

// IsNotFound reports whether err means the queried name or address has no symbol.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
