// Package symres resolves addresses to symbolic names and back.
//
// The Engine combines user labels, the debug info provider and the module
// table. Every provider call goes through one mutex: providers are not safe
// for concurrent use, and module loads, unloads and search path changes must
// not interleave with lookups.
package symres

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/hitzhangjie/symdbg/pkg/logflags"
	"github.com/hitzhangjie/symdbg/pkg/module"
	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// DefaultSymbolStore the public symbol server used when no store is given
const DefaultSymbolStore = "http://msdl.microsoft.com/download/symbols"

const addrCacheSize = 4096

var (
	ErrNoProvider       = errors.New("no symbol provider")
	ErrEnumerateSymbols = errors.New("enumerate symbols failed")
	ErrNoLineInfo       = errors.New("no line info")
)

// Labels user-defined address annotations, consulted before the provider
type Labels interface {
	Get(addr uint64) (string, bool)
}

// LoadedModules the target's own view of its loaded modules
type LoadedModules interface {
	// ModuleNameFromAddr returns the name of the module covering addr,
	// without extension unless withExt is set.
	ModuleNameFromAddr(addr uint64, withExt bool) (string, bool)
	// FilePathForLoadedModule returns the on-disk path of the module at base.
	FilePathForLoadedModule(base uint64) (string, bool)
}

// Config values read at call time, owned by the caller
type Config interface {
	// UndecorateNames reports whether symbolic names are shown demangled.
	UndecorateNames() bool
	// SymbolCacheDir is the local directory put in front of a remote store.
	SymbolCacheDir() string
}

// Progress receives human readable progress lines of long operations
type Progress interface {
	Printf(format string, args ...interface{})
}

// StaticConfig a Config with fixed values
type StaticConfig struct {
	Undecorate bool
	CacheDir   string
}

func (c StaticConfig) UndecorateNames() bool  { return c.Undecorate }
func (c StaticConfig) SymbolCacheDir() string { return c.CacheDir }

// Options collaborators of an Engine. Only Provider is required.
type Options struct {
	Provider symbol.Provider
	Labels   Labels
	Loaded   LoadedModules
	Config   Config
	Notifier module.Notifier
	Progress Progress
}

// Engine the symbol resolution engine
type Engine struct {
	mu sync.Mutex

	provider symbol.Provider
	labels   Labels
	loaded   LoadedModules
	cfg      Config
	progress Progress
	table    *module.Table

	addrCache *lru.Cache[string, uint64] // name -> address

	log *logrus.Entry
}

// New creates an engine
func New(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Labels == nil {
		opts.Labels = noLabels{}
	}
	if opts.Loaded == nil {
		opts.Loaded = noModules{}
	}
	if opts.Config == nil {
		opts.Config = StaticConfig{Undecorate: true}
	}
	if opts.Progress == nil {
		opts.Progress = discard{}
	}

	cache, err := lru.New[string, uint64](addrCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create address cache err: %v", err)
	}

	return &Engine{
		provider:  opts.Provider,
		labels:    opts.Labels,
		loaded:    opts.Loaded,
		cfg:       opts.Config,
		progress:  opts.Progress,
		table:     module.NewTable(opts.Provider, opts.Loaded, opts.Notifier),
		addrCache: cache,
		log:       logflags.SymbolsLogger(),
	}, nil
}

// Modules returns the last published module table
func (e *Engine) Modules() []symbol.ModuleRecord {
	return e.table.Modules()
}

// FindModule returns the module named name, or loaded at the address name
// parses to
func (e *Engine) FindModule(name string) (symbol.ModuleRecord, bool) {
	if m, ok := e.table.FindByName(name); ok {
		return m, true
	}
	if addr, err := parseAddress(name); err == nil {
		return e.table.Find(addr)
	}
	return symbol.ModuleRecord{}, false
}

// SearchPath returns the provider's symbol search path
func (e *Engine) SearchPath() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provider.SearchPath()
}

// SetSearchPath changes the provider's symbol search path. Modules already
// loaded keep their debug info until reloaded.
func (e *Engine) SetSearchPath(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provider.SetSearchPath(path)
}

type noLabels struct{}

func (noLabels) Get(uint64) (string, bool) { return "", false }

type noModules struct{}

func (noModules) ModuleNameFromAddr(uint64, bool) (string, bool) { return "", false }
func (noModules) FilePathForLoadedModule(uint64) (string, bool)  { return "", false }

type discard struct{}

func (discard) Printf(string, ...interface{}) {}
