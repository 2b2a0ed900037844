package symres

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// searchPathGuard holds a changed search path and puts the original back
type searchPathGuard struct {
	provider symbol.Provider
	original string
	restored bool
}

func acquireSearchPath(p symbol.Provider) (*searchPathGuard, error) {
	original, err := p.SearchPath()
	if err != nil {
		return nil, err
	}
	return &searchPathGuard{provider: p, original: original}, nil
}

func (g *searchPathGuard) set(path string) error {
	return g.provider.SetSearchPath(path)
}

// restore is idempotent
func (g *searchPathGuard) restore() error {
	if g.restored {
		return nil
	}
	g.restored = true
	return g.provider.SetSearchPath(g.original)
}

// DownloadAllSymbols reloads the debug info of every module through a
// search path that puts the local symbol cache in front of store. An empty
// store means DefaultSymbolStore.
//
// A module that fails is reported and skipped. The returned error, if any,
// lists those failures; the batch always runs to the end and the original
// search path is restored on every path out.
//
// The call blocks for as long as the provider needs to fetch the files and
// cannot be cancelled.
func (e *Engine) DownloadAllSymbols(store string) (errs error) {
	if store == "" {
		store = DefaultSymbolStore
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mods, err := e.refreshLocked()
	if err != nil {
		return err
	}
	if len(mods) == 0 {
		return nil
	}

	guard, err := acquireSearchPath(e.provider)
	if err != nil {
		e.progress.Printf("get symbol search path failed: %v\n", err)
		return fmt.Errorf("get search path err: %w", err)
	}
	defer func() {
		if err := guard.restore(); err != nil {
			// the provider keeps the download path, nothing more we can do
			e.log.Errorf("restore search path %q err: %v", guard.original, err)
			e.progress.Printf("restore symbol search path failed: %v\n", err)
			errs = multierror.Append(errs, fmt.Errorf("restore search path err: %w", err))
		}
	}()

	if err := guard.set(symbol.ServerSearchPath(e.cfg.SymbolCacheDir(), store)); err != nil {
		e.progress.Printf("set symbol search path failed: %v\n", err)
		return fmt.Errorf("set search path err: %w", err)
	}

	var result *multierror.Error
	for _, m := range mods {
		e.progress.Printf("Downloading symbols for %s...\n", m.Name)

		path, ok := e.loaded.FilePathForLoadedModule(m.Base)
		if !ok {
			e.progress.Printf("file path of module %#x not found\n", m.Base)
			result = multierror.Append(result, fmt.Errorf("module %#x: file path not found", m.Base))
			continue
		}
		if err := e.provider.UnloadModule(m.Base); err != nil {
			e.progress.Printf("unload module %#x failed: %v\n", m.Base, err)
			result = multierror.Append(result, fmt.Errorf("module %#x: %w", m.Base, err))
			continue
		}
		if err := e.provider.LoadModule(m.Base, path); err != nil {
			e.progress.Printf("load module %#x failed: %v\n", m.Base, err)
			result = multierror.Append(result, fmt.Errorf("module %#x: %w", m.Base, err))
			continue
		}
		e.log.Debugf("reloaded %s at %#x", path, m.Base)
	}

	if _, err := e.refreshLocked(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
