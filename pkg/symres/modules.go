package symres

import (
	"fmt"
	"strconv"

	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// Image a module image to load debug info for
type Image struct {
	Base uint64
	Path string
}

// RefreshModules re-enumerates the provider's modules and publishes the new
// module table. On failure the published table is empty.
func (e *Engine) RefreshModules() ([]symbol.ModuleRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshLocked()
}

func (e *Engine) refreshLocked() ([]symbol.ModuleRecord, error) {
	e.addrCache.Purge()
	return e.table.Refresh()
}

// LoadModules loads debug info for every image and refreshes the module
// table. An image that fails to load is logged and skipped; the number of
// images loaded is returned.
func (e *Engine) LoadModules(images []Image) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	var loaded int
	for _, img := range images {
		if err := e.provider.LoadModule(img.Base, img.Path); err != nil {
			e.log.Warnf("load module %s at %#x err: %v", img.Path, img.Base, err)
			continue
		}
		loaded++
	}
	if _, err := e.refreshLocked(); err != nil {
		e.log.Errorf("refresh modules err: %v", err)
	}
	return loaded
}

// ModuleLoaded loads debug info for a module the target just mapped
func (e *Engine) ModuleLoaded(base uint64, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.provider.LoadModule(base, path); err != nil {
		return fmt.Errorf("load module %s err: %w", path, err)
	}
	_, err := e.refreshLocked()
	return err
}

// ModuleUnloaded drops the debug info of a module the target unmapped
func (e *Engine) ModuleUnloaded(base uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.provider.UnloadModule(base); err != nil {
		return fmt.Errorf("unload module %#x err: %w", base, err)
	}
	_, err := e.refreshLocked()
	return err
}

func parseAddress(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}
