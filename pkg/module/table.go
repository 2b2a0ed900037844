// Package module keeps the process-wide table of loaded modules.
package module

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/symdbg/pkg/logflags"
	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// ErrEnumerate the provider failed to enumerate modules. An empty table is
// not an error.
var ErrEnumerate = errors.New("enumerate modules failed")

// Lister enumerates the modules known to the debug info provider
type Lister interface {
	Modules() ([]symbol.ModuleRecord, error)
}

// Namer names the module covering an address
type Namer interface {
	ModuleNameFromAddr(addr uint64, withExt bool) (string, bool)
}

// Notifier receives every refreshed module list, including the empty list
// published when enumeration fails
type Notifier interface {
	UpdateModuleList(count int, mods []symbol.ModuleRecord)
}

// Table the module table. Readers always see a complete snapshot: Refresh
// builds a new list and swaps it in.
type Table struct {
	lister   Lister
	namer    Namer
	notifier Notifier

	snapshot atomic.Value // []symbol.ModuleRecord

	log *logrus.Entry
}

// NewTable creates an empty table. namer and notifier may be nil.
func NewTable(lister Lister, namer Namer, notifier Notifier) *Table {
	t := &Table{
		lister:   lister,
		namer:    namer,
		notifier: notifier,
		log:      logflags.ModulesLogger(),
	}
	t.snapshot.Store([]symbol.ModuleRecord{})
	return t
}

// Refresh re-enumerates the modules and publishes the new table
func (t *Table) Refresh() ([]symbol.ModuleRecord, error) {
	raw, err := t.lister.Modules()
	if err != nil {
		t.publish([]symbol.ModuleRecord{})
		t.log.Errorf("enumerate modules err: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrEnumerate, err)
	}

	seen := make(map[uint64]bool, len(raw))
	mods := make([]symbol.ModuleRecord, 0, len(raw))
	for _, m := range raw {
		if seen[m.Base] {
			t.log.Warnf("duplicated module base %#x dropped", m.Base)
			continue
		}
		seen[m.Base] = true

		// one module without a name must not invalidate the table
		rec := symbol.ModuleRecord{Base: m.Base}
		if t.namer != nil {
			if name, ok := t.namer.ModuleNameFromAddr(m.Base, true); ok {
				rec.Name = name
			}
		}
		if len(rec.Name) > symbol.MaxModuleNameLen {
			rec.Name = rec.Name[:symbol.MaxModuleNameLen]
		}
		mods = append(mods, rec)
	}

	t.publish(mods)
	t.log.Debugf("%d modules", len(mods))
	return append([]symbol.ModuleRecord(nil), mods...), nil
}

func (t *Table) publish(mods []symbol.ModuleRecord) {
	t.snapshot.Store(mods)
	if t.notifier != nil {
		t.notifier.UpdateModuleList(len(mods), append([]symbol.ModuleRecord(nil), mods...))
	}
}

// Modules returns a copy of the last published table
func (t *Table) Modules() []symbol.ModuleRecord {
	mods := t.snapshot.Load().([]symbol.ModuleRecord)
	return append([]symbol.ModuleRecord(nil), mods...)
}

// Find returns the module loaded at base
func (t *Table) Find(base uint64) (symbol.ModuleRecord, bool) {
	for _, m := range t.snapshot.Load().([]symbol.ModuleRecord) {
		if m.Base == base {
			return m, true
		}
	}
	return symbol.ModuleRecord{}, false
}

// FindByName returns the first module whose name is name
func (t *Table) FindByName(name string) (symbol.ModuleRecord, bool) {
	for _, m := range t.snapshot.Load().([]symbol.ModuleRecord) {
		if m.Name == name {
			return m, true
		}
	}
	return symbol.ModuleRecord{}, false
}
