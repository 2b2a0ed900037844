package symres

import (
	"fmt"
	"iter"
	"strings"

	"github.com/hitzhangjie/symdbg/pkg/demangle"
	"github.com/hitzhangjie/symdbg/pkg/symbol"
)

// ordinalName marks a placeholder for an export known only by its ordinal
const ordinalName = "Ordinal"

// SymbolRecord a symbol of a module. UndecoratedName is empty unless
// demangling succeeded and changed the name.
type SymbolRecord struct {
	Address         uint64
	DecoratedName   string
	UndecoratedName string
}

// Name returns the undecorated name when there is one
func (r SymbolRecord) Name() string {
	if r.UndecoratedName != "" {
		return r.UndecoratedName
	}
	return r.DecoratedName
}

// EnumerateSymbols calls fn for every symbol of the module at base, in
// provider order, until fn returns false. Ordinal placeholders pointing at
// the module base are skipped.
//
// fn runs with the engine locked and must not call back into the engine.
// Records delivered before a provider failure stay valid.
func (e *Engine) EnumerateSymbols(base uint64, fn func(SymbolRecord) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.provider.EnumerateSymbols(base, func(raw symbol.RawSymbol) bool {
		// bad ordinals carry no information
		if isOrdinalStub(raw.Name) && raw.Address == base {
			return true
		}

		rec := SymbolRecord{Address: raw.Address, DecoratedName: raw.Name}
		if undecorated, ok := demangle.Demangle(raw.Name); ok {
			rec.UndecoratedName = undecorated
		}
		return fn(rec)
	})
	if err != nil {
		e.log.Errorf("enumerate symbols of %#x err: %v", base, err)
		return fmt.Errorf("%w: %v", ErrEnumerateSymbols, err)
	}
	return nil
}

// Symbols returns the symbols of the module at base as a lazy sequence. A
// provider failure is yielded once, as the last element. Ranging over the
// sequence again enumerates again.
//
// The loop body runs with the engine locked and must not call back into
// the engine.
func (e *Engine) Symbols(base uint64) iter.Seq2[SymbolRecord, error] {
	return func(yield func(SymbolRecord, error) bool) {
		stopped := false
		err := e.EnumerateSymbols(base, func(rec SymbolRecord) bool {
			if !yield(rec, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(SymbolRecord{}, err)
		}
	}
}

func isOrdinalStub(name string) bool {
	return strings.Contains(name, ordinalName)
}

func hasOrdinalPrefix(name string) bool {
	return len(name) >= len(ordinalName) && strings.EqualFold(name[:len(ordinalName)], ordinalName)
}
