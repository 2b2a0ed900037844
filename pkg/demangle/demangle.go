// Package demangle converts mangled C++ and Rust symbol names into their
// readable form.
package demangle

import (
	"github.com/ianlancetaylor/demangle"
)

// Demangle returns the fully demangled form of decorated.
//
// The second result is false when decorated is not a mangled name the
// demangler understands, or when demangling leaves it unchanged.
func Demangle(decorated string) (undecorated string, ok bool) {
	if decorated == "" {
		return "", false
	}
	defer func() {
		if r := recover(); r != nil {
			undecorated, ok = "", false
		}
	}()
	undecorated, err := demangle.ToString(decorated)
	if err != nil {
		return "", false
	}
	if undecorated == decorated {
		return "", false
	}
	return undecorated, true
}

