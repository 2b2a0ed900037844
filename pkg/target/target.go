// Package target reads the loaded-module table of the debugged target:
// a live process through procfs, or a single executable image.
package target

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNotSupported = errors.New("not supported by this target")

// Kind 发起调试的类型
type Kind int

const (
	ATTACH Kind = iota // 读取运行中进程
	EXEC               // 静态分析可执行程序
)

func (k Kind) String() string {
	switch k {
	case ATTACH:
		return "attach"
	case EXEC:
		return "exec"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mapping a module mapped into the target's address space
type Mapping struct {
	Base uint64 // lowest mapped address
	End  uint64 // highest mapped address, exclusive
	Path string // file the module was mapped from
}

// Target the debugged target
type Target interface {
	// String describes the target for the session banner.
	fmt.Stringer
	Kind() Kind
	// Update re-reads the loaded-module table.
	Update() error
	// Mappings returns the modules of the last update, sorted by base.
	Mappings() []Mapping
	// ModuleNameFromAddr returns the file name of the module covering addr,
	// without its extension unless withExt is set.
	ModuleNameFromAddr(addr uint64, withExt bool) (string, bool)
	// FilePathForLoadedModule returns the on-disk path of the module loaded at base.
	FilePathForLoadedModule(base uint64) (string, bool)
	ReadMemory(addr uint64, buf []byte) (int, error)
}

// table the loaded-module table shared by the target kinds
type table []Mapping

func (t table) find(addr uint64) (Mapping, bool) {
	idx := sort.Search(len(t), func(i int) bool {
		return t[i].End > addr
	})
	if idx < len(t) && t[idx].Base <= addr {
		return t[idx], true
	}
	return Mapping{}, false
}

func (t table) moduleName(addr uint64, withExt bool) (string, bool) {
	m, ok := t.find(addr)
	if !ok {
		return "", false
	}
	return moduleName(m.Path, withExt), true
}

func (t table) filePath(base uint64) (string, bool) {
	for _, m := range t {
		if m.Base == base {
			return m.Path, true
		}
	}
	return "", false
}

// moduleName returns the file name of path, with everything from the first
// dot removed unless withExt is set. A versioned shared object keeps only
// its stem: libc.so.6 -> libc, not libc.so.
func moduleName(path string, withExt bool) string {
	name := filepath.Base(path)
	if withExt {
		return name
	}
	if idx := strings.Index(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}
