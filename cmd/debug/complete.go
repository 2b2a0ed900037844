package debug

import (
	"sort"
	"sync"

	"github.com/derekparker/trie"
	"go.uber.org/atomic"

	"github.com/hitzhangjie/symdbg/pkg/symres"
)

const maxCompletions = 64

// nameIndex 所有模块的符号名前缀树，用于命令行补全。
// 模块列表变化后标记为失效，下次补全时重建。
type nameIndex struct {
	mu    sync.Mutex
	stale *atomic.Bool
	trie  *trie.Trie
}

func newNameIndex() *nameIndex {
	return &nameIndex{
		stale: atomic.NewBool(true),
		trie:  trie.New(),
	}
}

// invalidate may be called with the engine locked, it must not touch the engine
func (n *nameIndex) invalidate() {
	n.stale.Store(true)
}

func (n *nameIndex) search(e *symres.Engine, prefix string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stale.CAS(true, false) {
		n.rebuild(e)
	}
	if prefix == "" {
		return nil
	}

	names := n.trie.PrefixSearch(prefix)
	sort.Strings(names)
	if len(names) > maxCompletions {
		names = names[:maxCompletions]
	}
	return names
}

func (n *nameIndex) rebuild(e *symres.Engine) {
	t := trie.New()
	for _, m := range e.Modules() {
		// completion is best effort, a failing module contributes what it yielded
		_ = e.EnumerateSymbols(m.Base, func(r symres.SymbolRecord) bool {
			t.Add(r.DecoratedName, r.Address)
			return true
		})
	}
	n.trie = t
}
