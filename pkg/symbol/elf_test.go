package symbol

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symtest "github.com/hitzhangjie/symdbg/pkg/symbol/test"
)

func TestMain(m *testing.M) {
	os.Exit(symtest.RunTestsWithFixtures(m))
}

func TestELFProvider(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("ELF only")
	}
	fixture := symtest.BuildFixture(t, "symtest")
	exe := fixture.Path

	bi, err := Analyze(exe, nil)
	require.NoError(t, err)
	base := bi.Vaddr &^ pageMask

	p := NewELFProvider("")
	require.NoError(t, p.LoadModule(base, exe))

	err = p.LoadModule(base, exe)
	assert.ErrorIs(t, err, ErrModuleLoaded)

	mods, err := p.Modules()
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, base, mods[0].Base)

	addr, err := p.NameToAddress("runtime.main")
	require.NoError(t, err)

	name, disp, err := p.AddressToName(addr)
	require.NoError(t, err)
	assert.Equal(t, "runtime.main", name)
	assert.Zero(t, disp)

	_, disp, err = p.AddressToName(addr + 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), disp)

	info, err := p.ModuleInfo(addr)
	require.NoError(t, err)
	assert.Equal(t, exe, info.ImagePath)
	assert.Equal(t, exe, info.DebugInfoPath)
	assert.Equal(t, base, info.Base)

	target, err := p.NameToAddress("main.symtestTarget")
	require.NoError(t, err)
	file, line, err := p.AddressToLine(target)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(file), file)
	assert.Equal(t, filepath.Base(fixture.Source), filepath.Base(file))
	assert.Equal(t, 9, line)

	var count int
	require.NoError(t, p.EnumerateSymbols(base, func(s RawSymbol) bool {
		assert.Equal(t, base, s.ModBase)
		count++
		return count < 10
	}))
	assert.Equal(t, 10, count)

	_, err = p.NameToAddress("no.such.symbol")
	assert.True(t, IsNotFound(err))

	require.NoError(t, p.UnloadModule(base))
	assert.ErrorIs(t, p.UnloadModule(base), ErrModuleNotLoaded)
	assert.ErrorIs(t, p.EnumerateSymbols(base, func(RawSymbol) bool { return true }), ErrModuleNotLoaded)

	_, _, err = p.AddressToName(addr)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, addr, perr.Addr)
}

func TestELFProviderDebugInfoFallback(t *testing.T) {
	p := NewELFProvider("")
	p.modules[0x1000] = &loadedModule{base: 0x1000, bi: testBinaryInfo()}

	// covered by .symtab
	name, disp, err := p.AddressToName(0x1014)
	require.NoError(t, err)
	assert.Equal(t, "main", name)
	assert.Equal(t, uint64(4), disp)

	// only described by DWARF
	name, disp, err = p.AddressToName(0x3004)
	require.NoError(t, err)
	assert.Equal(t, "_ZL8local_fnv", name)
	assert.Equal(t, uint64(4), disp)

	_, _, err = p.AddressToName(0x3800)
	assert.True(t, IsNotFound(err))

	_, _, err = p.AddressToName(0x5000)
	assert.ErrorIs(t, err, ErrModuleNotLoaded)
}

func TestELFProviderSearchPath(t *testing.T) {
	p := NewELFProvider("/a;/b")

	path, err := p.SearchPath()
	require.NoError(t, err)
	assert.Equal(t, "/a;/b", path)

	require.NoError(t, p.SetSearchPath(ServerSearchPath("/cache", "http://store")))
	path, err = p.SearchPath()
	require.NoError(t, err)
	assert.Equal(t, "SRV*/cache*http://store", path)
}

func TestProviderError(t *testing.T) {
	err := opError("address to name", 0x1000, ErrNotFound)
	assert.Equal(t, "address to name 0x1000: not found", err.Error())
	assert.True(t, IsNotFound(err))

	err = opError("search path", 0, ErrNoDebugInfo)
	assert.Equal(t, "search path: no debug info", err.Error())
	assert.False(t, IsNotFound(err))
}
