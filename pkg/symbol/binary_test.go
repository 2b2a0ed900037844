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

func testBinaryInfo() *BinaryInfo {
	bi := &BinaryInfo{
		Symbols: []Symbol{
			{Name: "_start", Value: 0x1000, Size: 0x10},
			{Name: "main", Value: 0x1010, Size: 0x40},
			{Name: "helper", Value: 0x1050, Size: 0},
			{Name: "data", Value: 0x2000, Size: 8},
		},
		Lines: []LineRow{
			{Address: 0x1010, File: "main.c", Line: 3},
			{Address: 0x1020, File: "main.c", Line: 4},
			{Address: 0x1050, EndSequence: true},
			{Address: 0x1050, File: "helper.c", Line: 10},
			{Address: 0x1060, EndSequence: true},
		},
		Functions: []*Function{
			{name: "main", lowpc: 0x1010, highpc: 0x1050},
			{name: "local_fn", linkageName: "_ZL8local_fnv", lowpc: 0x3000, highpc: 0x3010},
			{name: "decl_only"},
		},
		Size:   0x3000,
		byName: map[string]int{},
	}
	bi.sortSymbols()
	bi.sortLines()
	return bi
}

func TestLookupSymbol(t *testing.T) {
	bi := testBinaryInfo()

	tests := []struct {
		pc   uint64
		name string
		disp uint64
		err  error
	}{
		{0x0fff, "", 0, ErrNotFound},
		{0x1000, "_start", 0, nil},
		{0x1010, "main", 0, nil},
		{0x1014, "main", 4, nil},
		{0x1050, "helper", 0, nil},
		{0x1060, "helper", 0x10, nil},
		{0x2004, "data", 4, nil},
		{0x2008, "", 0, ErrNotFound},
	}
	for _, tt := range tests {
		s, disp, err := bi.LookupSymbol(tt.pc)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "pc %#x", tt.pc)
			continue
		}
		require.NoError(t, err, "pc %#x", tt.pc)
		assert.Equal(t, tt.name, s.Name, "pc %#x", tt.pc)
		assert.Equal(t, tt.disp, disp, "pc %#x", tt.pc)
	}
}

func TestLookupName(t *testing.T) {
	bi := testBinaryInfo()

	addr, err := bi.LookupName("main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1010), addr)

	_, err = bi.LookupName("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPCToFileLine(t *testing.T) {
	bi := testBinaryInfo()

	file, line, err := bi.PCToFileLine(0x1024)
	require.NoError(t, err)
	assert.Equal(t, "main.c", file)
	assert.Equal(t, 4, line)

	// start of the second sequence, not the end of the first
	file, line, err = bi.PCToFileLine(0x1050)
	require.NoError(t, err)
	assert.Equal(t, "helper.c", file)
	assert.Equal(t, 10, line)

	_, _, err = bi.PCToFileLine(0x1060)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = bi.PCToFileLine(0x1000)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = (&BinaryInfo{}).PCToFileLine(0x1000)
	assert.ErrorIs(t, err, ErrNoDebugInfo)
}

func TestPCToFunction(t *testing.T) {
	bi := testBinaryInfo()

	fn, err := bi.PCToFunction(0x3008)
	require.NoError(t, err)
	assert.Equal(t, "local_fn", fn.Name())
	assert.Equal(t, "_ZL8local_fnv", fn.LinkageName())
	assert.Empty(t, fn.CompileUnit())

	_, err = bi.PCToFunction(0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = bi.PCToFunction(0x3010)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchDirs(t *testing.T) {
	dirs := SearchDirs(`/usr/lib/debug; SRV*/tmp/cache*http://example.com/symbols;;srv*/var/cache*https://x;SRV*http://only`)
	assert.Equal(t, []string{"/usr/lib/debug", "/tmp/cache", "/var/cache"}, dirs)

	assert.Empty(t, SearchDirs(""))
	assert.Equal(t, "SRV*/tmp/c*http://s", ServerSearchPath("/tmp/c", "http://s"))
}

func TestFindDebugFile(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, findDebugFile([]string{dir}, "/usr/bin/app", "abcdef"))

	byName := filepath.Join(dir, "app.debug")
	require.NoError(t, os.WriteFile(byName, []byte("x"), 0o644))
	assert.Equal(t, byName, findDebugFile([]string{"/nonexistent", dir}, "/usr/bin/app", "abcdef"))

	byID := filepath.Join(dir, ".build-id", "ab", "cdef.debug")
	require.NoError(t, os.MkdirAll(filepath.Dir(byID), 0o755))
	require.NoError(t, os.WriteFile(byID, []byte("x"), 0o644))
	assert.Equal(t, byID, findDebugFile([]string{dir}, "/usr/bin/app", "abcdef"))
}

func TestAnalyzeFixture(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("ELF only")
	}
	fixture := symtest.BuildFixture(t, "symtest")

	bi, err := Analyze(fixture.Path, nil)
	require.NoError(t, err)
	assert.NotZero(t, bi.Size)
	assert.Equal(t, fixture.Path, bi.DebugInfoPath)
	assert.NotEmpty(t, bi.CompileUnits)

	fn, err := bi.PCToFunction(mustLookup(t, bi, "main.symtestTarget"))
	require.NoError(t, err)
	assert.Equal(t, "main.symtestTarget", fn.Name())

	addr, err := bi.LookupName("runtime.main")
	require.NoError(t, err)

	s, disp, err := bi.LookupSymbol(addr)
	require.NoError(t, err)
	assert.Equal(t, "runtime.main", s.Name)
	assert.Zero(t, disp)
}

func mustLookup(t *testing.T, bi *BinaryInfo, name string) uint64 {
	addr, err := bi.LookupName(name)
	require.NoError(t, err, name)
	return addr
}

func TestAnalyzeNotELF(t *testing.T) {
	f := filepath.Join(t.TempDir(), "notelf")
	require.NoError(t, os.WriteFile(f, []byte("hello"), 0o644))

	_, err := Analyze(f, nil)
	assert.Error(t, err)
}
