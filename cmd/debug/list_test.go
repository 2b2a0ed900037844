package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileLineno(t *testing.T) {
	tests := []struct {
		loc    string
		file   string
		lineno int
		err    bool
	}{
		{"main.go:100", "main.go", 100, false},
		{`C:\src\main.c:10`, `C:\src\main.c`, 10, false},
		{"main.go", "", 0, true},
		{":10", "", 0, true},
		{"main.go:x", "", 0, true},
		{"main.go:0", "", 0, true},
	}
	for _, tt := range tests {
		file, lineno, err := parseFileLineno(tt.loc)
		if tt.err {
			assert.Error(t, err, tt.loc)
			continue
		}
		require.NoError(t, err, tt.loc)
		assert.Equal(t, tt.file, file)
		assert.Equal(t, tt.lineno, lineno)
	}
}

func TestListFileLines(t *testing.T) {
	file := filepath.Join(t.TempDir(), "main.c")
	require.NoError(t, os.WriteFile(file, []byte("l1\nl2\nl3\nl4\nl5\n"), 0o644))

	lines, offset, err := listFile(file, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, []string{"l1", "l2", "l3"}, lines)

	lines, offset, err = listFile(file, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, offset)
	assert.Equal(t, []string{"l4", "l5"}, lines)

	lines, _, err = listFile(file, 100, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)

	buf := &bytes.Buffer{}
	require.NoError(t, listFileLines(buf, file, 3, 1))
	assert.Equal(t, "    \t2\tl2\n=>  \t3\tl3\n    \t4\tl4\n", buf.String())

	assert.Error(t, listFileLines(buf, filepath.Join(t.TempDir(), "missing.c"), 1, 1))
}
