package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassemble(t *testing.T) {
	var looked []uint64
	symname := func(addr uint64) (string, uint64) {
		looked = append(looked, addr)
		if addr == 0x1007 {
			return "callee", 0x1007
		}
		return "", 0
	}

	// nop; call rel32 +1; ret; int3
	dat := []byte{0x90, 0xe8, 0x01, 0x00, 0x00, 0x00, 0xc3, 0xcc}

	buf := &bytes.Buffer{}
	require.NoError(t, disassemble(buf, 0x1000, dat, 3, "intel", symname))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "0x1000:")
	assert.Contains(t, lines[0], "nop")
	assert.Contains(t, lines[1], "0x1001:")
	assert.Contains(t, lines[1], "call")
	assert.Contains(t, lines[2], "ret")
	assert.Contains(t, looked, uint64(0x1007), "call target resolved through the symbol lookup")

	assert.Error(t, disassemble(buf, 0x1000, dat, 1, "att", symname))

	// stops at the end of the data
	buf.Reset()
	require.NoError(t, disassemble(buf, 0x1000, dat[:1], 10, "gnu", symname))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestDisassemblePartialOutput(t *testing.T) {
	symname := func(uint64) (string, uint64) { return "", 0 }

	// nop; nop; truncated call
	buf := &bytes.Buffer{}
	err := disassemble(buf, 0x1000, []byte{0x90, 0x90, 0xe8, 0x01}, 10, "intel", symname)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x1002")
	assert.Equal(t, 2, strings.Count(buf.String(), "nop"), "instructions before the failure are printed")

	buf.Reset()
	assert.Error(t, disassemble(buf, 0x1000, []byte{0x90, 0x90}, 10, "att", symname))
	assert.Empty(t, buf.String())
}

func TestParseSwitch(t *testing.T) {
	for s, want := range map[string]bool{"on": true, "off": false, "true": true, "0": false} {
		v, err := parseSwitch(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, v, s)
	}
	_, err := parseSwitch("maybe")
	assert.Error(t, err)
}
