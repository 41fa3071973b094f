package loader_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pdp11/loader"
	"pdp11/mem"
)

func TestLoadSingleBlock(t *testing.T) {
	m := mem.New()
	src := "1000 3\nAA\nBB\nCC\n"
	n, err := loader.Load(strings.NewReader(src), m)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, byte(0xAA), m.ReadByte(0x1000))
	assert.Equal(t, byte(0xBB), m.ReadByte(0x1001))
	assert.Equal(t, byte(0xCC), m.ReadByte(0x1002))
}

func TestLoadMultipleBlocksStopsAtBlankLine(t *testing.T) {
	m := mem.New()
	src := "1000 3\nAA\nBB\nCC\n2000 2\nDD\nEE\n\n2000 1\nFF\n"
	n, err := loader.Load(strings.NewReader(src), m)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, byte(0xDD), m.ReadByte(0x2000))
	assert.Equal(t, byte(0xEE), m.ReadByte(0x2001))
}

// Bytes loaded low-then-high read back as one little-endian word.
func TestLoadWordEndianRoundTrip(t *testing.T) {
	m := mem.New()
	src := "1000 2\nCD\nAB\n"
	_, err := loader.Load(strings.NewReader(src), m)
	assert.NoError(t, err)
	w, err := m.ReadWord(0x1000)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), w)
}

func TestLoadRejectsBadHeader(t *testing.T) {
	m := mem.New()
	_, err := loader.Load(strings.NewReader("not-a-header\n"), m)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrFormat))
}

func TestLoadRejectsTruncatedBlock(t *testing.T) {
	m := mem.New()
	_, err := loader.Load(strings.NewReader("1000 3\nAA\nBB\n"), m)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrFormat))
}

func TestLoadRejectsNonHexByte(t *testing.T) {
	m := mem.New()
	_, err := loader.Load(strings.NewReader("1000 1\nZZ\n"), m)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrFormat))
}
