package hostmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundTrip(t *testing.T) {
	m := New()
	m.AddSegment("data", 0x1000, 0x100, PermRead|PermWrite)

	buf := []byte{1, 2, 3, 4}
	require.True(t, m.Write(nil, 0x1000, buf, false))
	out := make([]byte, 4)
	require.True(t, m.Read(nil, 0x1000, out, false))
	assert.Equal(t, buf, out)
}

func TestReadUnmappedFails(t *testing.T) {
	m := New()
	out := make([]byte, 4)
	assert.False(t, m.Read(nil, 0xDEAD, out, false), "expected read of unmapped address to fail")
}

func TestWriteDeniedWithoutPermission(t *testing.T) {
	m := New()
	m.AddSegment("rodata", 0x2000, 0x10, PermRead)
	assert.False(t, m.Write(nil, 0x2000, []byte{0}, false), "expected write to read-only segment to fail")
}

func TestSegmentOverrun(t *testing.T) {
	m := New()
	m.AddSegment("small", 0x3000, 4, PermRead|PermWrite)
	assert.False(t, m.Write(nil, 0x3000, make([]byte, 8), false), "expected overrunning write to fail")
}

func TestLoadBytesAndCheckExecute(t *testing.T) {
	m := New()
	m.AddSegment("code", 0x8000, 0x100, PermRead|PermExecute)
	require.NoError(t, m.LoadBytes(0x8000, []byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.NoError(t, m.CheckExecute(0x8000))

	m.AddSegment("data", 0x9000, 0x10, PermRead|PermWrite)
	assert.Error(t, m.CheckExecute(0x9000), "expected CheckExecute to fail for non-executable segment")
}

func TestReset(t *testing.T) {
	m := New()
	m.AddSegment("data", 0x1000, 0x10, PermRead|PermWrite)
	m.Write(nil, 0x1000, []byte{0xFF}, false)
	m.Reset()
	out := make([]byte, 1)
	m.Read(nil, 0x1000, out, false)
	assert.Equal(t, byte(0), out[0], "expected zeroed memory after reset")
}
