package loader

import (
	"path/filepath"
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/BinaryMelodies/all-the-arm/hostmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBytesPlacesImage(t *testing.T) {
	mem := hostmem.New()
	data := []byte{0x01, 0x02, 0x03, 0x04}

	img, err := LoadBytes(mem, data, 0x8000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000), img.EntryPoint, "expected entry point to default to load address")

	out := make([]byte, 4)
	require.True(t, mem.Read(nil, 0x8000, out, false), "expected to read back the loaded image")
	assert.Equal(t, data, out)
}

func TestLoadBytesExplicitEntry(t *testing.T) {
	mem := hostmem.New()
	img, err := LoadBytes(mem, []byte{0, 0, 0, 0}, 0x1000, 0x1004)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1004), img.EntryPoint, "expected explicit entry point to be honored")
}

func TestLoadBytesRejectsEmpty(t *testing.T) {
	mem := hostmem.New()
	_, err := LoadBytes(mem, nil, 0x8000, 0)
	assert.Error(t, err, "expected error loading an empty image")
}

func TestLoadFileMissing(t *testing.T) {
	mem := hostmem.New()
	_, err := LoadFile(mem, filepath.Join(t.TempDir(), "missing.bin"), 0x8000, 0)
	assert.Error(t, err, "expected error loading a missing file")
}

func TestStartSetsPC(t *testing.T) {
	cfg, _ := cpu.Resolve(cpu.ConfigRequest{Arch: "v7"})
	mem := hostmem.New()
	p := cpu.New(cfg, mem)

	img, err := LoadBytes(mem, []byte{0, 0, 0, 0}, 0x8000, 0x8004)
	require.NoError(t, err)
	Start(p, img)
	assert.Equal(t, uint64(0x8004), p.Regs.PC)
}
