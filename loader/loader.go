// Package loader places a flat binary image into a host memory and points
// a cpu.ProcessorState at its entry address. ELF parsing is an external
// collaborator per spec.md §1 and is out of scope here — this is the
// "load a blob of machine code at an address" primitive every other
// loader format would be layered on top of.
package loader

import (
	"fmt"
	"os"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/BinaryMelodies/all-the-arm/hostmem"
)

// Image describes where a flat binary was placed and where execution
// should begin.
type Image struct {
	LoadAddress uint64
	Size        uint64
	EntryPoint  uint64
}

// LoadFile reads a flat binary from disk and loads it into mem at
// loadAddress, creating a code segment sized to fit the file, and returns
// an Image whose EntryPoint is entryPoint (defaulting to loadAddress if
// zero). It does not touch a processor; Start sets the PC.
func LoadFile(mem *hostmem.Memory, path string, loadAddress, entryPoint uint64) (*Image, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- caller-supplied program path
	if err != nil {
		return nil, fmt.Errorf("failed to read image %q: %w", path, err)
	}
	return LoadBytes(mem, data, loadAddress, entryPoint)
}

// LoadBytes loads an in-memory image, for callers that already have the
// bytes (an embedded test fixture, a decompressed archive member, ...).
func LoadBytes(mem *hostmem.Memory, data []byte, loadAddress, entryPoint uint64) (*Image, error) {
	size := uint64(len(data))
	if size == 0 {
		return nil, fmt.Errorf("refusing to load an empty image")
	}

	mem.AddSegment("image", loadAddress, size, hostmem.PermRead|hostmem.PermWrite|hostmem.PermExecute)
	if err := mem.LoadBytes(loadAddress, data); err != nil {
		return nil, fmt.Errorf("failed to place image at 0x%016X: %w", loadAddress, err)
	}

	if entryPoint == 0 {
		entryPoint = loadAddress
	}
	return &Image{LoadAddress: loadAddress, Size: size, EntryPoint: entryPoint}, nil
}

// Start points cpu at the image's entry point. It does not itself choose an
// ISA — spec.md §3's Lifecycle has Reset establish the default ISA first,
// and a loader only positions PC within it.
func Start(p *cpu.ProcessorState, img *Image) {
	p.Regs.PC = img.EntryPoint
}
