// Package hostmem provides a concrete, segmented implementation of
// cpu.MemoryInterface: a flat address space split into named, permissioned
// regions. It is the default backing store a host wires into a
// cpu.ProcessorState; the kernel itself only ever talks to the
// MemoryInterface trait.
package hostmem

import (
	"fmt"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Permission is a bitmask of the accesses a segment allows.
type Permission byte

const (
	PermNone    Permission = 0
	PermRead    Permission = 1 << 0
	PermWrite   Permission = 1 << 1
	PermExecute Permission = 1 << 2
)

// Segment is a named, contiguous, permissioned region of the address space.
type Segment struct {
	Name        string
	Start       uint64
	Size        uint64
	Data        []byte
	Permissions Permission
}

// Memory is a segmented address space implementing cpu.MemoryInterface.
// Unlike the teacher's fixed four-segment layout, segments here are added
// by the host as needed (the loader's image segment, a stack segment, and
// so on) since spec.md's kernel is
// architecture-agnostic about memory layout.
type Memory struct {
	Segments []*Segment

	AccessCount, ReadCount, WriteCount uint64
}

// New creates an empty segmented address space. Callers add segments with
// AddSegment before handing the *Memory to cpu.New.
func New() *Memory {
	return &Memory{}
}

// AddSegment registers a new region. Overlapping segments are not detected
// here — callers own laying out a consistent address map, the same
// trust boundary the teacher's vm.Memory.AddSegment draws.
func (m *Memory) AddSegment(name string, start, size uint64, perm Permission) *Segment {
	seg := &Segment{Name: name, Start: start, Size: size, Data: make([]byte, size), Permissions: perm}
	m.Segments = append(m.Segments, seg)
	return seg
}

func (m *Memory) findSegment(address uint64) (*Segment, uint64, error) {
	for _, seg := range m.Segments {
		if address >= seg.Start && address < seg.Start+seg.Size {
			return seg, address - seg.Start, nil
		}
	}
	return nil, 0, fmt.Errorf("memory access violation: address 0x%016X is not mapped", address)
}

// Read implements cpu.MemoryInterface. The *cpu.ProcessorState argument is
// accepted for parity with the interface signature but unused: this backing
// store enforces segment permissions only, not privilege level — a host
// wanting EL-aware protection composes another MemoryInterface in front of
// this one.
func (m *Memory) Read(_ *cpu.ProcessorState, address uint64, buf []byte, privileged bool) bool {
	seg, offset, err := m.findSegment(address)
	if err != nil {
		return false
	}
	if seg.Permissions&PermRead == 0 {
		return false
	}
	if offset+uint64(len(buf)) > seg.Size {
		return false
	}
	m.AccessCount++
	m.ReadCount++
	copy(buf, seg.Data[offset:offset+uint64(len(buf))])
	return true
}

// Write implements cpu.MemoryInterface.
func (m *Memory) Write(_ *cpu.ProcessorState, address uint64, buf []byte, privileged bool) bool {
	seg, offset, err := m.findSegment(address)
	if err != nil {
		return false
	}
	if seg.Permissions&PermWrite == 0 {
		return false
	}
	if offset+uint64(len(buf)) > seg.Size {
		return false
	}
	m.AccessCount++
	m.WriteCount++
	copy(seg.Data[offset:offset+uint64(len(buf))], buf)
	return true
}

// LoadBytes copies a byte image directly into a segment, bypassing
// permission checks — used by the loader to place the initial program
// image.
func (m *Memory) LoadBytes(address uint64, data []byte) error {
	seg, offset, err := m.findSegment(address)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > seg.Size {
		return fmt.Errorf("image of %d bytes at 0x%016X overruns segment %q", len(data), address, seg.Name)
	}
	copy(seg.Data[offset:], data)
	return nil
}

// SegmentFor returns the segment containing address, or nil.
func (m *Memory) SegmentFor(address uint64) *Segment {
	seg, _, err := m.findSegment(address)
	if err != nil {
		return nil
	}
	return seg
}

// CheckExecute reports whether address is in a segment with execute
// permission, for a loader or debug front-end to validate an entry point.
func (m *Memory) CheckExecute(address uint64) error {
	seg, _, err := m.findSegment(address)
	if err != nil {
		return err
	}
	if seg.Permissions&PermExecute == 0 {
		return fmt.Errorf("execute permission denied for segment %q at 0x%016X", seg.Name, address)
	}
	return nil
}

// Reset zeroes every segment's backing storage and the access counters.
func (m *Memory) Reset() {
	for _, seg := range m.Segments {
		clear(seg.Data)
	}
	m.AccessCount, m.ReadCount, m.WriteCount = 0, 0, 0
}
