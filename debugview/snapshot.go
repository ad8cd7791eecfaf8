// Package debugview is the "debug state-diff printer" external collaborator
// spec.md §1 names: a register/PSTATE snapshot differ, a tview/tcell
// inspector panel, and a minimal fyne window over the same state. It has no
// breakpoints, watchpoints, or step control — interactive debugging is an
// explicit Non-goal; this package only shows what cpu.ProcessorState holds
// after the host calls Step.
package debugview

import (
	"fmt"
	"strings"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Snapshot is a flattened, comparable copy of the register/PSTATE surface a
// host cares about between two Step calls.
type Snapshot struct {
	PC       uint64
	GPR      [16]uint64
	N, Z, C, V bool
	Mode     cpu.Mode
	ISA      cpu.ISA
}

// Capture takes a Snapshot of p's current architectural state.
func Capture(p *cpu.ProcessorState) Snapshot {
	s := Snapshot{
		PC:   p.Regs.PC,
		N:    p.PState.N,
		Z:    p.PState.Z,
		C:    p.PState.C,
		V:    p.PState.V,
		Mode: p.PState.Mode,
		ISA:  p.PState.CurrentISA(),
	}
	for i := 0; i < 16; i++ {
		s.GPR[i] = uint64(p.ReadA32(i))
	}
	return s
}

// Diff describes one changed field between two Snapshots.
type Diff struct {
	Field string
	Old   string
	New   string
}

// Compare reports every field that differs between before and after, in a
// fixed order (PC, flags, mode/ISA, then registers low to high).
func Compare(before, after Snapshot) []Diff {
	var diffs []Diff
	add := func(field string, oldV, newV string) {
		if oldV != newV {
			diffs = append(diffs, Diff{Field: field, Old: oldV, New: newV})
		}
	}

	add("PC", fmt.Sprintf("0x%016X", before.PC), fmt.Sprintf("0x%016X", after.PC))
	add("N", fmt.Sprint(before.N), fmt.Sprint(after.N))
	add("Z", fmt.Sprint(before.Z), fmt.Sprint(after.Z))
	add("C", fmt.Sprint(before.C), fmt.Sprint(after.C))
	add("V", fmt.Sprint(before.V), fmt.Sprint(after.V))
	add("Mode", before.Mode.String(), after.Mode.String())
	add("ISA", before.ISA.String(), after.ISA.String())

	for i := 0; i < 16; i++ {
		if before.GPR[i] != after.GPR[i] {
			add(fmt.Sprintf("R%d", i), fmt.Sprintf("0x%08X", before.GPR[i]), fmt.Sprintf("0x%08X", after.GPR[i]))
		}
	}
	return diffs
}

// FormatDiffs renders a Diff slice the way a host's --trace output would
// print it: one line per changed field, "name: old -> new".
func FormatDiffs(diffs []Diff) string {
	if len(diffs) == 0 {
		return "(no change)"
	}
	var b strings.Builder
	for _, d := range diffs {
		fmt.Fprintf(&b, "%s: %s -> %s\n", d.Field, d.Old, d.New)
	}
	return b.String()
}
