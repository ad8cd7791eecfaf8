package cpu

// Coprocessor is the facade a 4-bit coprocessor slot implements, receiving
// the full opcode so it can decode its own sub-fields (spec.md §4.10).
type Coprocessor interface {
	CDP(cpu *ProcessorState, opcode uint32) error
	LoadStore(cpu *ProcessorState, opcode uint32) error
	MCR(cpu *ProcessorState, opcode uint32) error
	MRC(cpu *ProcessorState, opcode uint32) error
	MCRR(cpu *ProcessorState, opcode uint32) error
	MRRC(cpu *ProcessorState, opcode uint32) error
}

// CoprocessorTable is the 16-entry table indexed by cp-number; an empty
// slot traps as Undefined (spec.md §4.10).
type CoprocessorTable [16]Coprocessor

// InstallCoprocessor registers a coprocessor facade at the given 4-bit
// slot, overwriting whatever was there before.
func (cpu *ProcessorState) InstallCoprocessor(slot int, cp Coprocessor) {
	cpu.Coprocessors[slot] = cp
}

// InstallDefaultCoprocessors wires the coprocessor facades this package
// ships (FPA, VFP, and a representative CP15 system-register file) into
// the slots A32 code expects them at, according to which FP unit cfg
// selected. Hosts that want a different or additional facility can still
// call InstallCoprocessor directly afterward.
func (cpu *ProcessorState) InstallDefaultCoprocessors() {
	switch cpu.Config.FPVersion {
	case FPA:
		fpa := NewFPACoprocessor()
		cpu.InstallCoprocessor(1, fpa)
		cpu.InstallCoprocessor(2, fpa)
	case VFPv2, VFPv3, VFPv4, VFPv8:
		cpu.InstallCoprocessor(10, NewVFPCoprocessor(false))
		cpu.InstallCoprocessor(11, NewVFPCoprocessor(true))
	}
	sysreg := NewSystemCoprocessor()
	cpu.InstallCoprocessor(14, sysreg)
	cpu.InstallCoprocessor(15, sysreg)
}
