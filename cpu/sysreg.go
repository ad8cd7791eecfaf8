package cpu

// sysregCoprocessor implements a representative slice of the CP14 (debug)
// and CP15 (system control) facade: enough named registers to let guest
// code read back identification and control values, without the MMU/TLB/
// watchpoint machinery spec.md §9 excludes.
type sysregCoprocessor struct {
	regs map[uint32]uint32
}

// NewSystemCoprocessor returns a Coprocessor implementing a minimal CP15
// system-register file (MIDR read-only at CRn=0, SCTLR read/write at
// CRn=1), suitable for installing at slot 15. InstallDefaultCoprocessors
// installs the same instance at slot 14 (debug) too, so CP14 accesses see
// this same register map; no debug registers are modeled (spec.md §9:
// debug/watchpoint hardware excluded).
func NewSystemCoprocessor() Coprocessor {
	return &sysregCoprocessor{regs: map[uint32]uint32{
		0:       0x410FC080, // MIDR: a representative Cortex-A8-family identifier
		1 << 16: 0x00C50078, // SCTLR (CRn=1): reset value with MMU/caches off
	}}
}

func sysregKey(opcode uint32) uint32 {
	crn := (opcode >> 16) & 0xF
	crm := opcode & 0xF
	opc1 := (opcode >> 21) & 0x7
	opc2 := (opcode >> 5) & 0x7
	return crn<<16 | opc1<<12 | crm<<4 | opc2
}

func (s *sysregCoprocessor) CDP(cpu *ProcessorState, opcode uint32) error {
	return cpu.undefined()
}

func (s *sysregCoprocessor) LoadStore(cpu *ProcessorState, opcode uint32) error {
	return cpu.undefined()
}

func (s *sysregCoprocessor) MCR(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	crn := (opcode >> 16) & 0xF
	if crn == 0 {
		return nil // MIDR is read-only; ignore writes rather than trap
	}
	s.regs[sysregKey(opcode)] = cpu.ReadA32(rd)
	return nil
}

func (s *sysregCoprocessor) MRC(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	cpu.WriteA32(rd, s.regs[sysregKey(opcode)])
	return nil
}

func (s *sysregCoprocessor) MCRR(cpu *ProcessorState, opcode uint32) error {
	return cpu.undefined()
}

func (s *sysregCoprocessor) MRRC(cpu *ProcessorState, opcode uint32) error {
	return cpu.undefined()
}
