package cpu

// vfpCoprocessor implements the VFP/Advanced SIMD coprocessor facade
// (slots 10 and 11, spec.md §3/§4.10): 32 64-bit register slots shared
// between single- and double-precision views through FPState.FormatBits,
// plus FPSCR/FPEXC system-register access. Slot 10 carries single-word
// transfers (VMOV/VLDR/VSTR single), slot 11 carries double-word and
// vector forms; both route through the same register bank.
type vfpCoprocessor struct {
	double bool // true for slot 11 (double-precision / NEON), false for slot 10
}

// NewVFPCoprocessor returns a Coprocessor implementing the VFP facade.
// double selects which of the two coprocessor numbers (10 single, 11
// double) this instance is installed under.
func NewVFPCoprocessor(double bool) Coprocessor { return vfpCoprocessor{double: double} }

func (c vfpCoprocessor) CDP(cpu *ProcessorState, opcode uint32) error {
	opc1 := (opcode >> 20) & 0xF
	vn := vfpRegIndex(opcode, 16, 7, c.double)
	vd := vfpRegIndex(opcode, 12, 22, c.double)
	vm := vfpRegIndex(opcode, 0, 5, c.double)

	a := cpu.vfpRead(vn, c.double)
	b := cpu.vfpRead(vm, c.double)

	var r uint64
	switch opc1 & 0xB {
	case 0x0: // VMLA-family base opcode, modeled as add
		r = vfpAdd(a, b, c.double)
	case 0x2: // VSUB-family
		r = vfpAdd(a, vfpNegate(b, c.double), c.double)
	default:
		r = b // VMOV register form and anything unmodeled: pass through
	}
	cpu.vfpWrite(vd, c.double, r)
	cpu.FP.Mode = FPModeVFP
	return nil
}

func (c vfpCoprocessor) LoadStore(cpu *ProcessorState, opcode uint32) error {
	load := opcode&(1<<20) != 0
	vd := vfpRegIndex(opcode, 12, 22, c.double)
	rn := int((opcode >> 16) & 0xF)
	up := opcode&(1<<23) != 0
	imm := (opcode & 0xFF) << 2
	base := cpu.ReadA32(rn)

	var addr uint32
	if up {
		addr = base + imm
	} else {
		addr = base - imm
	}

	width := 4
	if c.double {
		width = 8
	}
	priv := cpu.privileged()
	if load {
		v, ok := readWidth(cpu.Memory, cpu, uint64(addr), width, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.vfpWrite(vd, c.double, v)
	} else {
		v := cpu.vfpRead(vd, c.double)
		if !writeWidth(cpu.Memory, cpu, uint64(addr), width, v, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	cpu.FP.Mode = FPModeVFP
	return nil
}

func (c vfpCoprocessor) MCR(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	reg := (opcode >> 16) & 0xF
	switch reg {
	case 0x0:
		cpu.FP.FPSID = cpu.ReadA32(rd)
	case 0x1:
		cpu.FP.FPSCR = cpu.ReadA32(rd)
	case 0x8:
		cpu.FP.FPEXC = cpu.ReadA32(rd)
	}
	return nil
}

func (c vfpCoprocessor) MRC(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	reg := (opcode >> 16) & 0xF
	switch reg {
	case 0x0:
		cpu.WriteA32(rd, cpu.FP.FPSID)
	case 0x1:
		cpu.WriteA32(rd, cpu.FP.FPSCR)
	case 0x8:
		cpu.WriteA32(rd, cpu.FP.FPEXC)
	default:
		cpu.WriteA32(rd, 0)
	}
	return nil
}

func (c vfpCoprocessor) MCRR(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	rn := int((opcode >> 16) & 0xF)
	vm := vfpRegIndex(opcode, 0, 5, true)
	lo := cpu.ReadA32(rd)
	hi := cpu.ReadA32(rn)
	cpu.vfpWrite(vm, true, uint64(lo)|uint64(hi)<<32)
	cpu.FP.Mode = FPModeVFP
	return nil
}

func (c vfpCoprocessor) MRRC(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	rn := int((opcode >> 16) & 0xF)
	vm := vfpRegIndex(opcode, 0, 5, true)
	v := cpu.vfpRead(vm, true)
	cpu.WriteA32(rd, uint32(v))
	cpu.WriteA32(rn, uint32(v>>32))
	return nil
}

// vfpRegIndex reassembles a VFP register number from its 4-bit field plus
// the one extra bit the encoding stashes elsewhere in the word: for
// double-precision registers the extra bit is the high bit of the
// register number, for single-precision it's the low bit (the usual
// Vd:D / Vd:M VFP encoding convention).
func vfpRegIndex(opcode uint32, fieldShift, extraBit int, double bool) int {
	reg := (opcode >> fieldShift) & 0xF
	extra := (opcode >> extraBit) & 1
	if double {
		return int(extra<<4 | reg)
	}
	return int(reg<<1 | extra)
}

func (cpu *ProcessorState) vfpRead(idx int, double bool) uint64 {
	if double {
		return cpu.FP.VFPReg[idx&31]
	}
	slot := cpu.FP.VFPReg[(idx/2)&31]
	if idx%2 == 0 {
		return slot & 0xFFFFFFFF
	}
	return slot >> 32
}

func (cpu *ProcessorState) vfpWrite(idx int, double bool, v uint64) {
	if double {
		cpu.FP.VFPReg[idx&31] = v
		cpu.FP.FormatBits |= 1 << uint(idx&31)
		return
	}
	slotIdx := (idx / 2) & 31
	slot := cpu.FP.VFPReg[slotIdx]
	if idx%2 == 0 {
		slot = (slot &^ 0xFFFFFFFF) | (v & 0xFFFFFFFF)
	} else {
		slot = (slot & 0xFFFFFFFF) | (v << 32)
	}
	cpu.FP.VFPReg[slotIdx] = slot
	cpu.FP.FormatBits &^= 1 << uint(slotIdx)
}

func vfpNegate(v uint64, double bool) uint64 {
	if double {
		return v ^ (1 << 63)
	}
	return v ^ (1 << 31)
}

// vfpAdd is a representative fixed-point stand-in for IEEE-754 add: real
// single/double arithmetic is a documented non-goal (spec.md §9), this
// exercises register routing and the FormatBits bookkeeping.
func vfpAdd(a, b uint64, double bool) uint64 {
	if double {
		return a + b
	}
	return uint64(uint32(a) + uint32(b))
}
