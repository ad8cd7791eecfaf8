package cpu

// execBranch implements B/BL/BLX(immediate).
func (cpu *ProcessorState) execBranch(inst a32Instruction) error {
	op := inst.Opcode
	link := op&(1<<24) != 0
	isBLXImmediate := inst.Cond == CondNV

	offset := int32(op&0xFFFFFF) << 8 >> 6 // sign-extend 24-bit, *4
	var target uint64
	pcVal := uint64(cpu.ReadA32(15))
	if isBLXImmediate {
		if op&(1<<24) != 0 {
			offset |= 2
		}
		target = pcVal + uint64(int64(offset))
	} else {
		target = pcVal + uint64(int64(offset))
	}

	if link || isBLXImmediate {
		*cpu.physGPR(14) = cpu.Regs.PC
	}
	if isBLXImmediate {
		cpu.PState.T = true
		cpu.PState.ThumbEE = false
		cpu.Regs.PC = target &^ 1
	} else {
		cpu.WriteA32(15, uint32(target))
	}
	return nil
}

// execBranchExchange implements BX/BLX(register)/BXJ.
func (cpu *ProcessorState) execBranchExchange(inst a32Instruction) error {
	op := inst.Opcode
	rm := int(op & 0xF)
	low8 := op & 0xF0
	if low8 == 0x20 {
		return cpu.execBXJ(rm)
	}
	link := low8 == 0x30
	value := cpu.ReadA32(rm)

	if link {
		*cpu.physGPR(14) = cpu.Regs.PC
	}
	cpu.WriteA32Interworking(15, value)
	return nil
}

// execBXJ attempts to enter Jazelle; if the configured Jazelle level is
// TRIVIAL the instruction falls through to its A32 fallback address
// (spec.md §4.5).
func (cpu *ProcessorState) execBXJ(rm int) error {
	if cpu.Config.JazelleLevel == JazelleNone {
		return cpu.undefined()
	}
	addr := cpu.ReadA32(rm)
	if cpu.Config.JazelleLevel == JazelleTrivial {
		*cpu.physGPR(14) = cpu.Regs.PC
		cpu.WriteA32(15, addr)
		return nil
	}
	cpu.SetISA(ISAJazelle)
	cpu.Regs.PC = uint64(addr)
	cpu.jazelleEntry(addr)
	return nil
}

// execPSRTransfer implements MRS and MSR (register/immediate) for CPSR and
// SPSR.
func (cpu *ProcessorState) execPSRTransfer(inst a32Instruction) error {
	op := inst.Opcode
	useSPSR := op&(1<<22) != 0

	if op&0x0FBF0FFF == 0x010F0000 { // MRS
		rd := int((op >> 12) & 0xF)
		if useSPSR {
			cpu.WriteA32(rd, cpu.GetSPSR())
		} else {
			cpu.WriteA32(rd, cpu.GetCPSR())
		}
		return nil
	}

	var mask uint32
	if op&(1<<16) != 0 {
		mask |= 0x000000FF
	}
	if op&(1<<17) != 0 {
		mask |= 0x0000FF00
	}
	if op&(1<<18) != 0 {
		mask |= 0x00FF0000
	}
	if op&(1<<19) != 0 {
		mask |= 0xFF000000
	}
	if !cpu.privileged() {
		mask &= 0xFF000000 // unprivileged MSR may only touch the flags byte
	}

	var val uint32
	if op&(1<<25) != 0 { // immediate form
		imm := op & 0xFF
		rot := ((op >> 8) & 0xF) * 2
		val = rotateRight32(imm, uint(rot))
	} else {
		val = cpu.ReadA32(int(op & 0xF))
	}

	if useSPSR {
		cpu.SetSPSR(val, mask)
	} else {
		cpu.SetCPSR(val, mask)
	}
	return nil
}

// execCoprocessor dispatches CDP/LDC/STC/MCR/MRC/MCRR/MRRC to the
// 16-entry coprocessor table (spec.md §4.10).
func (cpu *ProcessorState) execCoprocessor(inst a32Instruction) error {
	op := inst.Opcode
	cpNum := int((op >> 8) & 0xF)
	cp := cpu.Coprocessors[cpNum]
	if cp == nil {
		return cpu.undefined()
	}

	switch {
	case op&0x0F000010 == 0x0E000000 && op&(1<<4) == 0: // CDP
		return cp.CDP(cpu, op)
	case op&0x0C000000 == 0x0C000000 && op&0x0F000010 != 0x0E000000 && op&(1<<4) == 0 && op&0x02000000 == 0 && op&0x0FE00000 != 0x0C400000:
		return cp.LoadStore(cpu, op)
	case op&0x0F100010 == 0x0E100010: // MRC
		return cp.MRC(cpu, op)
	case op&0x0F100010 == 0x0E000010: // MCR
		return cp.MCR(cpu, op)
	case op&0x0FF00000 == 0x0C500000: // MRRC
		return cp.MRRC(cpu, op)
	case op&0x0FF00000 == 0x0C400000: // MCRR
		return cp.MCRR(cpu, op)
	default:
		return cp.LoadStore(cpu, op)
	}
}
