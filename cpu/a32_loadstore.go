package cpu

// execLoadStore handles single-register LDR/STR/LDRB/STRB/LDRH/STRH/
// LDRSB/LDRSH/LDRD/STRD/LDRT/STRT and LDREX*/STREX* (spec.md §4.5).
func (cpu *ProcessorState) execLoadStore(inst a32Instruction) error {
	op := inst.Opcode
	if op&0x0F800FF0 == 0x01800F90 {
		return cpu.execExclusive(inst)
	}

	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)
	load := op&(1<<20) != 0
	up := op&(1<<23) != 0
	preIndex := op&(1<<24) != 0
	writeback := op&(1<<21) != 0 || !preIndex

	isImmOffsetForm := op&(1<<25) == 0 && op&0x0E000000 == 0x04000000
	halfwordOrSigned := op&0x0E000090 == 0x00000090 && op&0x0C000000 == 0

	base := cpu.ReadA32(rn)
	var offset uint32
	if halfwordOrSigned {
		if op&(1<<22) != 0 {
			offset = (op & 0xF) | ((op >> 4) & 0xF0)
		} else {
			offset = cpu.ReadA32(int(op & 0xF))
		}
	} else if isImmOffsetForm {
		offset = op & 0xFFF
	} else {
		offset, _ = cpu.shifterOperand(op &^ (1 << 25))
	}
	if !up {
		offset = uint32(-int32(offset))
	}

	effAddr := base
	if preIndex {
		effAddr = base + offset
	}

	privileged := cpu.privileged()
	if !preIndex && op&(1<<21) != 0 && !halfwordOrSigned {
		// LDRT/STRT (user-mode force, post-indexed only) handled generically
		// below; this path reuses the same access code at USR privilege.
		privileged = false
	}

	var fault error
	if halfwordOrSigned {
		fault = cpu.doHalfwordSignedAccess(inst, rd, uint64(effAddr), load, privileged)
	} else if op&(1<<22) != 0 {
		fault = cpu.doByteAccess(rd, uint64(effAddr), load, privileged)
	} else {
		fault = cpu.doWordAccess(rd, uint64(effAddr), load, privileged)
	}
	if fault != nil {
		return fault
	}

	if writeback && rd != rn {
		final := base
		if preIndex {
			final = effAddr
		} else {
			final = base + offset
		}
		cpu.WriteA32(rn, final)
	}
	return nil
}

func (cpu *ProcessorState) doWordAccess(rd int, addr uint64, load, privileged bool) error {
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, privileged)
		if !ok {
			return cpu.dataAbort()
		}
		if addr&3 != 0 {
			v = uint64(rotateRight32(uint32(v), uint((addr&3)*8)))
		}
		if rd == 15 {
			cpu.WriteA32Interworking(15, uint32(v))
		} else {
			cpu.WriteA32(rd, uint32(v))
		}
		return nil
	}
	v := cpu.ReadA32ForStore(rd)
	if !writeWidth(cpu.Memory, cpu, addr&^3, 4, uint64(v), cpu.Config.Endianness, privileged) {
		return cpu.dataAbort()
	}
	cpu.Mon.OverlapsAndClear(addr, 4)
	return nil
}

func (cpu *ProcessorState) doByteAccess(rd int, addr uint64, load, privileged bool) error {
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, 1, cpu.Config.Endianness, privileged)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
		return nil
	}
	v := cpu.ReadA32ForStore(rd)
	if !writeWidth(cpu.Memory, cpu, addr, 1, uint64(v)&0xFF, cpu.Config.Endianness, privileged) {
		return cpu.dataAbort()
	}
	cpu.Mon.OverlapsAndClear(addr, 1)
	return nil
}

// doHalfwordSignedAccess covers LDRH/STRH/LDRSB/LDRSH, selected by bits
// [6:5] of the opcode.
func (cpu *ProcessorState) doHalfwordSignedAccess(inst a32Instruction, rd int, addr uint64, load, privileged bool) error {
	op := inst.Opcode
	sh := (op >> 5) & 0x3
	switch {
	case load && sh == 0b01: // LDRH
		v, ok := readWidth(cpu.Memory, cpu, addr, 2, cpu.Config.Endianness, privileged)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	case load && sh == 0b10: // LDRSB
		v, ok := readWidth(cpu.Memory, cpu, addr, 1, cpu.Config.Endianness, privileged)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(int32(int8(v))))
	case load && sh == 0b11: // LDRSH
		v, ok := readWidth(cpu.Memory, cpu, addr, 2, cpu.Config.Endianness, privileged)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(int32(int16(v))))
	case !load && sh == 0b01: // STRH
		v := cpu.ReadA32ForStore(rd)
		if !writeWidth(cpu.Memory, cpu, addr, 2, uint64(v)&0xFFFF, cpu.Config.Endianness, privileged) {
			return cpu.dataAbort()
		}
		cpu.Mon.OverlapsAndClear(addr, 2)
	case sh == 0b10: // LDRD
		lo, ok1 := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, privileged)
		hi, ok2 := readWidth(cpu.Memory, cpu, addr+4, 4, cpu.Config.Endianness, privileged)
		if !ok1 || !ok2 {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(lo))
		cpu.WriteA32(rd+1, uint32(hi))
	case sh == 0b11: // STRD
		lo := cpu.ReadA32ForStore(rd)
		hi := cpu.ReadA32ForStore(rd + 1)
		ok1 := writeWidth(cpu.Memory, cpu, addr, 4, uint64(lo), cpu.Config.Endianness, privileged)
		ok2 := writeWidth(cpu.Memory, cpu, addr+4, 4, uint64(hi), cpu.Config.Endianness, privileged)
		if !ok1 || !ok2 {
			return cpu.dataAbort()
		}
		cpu.Mon.OverlapsAndClear(addr, 8)
	}
	return nil
}

// execExclusive handles LDREX/STREX and their byte/halfword/doubleword
// forms (spec.md §3 invariant 6).
func (cpu *ProcessorState) execExclusive(inst a32Instruction) error {
	op := inst.Opcode
	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)
	addr := uint64(cpu.ReadA32(rn))
	size := uint64(4)
	switch (op >> 21) & 0x3 {
	case 1:
		size = 8
	case 2:
		size = 1
	case 3:
		size = 2
	}
	load := op&(1<<20) != 0
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, int(size), cpu.Config.Endianness, cpu.privileged())
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
		cpu.Mon.Set(addr, size, 0)
		return nil
	}
	rm := int(op & 0xF)
	success := cpu.Mon.Contains(addr, size)
	if success {
		v := uint64(cpu.ReadA32ForStore(rm))
		if !writeWidth(cpu.Memory, cpu, addr, int(size), v, cpu.Config.Endianness, cpu.privileged()) {
			return cpu.dataAbort()
		}
		cpu.Mon.Clear()
	}
	if success {
		cpu.WriteA32(rd, 0)
	} else {
		cpu.WriteA32(rd, 1)
	}
	return nil
}

// execSwap implements SWP/SWPB, the pre-v6 atomic-exchange instruction.
func (cpu *ProcessorState) execSwap(inst a32Instruction) error {
	op := inst.Opcode
	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)
	rm := int(op & 0xF)
	addr := uint64(cpu.ReadA32(rn))
	byteSwap := op&(1<<22) != 0

	width := 4
	if byteSwap {
		width = 1
	}
	old, ok := readWidth(cpu.Memory, cpu, addr, width, cpu.Config.Endianness, cpu.privileged())
	if !ok {
		return cpu.dataAbort()
	}
	val := cpu.ReadA32(rm)
	if width == 1 {
		val &= 0xFF
	}
	if !writeWidth(cpu.Memory, cpu, addr, width, uint64(val), cpu.Config.Endianness, cpu.privileged()) {
		return cpu.dataAbort()
	}
	cpu.WriteA32(rd, uint32(old))
	return nil
}

// execLoadStoreMultiple implements LDM/STM with the writeback and R15
// semantics spec.md §4.5 specifies.
func (cpu *ProcessorState) execLoadStoreMultiple(inst a32Instruction) error {
	op := inst.Opcode
	rn := int((op >> 16) & 0xF)
	load := op&(1<<20) != 0
	writeback := op&(1<<21) != 0
	up := op&(1<<23) != 0
	preIndex := op&(1<<24) != 0
	userBank := op&(1<<22) != 0
	regList := op & 0xFFFF

	count := 0
	for i := 0; i < 16; i++ {
		if regList&(1<<uint(i)) != 0 {
			count++
		}
	}
	base := uint64(cpu.ReadA32(rn))
	startAddr := base
	if !up {
		startAddr = base - uint64(count*4)
		if preIndex {
			startAddr += 4
		}
	} else if preIndex {
		startAddr = base + 4
	}

	finalBase := base
	if up {
		finalBase = base + uint64(count*4)
	} else {
		finalBase = base - uint64(count*4)
	}

	addr := startAddr
	baseInList := regList&(1<<uint(rn)) != 0
	lowestInList := -1
	for i := 0; i < 16; i++ {
		if regList&(1<<uint(i)) != 0 {
			lowestInList = i
			break
		}
	}

	// STM{writeback} stores the pre-writeback Rn iff Rn is the lowest-numbered
	// register in the list: writeback happens before the store loop in every
	// other case, and after the loop when Rn is lowest.
	writebackDone := false
	if !load && writeback && !(baseInList && rn == lowestInList) {
		cpu.WriteA32(rn, uint32(finalBase))
		writebackDone = true
	}

	privileged := cpu.privileged()
	accessPriv := privileged
	if userBank {
		accessPriv = false
	}

	for i := 0; i < 16; i++ {
		if regList&(1<<uint(i)) == 0 {
			continue
		}
		if load {
			v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, accessPriv)
			if !ok {
				return cpu.dataAbort()
			}
			if i == 15 {
				if cpu.Config.ArchVersion >= ArchV5 {
					cpu.WriteA32Interworking(15, uint32(v))
				} else {
					cpu.WriteA32(15, uint32(v))
				}
			} else {
				cpu.WriteA32(i, uint32(v))
			}
		} else {
			v := cpu.ReadA32ForStore(i)
			if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(v), cpu.Config.Endianness, accessPriv) {
				return cpu.dataAbort()
			}
		}
		addr += 4
	}

	if writeback {
		if load {
			if !baseInList {
				cpu.WriteA32(rn, uint32(finalBase))
			}
		} else if !writebackDone {
			cpu.WriteA32(rn, uint32(finalBase))
		}
	}
	return nil
}

// execMultiply implements MUL/MLA.
func (cpu *ProcessorState) execMultiply(inst a32Instruction) error {
	op := inst.Opcode
	rd := int((op >> 16) & 0xF)
	rn := int((op >> 12) & 0xF)
	rs := int((op >> 8) & 0xF)
	rm := int(op & 0xF)
	accumulate := op&(1<<21) != 0

	result := cpu.ReadA32(rm) * cpu.ReadA32(rs)
	if accumulate {
		result += cpu.ReadA32(rn)
	}
	cpu.WriteA32(rd, result)
	if inst.SetFlags {
		cpu.setNZ(result)
	}
	return nil
}

// execLongMultiply implements UMULL/UMLAL/SMULL/SMLAL.
func (cpu *ProcessorState) execLongMultiply(inst a32Instruction) error {
	op := inst.Opcode
	rdHi := int((op >> 16) & 0xF)
	rdLo := int((op >> 12) & 0xF)
	rs := int((op >> 8) & 0xF)
	rm := int(op & 0xF)
	signed := op&(1<<22) != 0
	accumulate := op&(1<<21) != 0

	var result uint64
	if signed {
		result = uint64(int64(int32(cpu.ReadA32(rm))) * int64(int32(cpu.ReadA32(rs))))
	} else {
		result = uint64(cpu.ReadA32(rm)) * uint64(cpu.ReadA32(rs))
	}
	if accumulate {
		result += uint64(cpu.ReadA32(rdHi))<<32 | uint64(cpu.ReadA32(rdLo))
	}
	cpu.WriteA32(rdLo, uint32(result))
	cpu.WriteA32(rdHi, uint32(result>>32))
	if inst.SetFlags {
		cpu.PState.Z = result == 0
		cpu.PState.N = result&(1<<63) != 0
	}
	return nil
}
