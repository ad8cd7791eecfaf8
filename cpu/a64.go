package cpu

// stepA64 fetches one fixed-width A64 instruction and dispatches on the
// top-level bits of the encoding map (spec.md §4.7).
func (cpu *ProcessorState) stepA64() error {
	opcode, err := cpu.fetch()
	if err != nil {
		return err
	}

	op0 := (opcode >> 25) & 0xF

	switch {
	case op0&0b1110 == 0b1000 || op0&0b1110 == 0b1001: // data processing - immediate
		return cpu.execA64DPImm(opcode)
	case op0&0b1110 == 0b1010 || op0&0b1110 == 0b1011: // branch / exception / system
		return cpu.execA64BranchSystem(opcode)
	case op0&0b0101 == 0b0100: // loads and stores
		return cpu.execA64LoadStore(opcode)
	case op0&0b0111 == 0b0101: // data processing - register
		return cpu.execA64DPReg(opcode)
	case op0&0b0111 == 0b0111: // data processing - SIMD/FP (not implemented)
		return cpu.undefined()
	default:
		return cpu.undefined()
	}
}

// a64BitmaskImm decodes the N:immr:imms bitmask-immediate encoding shared
// by AND/ORR/EOR/ANDS (immediate) and the BFM/SBFM/UBFM family, grounded on
// the replication-period algorithm in original_source/emu.c
// (a64_get_bitmask32/64).
func a64BitmaskImm(n, immr, imms uint32, width int) uint64 {
	len := 6
	if n == 0 {
		for i := 5; i >= 0; i-- {
			if imms&(1<<uint(i)) == 0 {
				len = i
				break
			}
		}
	}
	if len == 0 {
		return 0
	}
	esize := 1 << uint(len)
	levels := uint32(esize - 1)
	s := imms & levels
	r := immr & levels

	var elem uint64
	if s == levels {
		elem = (uint64(1) << uint(esize)) - 1
	} else {
		elem = (uint64(1) << (s + 1)) - 1
	}
	elem = rotateRightN(elem, uint(r), esize)

	result := uint64(0)
	for i := 0; i < width; i += esize {
		result |= elem << uint(i)
	}
	if width < 64 {
		result &= (uint64(1) << uint(width)) - 1
	}
	return result
}

func rotateRightN(v uint64, amount uint, width int) uint64 {
	amount %= uint(width)
	if amount == 0 {
		return v
	}
	mask := uint64(1)<<uint(width) - 1
	v &= mask
	return ((v >> amount) | (v << (uint(width) - amount))) & mask
}

// execA64DPImm implements the common immediate data-processing forms: PC
// relative addressing (ADR/ADRP), add/subtract immediate, logical
// immediate (reusing a64BitmaskImm), and move-wide immediate.
func (cpu *ProcessorState) execA64DPImm(opcode uint32) error {
	group := (opcode >> 23) & 0x7
	sf := opcode&(1<<31) != 0
	width := 32
	if sf {
		width = 64
	}
	rd := int(opcode & 0x1F)

	switch group {
	case 0b000, 0b001: // PC-relative: ADR/ADRP
		page := opcode&(1<<31) != 0
		immlo := uint64((opcode >> 29) & 0x3)
		immhi := uint64((opcode >> 5) & 0x7FFFF)
		imm := (immhi << 2) | immlo
		imm = signExtend(imm, 21)
		base := cpu.Regs.PC
		if page {
			base &^= 0xFFF
			imm <<= 12
		}
		cpu.WriteA64_64(rd, base+imm, true)
		return nil
	case 0b010, 0b011: // add/subtract immediate
		op := opcode&(1<<30) != 0 // 1 = SUB
		setFlags := opcode&(1<<29) != 0
		shift12 := opcode&(1<<22) != 0
		imm := uint64((opcode >> 10) & 0xFFF)
		if shift12 {
			imm <<= 12
		}
		rn := int((opcode >> 5) & 0x1F)
		a := cpu.ReadA64_64(rn, false)
		var result uint64
		var carry, overflow bool
		if op {
			result, carry, overflow = subWithFlags64(a, imm, width)
		} else {
			result, carry, overflow = addWithFlags64(a, imm, false, width)
		}
		suppressSP := setFlags
		if width == 32 {
			result &= 0xFFFFFFFF
		}
		cpu.WriteA64_64(rd, result, suppressSP)
		if setFlags {
			cpu.setNZ64(result, width)
			cpu.PState.C = carry
			cpu.PState.V = overflow
		}
		return nil
	case 0b100: // logical immediate
		n := (opcode >> 22) & 1
		immr := (opcode >> 16) & 0x3F
		imms := (opcode >> 10) & 0x3F
		rn := int((opcode >> 5) & 0x1F)
		kind := (opcode >> 29) & 0x3
		imm := a64BitmaskImm(n, immr, imms, width)
		a := cpu.ReadA64_64(rn, true)
		var result uint64
		switch kind {
		case 0: // AND
			result = a & imm
		case 1: // ORR
			result = a | imm
		case 2: // EOR
			result = a ^ imm
		case 3: // ANDS
			result = a & imm
			cpu.setNZ64(result, width)
			cpu.PState.C, cpu.PState.V = false, false
		}
		suppressSP := kind != 1 // ORR with Rn=11111 allows MOV to SP; others suppress
		cpu.WriteA64_64(rd, result, suppressSP)
		return nil
	case 0b101: // move wide immediate: MOVN/MOVZ/MOVK
		kind := (opcode >> 29) & 0x3
		hw := (opcode >> 21) & 0x3
		imm16 := uint64((opcode >> 5) & 0xFFFF)
		shift := uint(hw) * 16
		imm := imm16 << shift
		switch kind {
		case 0b00: // MOVN
			result := ^imm
			if width == 32 {
				result &= 0xFFFFFFFF
			}
			cpu.WriteA64_64(rd, result, true)
		case 0b10: // MOVZ
			cpu.WriteA64_64(rd, imm, true)
		case 0b11: // MOVK
			cur := cpu.ReadA64_64(rd, true)
			mask := uint64(0xFFFF) << shift
			cpu.WriteA64_64(rd, (cur&^mask)|imm, true)
		default:
			return cpu.undefined()
		}
		return nil
	case 0b110: // bitfield: SBFM/BFM/UBFM, sharing a64BitmaskImm's kernel
		kind := (opcode >> 29) & 0x3
		n := (opcode >> 22) & 1
		immr := (opcode >> 16) & 0x3F
		imms := (opcode >> 10) & 0x3F
		rn := int((opcode >> 5) & 0x1F)
		src := cpu.ReadA64_64(rn, true)
		mask := a64BitmaskImm(n, immr, imms, width)
		rotated := rotateRightN(src, uint(immr), width)
		bits := rotated & mask

		var result uint64
		switch kind {
		case 0b00: // SBFM
			topBit := (imms - immr) & uint32(width-1)
			result = maskWidth(signExtend(bits, int(topBit)+1), width)
		case 0b01: // BFM: merge into existing Rd
			dst := cpu.ReadA64_64(rd, true)
			result = (dst &^ mask) | bits
		case 0b10: // UBFM
			result = bits
		default:
			return cpu.undefined()
		}
		cpu.WriteA64_64(rd, result, true)
		return nil
	}
	return cpu.undefined()
}

func signExtend(v uint64, bits int) uint64 {
	shift := 64 - bits
	return uint64(int64(v<<uint(shift)) >> uint(shift))
}

func (cpu *ProcessorState) setNZ64(v uint64, width int) {
	if width == 32 {
		cpu.PState.N = v&(1<<31) != 0
		cpu.PState.Z = uint32(v) == 0
	} else {
		cpu.PState.N = v&(1<<63) != 0
		cpu.PState.Z = v == 0
	}
}

func addWithFlags64(a, b uint64, carryIn bool, width int) (result uint64, carry, overflow bool) {
	var cin uint64
	if carryIn {
		cin = 1
	}
	if width == 32 {
		a32, b32 := uint32(a), uint32(b)
		sum := uint64(a32) + uint64(b32) + cin
		result = sum & 0xFFFFFFFF
		carry = sum > 0xFFFFFFFF
		sa, sb, sr := int32(a32), int32(b32), int32(result)
		overflow = (sa >= 0) == (sb >= 0) && (sr >= 0) != (sa >= 0)
		return
	}
	sum := a + b + cin
	carry = sum < a || (cin == 1 && sum == a)
	sa, sb, sr := int64(a), int64(b), int64(sum)
	overflow = (sa >= 0) == (sb >= 0) && (sr >= 0) != (sa >= 0)
	return sum, carry, overflow
}

func subWithFlags64(a, b uint64, width int) (result uint64, carry, overflow bool) {
	return addWithFlags64(a, ^b, true, width)
}

// execA64DPReg implements the common register data-processing forms:
// logical (shifted register), add/subtract (shifted register), conditional
// select, and the 2-source shifts LSLV/LSRV/ASRV/RORV. The extended-register
// and 1-source forms are not decoded and trap as Undefined.
func (cpu *ProcessorState) execA64DPReg(opcode uint32) error {
	sf := opcode&(1<<31) != 0
	width := 32
	if sf {
		width = 64
	}
	rd := int(opcode & 0x1F)
	rn := int((opcode >> 5) & 0x1F)
	rm := int((opcode >> 16) & 0x1F)

	switch {
	case opcode&0x1F000000 == 0x0A000000: // logical shifted register
		shiftType := (opcode >> 22) & 0x3
		amount := uint((opcode >> 10) & 0x3F)
		invert := opcode&(1<<21) != 0
		kind := (opcode >> 29) & 0x3
		a := cpu.ReadA64_64(rn, true)
		b := cpu.ReadA64_64(rm, true)
		b = a64ShiftReg(b, shiftType, amount, width)
		if invert {
			b = ^b
		}
		var result uint64
		switch kind {
		case 0:
			result = a & b
		case 1:
			result = a | b
		case 2:
			result = a ^ b
		case 3:
			result = a & b
			cpu.setNZ64(result, width)
			cpu.PState.C, cpu.PState.V = false, false
		}
		if width == 32 {
			result &= 0xFFFFFFFF
		}
		cpu.WriteA64_64(rd, result, true)
		return nil
	case opcode&0x1F200000 == 0x0B000000: // add/subtract shifted register
		op := opcode&(1<<30) != 0
		setFlags := opcode&(1<<29) != 0
		shiftType := (opcode >> 22) & 0x3
		amount := uint((opcode >> 10) & 0x3F)
		a := cpu.ReadA64_64(rn, true)
		b := a64ShiftReg(cpu.ReadA64_64(rm, true), shiftType, amount, width)
		var result uint64
		var carry, overflow bool
		if op {
			result, carry, overflow = subWithFlags64(a, b, width)
		} else {
			result, carry, overflow = addWithFlags64(a, b, false, width)
		}
		if width == 32 {
			result &= 0xFFFFFFFF
		}
		cpu.WriteA64_64(rd, result, true)
		if setFlags {
			cpu.setNZ64(result, width)
			cpu.PState.C, cpu.PState.V = carry, overflow
		}
		return nil
	case opcode&0x1FE00000 == 0x1A800000: // conditional select family (CSEL/CSINC/CSINV/CSNEG)
		cond := ConditionCode((opcode >> 12) & 0xF)
		op2 := (opcode >> 10) & 0x3
		a := cpu.ReadA64_64(rn, true)
		b := cpu.ReadA64_64(rm, true)
		var result uint64
		if cond.Evaluate(&cpu.PState) {
			result = a
		} else {
			switch op2 {
			case 0b00:
				result = b
			case 0b01:
				result = b + 1
			case 0b10:
				result = ^b
			case 0b11:
				result = (^b) + 1
			}
		}
		if width == 32 {
			result &= 0xFFFFFFFF
		}
		cpu.WriteA64_64(rd, result, true)
		return nil
	case opcode&0x1FE0F000 == 0x1AC02000: // LSLV/LSRV/ASRV/RORV (data-processing, 2 source, shift ops)
		op2 := (opcode >> 10) & 0xF
		a := cpu.ReadA64_64(rn, true)
		shiftAmount := uint(cpu.ReadA64_64(rm, true)) % uint(width)
		var result uint64
		switch op2 {
		case 0x8: // LSLV
			result = a << shiftAmount
		case 0x9: // LSRV
			result = maskWidth(a, width) >> shiftAmount
		case 0xA: // ASRV
			if width == 32 {
				result = uint64(uint32(int32(uint32(a)) >> shiftAmount))
			} else {
				result = uint64(int64(a) >> shiftAmount)
			}
		case 0xB: // RORV
			result = rotateRightN(a, shiftAmount, width)
		}
		if width == 32 {
			result &= 0xFFFFFFFF
		}
		cpu.WriteA64_64(rd, result, true)
		return nil
	default:
		return cpu.undefined()
	}
}

func maskWidth(v uint64, width int) uint64 {
	if width == 32 {
		return v & 0xFFFFFFFF
	}
	return v
}

func a64ShiftReg(v uint64, shiftType uint32, amount uint, width int) uint64 {
	switch shiftType {
	case 0: // LSL
		r := v << amount
		if width == 32 {
			r &= 0xFFFFFFFF
		}
		return r
	case 1: // LSR
		return maskWidth(v, width) >> amount
	case 2: // ASR
		if width == 32 {
			return uint64(uint32(int32(uint32(v)) >> amount))
		}
		return uint64(int64(v) >> amount)
	case 3: // ROR
		return rotateRightN(v, amount, width)
	}
	return v
}

// execA64BranchSystem implements unconditional/conditional branch, branch
// with link, branch-to-register (BR/BLR/RET), SVC/HVC/SMC, and MRS/MSR
// (system-register) access (spec.md §4.7).
func (cpu *ProcessorState) execA64BranchSystem(opcode uint32) error {
	switch {
	case opcode&0xFC000000 == 0x14000000: // B
		imm := signExtend(uint64(opcode&0x03FFFFFF), 26) << 2
		cpu.Regs.PC = cpu.oldPC + imm
		return nil
	case opcode&0xFC000000 == 0x94000000: // BL
		imm := signExtend(uint64(opcode&0x03FFFFFF), 26) << 2
		cpu.WriteA64_64(30, cpu.oldPC+4, true)
		cpu.Regs.PC = cpu.oldPC + imm
		return nil
	case opcode&0xFF000010 == 0x54000000: // B.cond
		cond := ConditionCode(opcode & 0xF)
		imm := signExtend(uint64((opcode>>5)&0x7FFFF), 19) << 2
		if cond.Evaluate(&cpu.PState) {
			cpu.Regs.PC = cpu.oldPC + imm
		}
		return nil
	case opcode&0xFFFFFC1F == 0xD61F0000: // BR
		rn := int((opcode >> 5) & 0x1F)
		cpu.Regs.PC = cpu.ReadA64_64(rn, true)
		return nil
	case opcode&0xFFFFFC1F == 0xD63F0000: // BLR
		rn := int((opcode >> 5) & 0x1F)
		target := cpu.ReadA64_64(rn, true)
		cpu.WriteA64_64(30, cpu.oldPC+4, true)
		cpu.Regs.PC = target
		return nil
	case opcode&0xFFFFFC1F == 0xD65F0000: // RET
		rn := int((opcode >> 5) & 0x1F)
		cpu.Regs.PC = cpu.ReadA64_64(rn, true)
		return nil
	case opcode == 0xD4000001: // SVC #0
		return cpu.svc()
	case opcode&0xFFE0001F == 0xD4000002: // HVC
		return cpu.hvc()
	case opcode&0xFFE0001F == 0xD4000003: // SMC
		return cpu.smc()
	case opcode == 0xD503201F: // NOP
		return nil
	case opcode&0xFFF00000 == 0xD5100000 || opcode&0xFFF00000 == 0xD5300000: // MSR/MRS (system register), approximate
		return cpu.execA64SystemReg(opcode)
	case opcode&0xFFFFFC00 == 0xD5033F00: // ERET family placeholder
		return cpu.undefined()
	default:
		return cpu.undefined()
	}
}

// execA64SystemReg implements a representative MRS/MSR subset for the
// named-field PSTATE accesses NZCV and SPSel; every other system register
// reads as zero and ignores writes.
func (cpu *ProcessorState) execA64SystemReg(opcode uint32) error {
	read := opcode&(1<<21) != 0
	rt := int(opcode & 0x1F)
	op0 := (opcode >> 19) & 0x3
	op1 := (opcode >> 16) & 0x7
	crn := (opcode >> 12) & 0xF
	crm := (opcode >> 8) & 0xF
	op2 := (opcode >> 5) & 0x7

	isNZCV := op0 == 0b11 && op1 == 0b011 && crn == 0b0100 && crm == 0b0010 && op2 == 0b000
	isSPSel := op0 == 0b11 && op1 == 0b000 && crn == 0b0100 && crm == 0b0010 && op2 == 0b000

	switch {
	case isNZCV:
		if read {
			cpu.WriteA64_64(rt, uint64(cpu.packPSTATEA64())&0xF0000000, true)
		} else {
			v := uint32(cpu.ReadA64_64(rt, true))
			cpu.PState.N = v&(1<<31) != 0
			cpu.PState.Z = v&(1<<30) != 0
			cpu.PState.C = v&(1<<29) != 0
			cpu.PState.V = v&(1<<28) != 0
		}
		return nil
	case isSPSel:
		if read {
			var v uint64
			if cpu.PState.SPSel {
				v = 1
			}
			cpu.WriteA64_64(rt, v, true)
		} else {
			cpu.PState.SPSel = cpu.ReadA64_64(rt, true)&1 != 0
		}
		return nil
	default:
		// Coprocessor/system-register space not modeled beyond PSTATE
		// fields; treat as a no-op read of zero / discarded write rather
		// than faulting, since full AArch64 system-register coverage is a
		// documented non-goal.
		if read {
			cpu.WriteA64_64(rt, 0, true)
		}
		return nil
	}
}

// execA64LoadStore implements the common LDR/STR (unsigned immediate) and
// LDP/STP (pair, pre/post/signed-offset) forms (spec.md §4.7).
func (cpu *ProcessorState) execA64LoadStore(opcode uint32) error {
	switch {
	case opcode&0x3FC00000 == 0x39000000 || opcode&0x3FC00000 == 0x39400000: // LDR/STR unsigned imm
		return cpu.a64LoadStoreUnsignedImm(opcode)
	case opcode&0x3E000000 == 0x28000000: // LDP/STP
		return cpu.a64LoadStorePair(opcode)
	default:
		return cpu.undefined()
	}
}

func (cpu *ProcessorState) a64LoadStoreUnsignedImm(opcode uint32) error {
	size := (opcode >> 30) & 0x3
	load := opcode&(1<<22) != 0
	imm12 := uint64((opcode >> 10) & 0xFFF)
	rn := int((opcode >> 5) & 0x1F)
	rt := int(opcode & 0x1F)

	width := 1 << size
	addr := cpu.ReadA64_64(rn, false) + imm12*uint64(width)
	priv := cpu.privileged()

	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, width, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		if width == 8 {
			cpu.WriteA64_64(rt, v, true)
		} else {
			cpu.WriteA64_32(rt, uint32(v), true)
		}
	} else {
		v := cpu.ReadA64_64(rt, true)
		if !writeWidth(cpu.Memory, cpu, addr, width, v, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	return nil
}

func (cpu *ProcessorState) a64LoadStorePair(opcode uint32) error {
	opc := (opcode >> 30) & 0x3
	load := opcode&(1<<22) != 0
	imm7 := signExtend(uint64((opcode>>15)&0x7F), 7)
	rt2 := int((opcode >> 10) & 0x1F)
	rn := int((opcode >> 5) & 0x1F)
	rt := int(opcode & 0x1F)
	indexMode := (opcode >> 23) & 0x3 // 01 post, 10 offset, 11 pre

	width := 4
	if opc == 0b10 {
		width = 8
	}
	scaled := imm7 * uint64(width)

	base := cpu.ReadA64_64(rn, false)
	addr := base
	if indexMode == 0b11 || indexMode == 0b10 {
		addr = base + scaled
	}
	priv := cpu.privileged()

	if load {
		v1, ok1 := readWidth(cpu.Memory, cpu, addr, width, cpu.Config.Endianness, priv)
		v2, ok2 := readWidth(cpu.Memory, cpu, addr+uint64(width), width, cpu.Config.Endianness, priv)
		if !ok1 || !ok2 {
			return cpu.dataAbort()
		}
		if width == 8 {
			cpu.WriteA64_64(rt, v1, true)
			cpu.WriteA64_64(rt2, v2, true)
		} else {
			cpu.WriteA64_32(rt, uint32(v1), true)
			cpu.WriteA64_32(rt2, uint32(v2), true)
		}
	} else {
		v1 := cpu.ReadA64_64(rt, true)
		v2 := cpu.ReadA64_64(rt2, true)
		if !writeWidth(cpu.Memory, cpu, addr, width, v1, cpu.Config.Endianness, priv) ||
			!writeWidth(cpu.Memory, cpu, addr+uint64(width), width, v2, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}

	if indexMode == 0b11 || indexMode == 0b01 { // pre or post indexed: write back
		if indexMode == 0b01 {
			cpu.WriteA64_64(rn, base+scaled, false)
		} else {
			cpu.WriteA64_64(rn, addr, false)
		}
	}
	return nil
}
