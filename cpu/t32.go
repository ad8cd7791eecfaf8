package cpu

// stepT32 fetches one Thumb halfword, advances the IT-state machine, and
// executes the instruction if its derived condition passes (spec.md §4.6).
func (cpu *ProcessorState) stepT32() error {
	h1, err := cpu.fetch()
	if err != nil {
		return err
	}
	first := uint16(h1)

	cond, itActive := cpu.itCondition()

	if first == 0xBF00 || (first&0xFF00) == 0xBF00 && first&0x0F != 0 {
		// 16-bit IT instruction: BF xx with mask != 0. ITSTATE takes the
		// encoded cond:mask directly; it is not pre-advanced, since the
		// first instruction in the block always runs under firstcond.
		if first&0x0F != 0 {
			cpu.PState.ITState = byte(first & 0xFF)
			return nil
		}
	}

	var second uint16
	is32 := is32BitThumb(first)
	if is32 {
		second, err = cpu.fetchSecondThumbHalfword()
		if err != nil {
			return err
		}
	}

	if itActive && !cond.Evaluate(&cpu.PState) {
		cpu.advanceIT()
		return nil
	}

	var execErr error
	if is32 {
		execErr = cpu.execThumb2(first, second)
	} else {
		execErr = cpu.execThumb16(first)
	}
	cpu.advanceIT()
	return execErr
}

// itCondition returns the effective condition for the instruction about to
// execute and whether an IT block is currently active, per spec.md §4.6:
// cond ^ ((mask>>3)&1), using the top nibble of the stored state as cond.
func (cpu *ProcessorState) itCondition() (ConditionCode, bool) {
	state := cpu.PState.ITState
	mask := state & 0x0F
	if mask == 0 {
		return CondAL, false
	}
	baseCond := ConditionCode(state >> 4)
	bit := (mask >> 3) & 1
	return ConditionCode(uint8(baseCond) ^ bit), true
}

// advanceIT shifts the IT-state mask left per spec.md §4.6, terminating
// the block once the low nibble reaches 0x8 or 0x0. An exception vectored
// mid-block zeroes the state elsewhere (in a32Exception/a64Exception).
func (cpu *ProcessorState) advanceIT() {
	state := cpu.PState.ITState
	mask := state & 0x0F
	if mask == 0 {
		return
	}
	mask = (mask << 1) & 0x0F
	if mask == 0x8 || mask == 0x0 {
		cpu.PState.ITState = 0
		return
	}
	cpu.PState.ITState = (state & 0xF0) | mask
}

// teeCheckBase implements ThumbEE's null-pointer check: if the effective
// base register is 0, branch to handler_base - 4 (spec.md §4.6).
func (cpu *ProcessorState) teeCheckBase(reg int) error {
	if cpu.PState.CurrentISA() != ISAThumbEE {
		return nil
	}
	if cpu.ReadA32(reg) != 0 {
		return nil
	}
	cpu.Regs.PC = cpu.Sys.TEEHBR - 4
	return newTrap(ResultThumbEENullptr)
}

// teeCheckBounds implements ThumbEE's array-bounds check: traps to
// handler_base - 8 (spec.md §4.6).
func (cpu *ProcessorState) teeCheckBounds(index, limit uint32) error {
	if cpu.PState.CurrentISA() != ISAThumbEE {
		return nil
	}
	if index < limit {
		return nil
	}
	cpu.Regs.PC = cpu.Sys.TEEHBR - 8
	return newTrap(ResultThumbEEOutOfBounds)
}

// execThumb16 implements the common 16-bit Thumb encodings: shift/add/
// sub/move immediate, data-processing register, special data processing
// (high-register ADD/CMP/MOV, BX/BLX), PC-relative load, load/store
// register offset and immediate offset, SP-relative load/store, load
// address, adjust SP, push/pop, miscellaneous (SXT*/UXT*, CBZ/CBNZ, hint), and
// conditional/unconditional branch.
func (cpu *ProcessorState) execThumb16(h uint16) error {
	switch {
	case h>>13 == 0b000 && (h>>11)&0x3 != 0b11: // LSL/LSR/ASR immediate
		return cpu.thumbShiftImm(h)
	case h>>11 == 0b00011: // ADD/SUB register or immediate (3-bit)
		return cpu.thumbAddSub3(h)
	case h>>13 == 0b001: // MOV/CMP/ADD/SUB immediate (8-bit, Rd in [10:8])
		return cpu.thumbImm8(h)
	case h>>10 == 0b010000: // ALU operations
		return cpu.thumbALU(h)
	case h>>10 == 0b010001: // special data processing / BX / BLX
		return cpu.thumbSpecialDP(h)
	case h>>11 == 0b01001: // LDR (PC-relative literal)
		rd := int((h >> 8) & 0x7)
		imm := uint32(h&0xFF) * 4
		base := (cpu.ReadA32(15)) &^ 3
		v, ok := readWidth(cpu.Memory, cpu, uint64(base+imm), 4, cpu.Config.Endianness, cpu.privileged())
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
		return nil
	case h>>12 == 0b0101: // load/store register offset
		return cpu.thumbLoadStoreReg(h)
	case h>>13 == 0b011: // load/store word/byte immediate offset
		return cpu.thumbLoadStoreImm(h)
	case h>>12 == 0b1000: // load/store halfword immediate offset
		return cpu.thumbLoadStoreHalfImm(h)
	case h>>12 == 0b1001: // SP-relative load/store
		return cpu.thumbSPRelative(h)
	case h>>12 == 0b1010: // load address (ADR/ADD Rd,PC/SP,#imm)
		rd := int((h >> 8) & 0x7)
		imm := uint32(h&0xFF) * 4
		if h&(1<<11) != 0 {
			cpu.WriteA32(rd, uint32(cpu.ReadA32(13))+imm)
		} else {
			cpu.WriteA32(rd, (cpu.ReadA32(15)&^3)+imm)
		}
		return nil
	case h>>8 == 0b10110000: // ADD/SUB SP, #imm
		imm := uint32(h&0x7F) * 4
		if h&(1<<7) != 0 {
			cpu.WriteA32(13, cpu.ReadA32(13)-imm)
		} else {
			cpu.WriteA32(13, cpu.ReadA32(13)+imm)
		}
		return nil
	case h>>9 == 0b1011010: // PUSH
		return cpu.thumbPush(h)
	case h>>9 == 0b1011110: // POP
		return cpu.thumbPop(h)
	case h>>8 == 0b10110010 || h>>8 == 0b10110011 || h>>8 == 0b10110001 || h>>8 == 0b10111001 || h>>8 == 0b10111011: // SXTH/SXTB/UXTH/UXTB/CBZ/CBNZ family, approximate
		return cpu.thumbMisc(h)
	case h>>8 == 0b11011111: // SWI / SVC
		return cpu.svc()
	case h>>12 == 0b1101: // conditional branch
		return cpu.thumbCondBranch(h)
	case h>>11 == 0b11100: // unconditional branch
		offset := int32(h&0x7FF) << 21 >> 20
		cpu.WriteA32(15, uint32(int64(cpu.ReadA32(15))+int64(offset)))
		return nil
	case h>>11 == 0b11110: // BL/BLX prefix (32-bit form handles the rest)
		return cpu.undefined()
	default:
		return cpu.undefined()
	}
}

func (cpu *ProcessorState) thumbShiftImm(h uint16) error {
	op := (h >> 11) & 0x3
	amount := uint((h >> 6) & 0x1F)
	rm := int((h >> 3) & 0x7)
	rd := int(h & 0x7)
	v := cpu.ReadA32(rm)

	var result uint32
	var carry bool
	switch op {
	case 0: // LSL
		if amount == 0 {
			result, carry = v, cpu.PState.C
		} else {
			result = v << amount
			carry = v&(1<<(32-amount)) != 0
		}
	case 1: // LSR
		if amount == 0 {
			amount = 32
		}
		if amount == 32 {
			result, carry = 0, v&(1<<31) != 0
		} else {
			result = v >> amount
			carry = v&(1<<(amount-1)) != 0
		}
	case 2: // ASR
		if amount == 0 {
			amount = 32
		}
		if amount >= 32 {
			if v&(1<<31) != 0 {
				result = 0xFFFFFFFF
			}
			carry = v&(1<<31) != 0
		} else {
			result = uint32(int32(v) >> amount)
			carry = v&(1<<(amount-1)) != 0
		}
	}
	cpu.WriteA32(rd, result)
	cpu.setNZ(result)
	cpu.PState.C = carry
	return nil
}

func (cpu *ProcessorState) thumbAddSub3(h uint16) error {
	immForm := h&(1<<10) != 0
	sub := h&(1<<9) != 0
	rn := int((h >> 3) & 0x7)
	rd := int(h & 0x7)
	var operand uint32
	if immForm {
		operand = uint32((h >> 6) & 0x7)
	} else {
		operand = cpu.ReadA32(int((h >> 6) & 0x7))
	}
	a := cpu.ReadA32(rn)
	var result uint32
	var carry, overflow bool
	if sub {
		result, carry, overflow = subWithFlags(a, operand)
	} else {
		result, carry, overflow = addWithFlags(a, operand, false)
	}
	cpu.WriteA32(rd, result)
	cpu.setNZ(result)
	cpu.PState.C = carry
	cpu.PState.V = overflow
	return nil
}

func (cpu *ProcessorState) thumbImm8(h uint16) error {
	op := (h >> 11) & 0x3
	rd := int((h >> 8) & 0x7)
	imm := uint32(h & 0xFF)
	// Inside an IT block MOV/ADD/SUB leave the flags alone; CMP always sets them.
	setFlags := cpu.PState.ITState&0x0F == 0
	switch op {
	case 0: // MOV
		cpu.WriteA32(rd, imm)
		if setFlags {
			cpu.setNZ(imm)
		}
	case 1: // CMP
		result, carry, overflow := subWithFlags(cpu.ReadA32(rd), imm)
		cpu.setNZ(result)
		cpu.PState.C, cpu.PState.V = carry, overflow
	case 2: // ADD
		result, carry, overflow := addWithFlags(cpu.ReadA32(rd), imm, false)
		cpu.WriteA32(rd, result)
		if setFlags {
			cpu.setNZ(result)
			cpu.PState.C, cpu.PState.V = carry, overflow
		}
	case 3: // SUB
		result, carry, overflow := subWithFlags(cpu.ReadA32(rd), imm)
		cpu.WriteA32(rd, result)
		if setFlags {
			cpu.setNZ(result)
			cpu.PState.C, cpu.PState.V = carry, overflow
		}
	}
	return nil
}

// thumbALU implements the 16 register-register ALU ops (AND..MVN), sharing
// carry/overflow semantics with the A32 data-processing core.
func (cpu *ProcessorState) thumbALU(h uint16) error {
	op := (h >> 6) & 0xF
	rm := int((h >> 3) & 0x7)
	rdn := int(h & 0x7)
	a := cpu.ReadA32(rdn)
	b := cpu.ReadA32(rm)

	var result uint32
	carry := cpu.PState.C
	overflow := cpu.PState.V
	write := true

	switch op {
	case 0x0:
		result = a & b
	case 0x1:
		result = a ^ b
	case 0x2:
		amount := uint(b & 0xFF)
		result, carry = shiftLSL(a, amount, carry)
	case 0x3:
		amount := uint(b & 0xFF)
		result, carry = shiftLSR(a, amount, carry)
	case 0x4:
		amount := uint(b & 0xFF)
		result, carry = shiftASR(a, amount, carry)
	case 0x5:
		result, carry, overflow = addWithFlags(a, b, cpu.PState.C)
	case 0x6:
		result, carry, overflow = subWithFlags2(a, b, cpu.PState.C)
	case 0x7:
		amount := uint(b & 0xFF)
		result, carry = shiftROR(a, amount, carry)
	case 0x8:
		result = a & b
		write = false
	case 0x9:
		result, carry, overflow = subWithFlags(0, b)
	case 0xA:
		result, carry, overflow = subWithFlags(a, b)
		write = false
	case 0xB:
		result, carry, overflow = addWithFlags(a, b, false)
		write = false
	case 0xC:
		result = a | b
	case 0xD:
		result = a * b
	case 0xE:
		result = a &^ b
	case 0xF:
		result = ^b
	}
	cpu.setNZ(result)
	cpu.PState.C = carry
	if op == 0x5 || op == 0x6 || op == 0x9 || op == 0xA || op == 0xB {
		cpu.PState.V = overflow
	}
	if write {
		cpu.WriteA32(rdn, result)
	}
	return nil
}

func shiftLSL(v uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return v, carryIn
	}
	if amount > 32 {
		return 0, false
	}
	if amount == 32 {
		return 0, v&1 != 0
	}
	return v << amount, v&(1<<(32-amount)) != 0
}

func shiftLSR(v uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return v, carryIn
	}
	if amount > 32 {
		return 0, false
	}
	if amount == 32 {
		return 0, v&(1<<31) != 0
	}
	return v >> amount, v&(1<<(amount-1)) != 0
}

func shiftASR(v uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return v, carryIn
	}
	if amount >= 32 {
		if v&(1<<31) != 0 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
	return uint32(int32(v) >> amount), v&(1<<(amount-1)) != 0
}

func shiftROR(v uint32, amount uint, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return v, carryIn
	}
	amount &= 31
	if amount == 0 {
		return v, v&(1<<31) != 0
	}
	r := rotateRight32(v, amount)
	return r, r&(1<<31) != 0
}

// thumbSpecialDP implements high-register ADD/CMP/MOV and BX/BLX.
func (cpu *ProcessorState) thumbSpecialDP(h uint16) error {
	op := (h >> 8) & 0x3
	hi1 := h&(1<<7) != 0
	hi2 := h&(1<<6) != 0
	rm := int((h >> 3) & 0xF)
	rdn := int(h&0x7) | boolToInt(hi1)<<3

	switch op {
	case 0: // ADD
		cpu.WriteA32(rdn, cpu.ReadA32(rdn)+cpu.ReadA32(rm))
	case 1: // CMP
		result, carry, overflow := subWithFlags(cpu.ReadA32(rdn), cpu.ReadA32(rm))
		cpu.setNZ(result)
		cpu.PState.C, cpu.PState.V = carry, overflow
	case 2: // MOV
		cpu.WriteA32Interworking(rdn, cpu.ReadA32(rm))
	case 3: // BX/BLX
		if hi2 {
			*cpu.physGPR(14) = cpu.Regs.PC | 1
		}
		cpu.WriteA32Interworking(15, cpu.ReadA32(rm))
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (cpu *ProcessorState) thumbLoadStoreReg(h uint16) error {
	op := (h >> 9) & 0x7
	rm := int((h >> 6) & 0x7)
	rn := int((h >> 3) & 0x7)
	rd := int(h & 0x7)
	addr := uint64(cpu.ReadA32(rn) + cpu.ReadA32(rm))
	if err := cpu.teeCheckBase(rn); err != nil {
		return err
	}
	priv := cpu.privileged()
	switch op {
	case 0: // STR
		if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(cpu.ReadA32(rd)), cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	case 1: // STRH
		if !writeWidth(cpu.Memory, cpu, addr, 2, uint64(cpu.ReadA32(rd))&0xFFFF, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	case 2: // STRB
		if !writeWidth(cpu.Memory, cpu, addr, 1, uint64(cpu.ReadA32(rd))&0xFF, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	case 3: // LDRSB
		v, ok := readWidth(cpu.Memory, cpu, addr, 1, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(int32(int8(v))))
	case 4: // LDR
		v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	case 5: // LDRH
		v, ok := readWidth(cpu.Memory, cpu, addr, 2, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	case 6: // LDRB
		v, ok := readWidth(cpu.Memory, cpu, addr, 1, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	case 7: // LDRSH
		v, ok := readWidth(cpu.Memory, cpu, addr, 2, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(int32(int16(v))))
	}
	return nil
}

func (cpu *ProcessorState) thumbLoadStoreImm(h uint16) error {
	byteAccess := h&(1<<12) != 0
	load := h&(1<<11) != 0
	imm := uint32((h >> 6) & 0x1F)
	if !byteAccess {
		imm *= 4
	}
	rn := int((h >> 3) & 0x7)
	rd := int(h & 0x7)
	addr := uint64(cpu.ReadA32(rn) + imm)
	if err := cpu.teeCheckBase(rn); err != nil {
		return err
	}
	priv := cpu.privileged()
	width := 4
	if byteAccess {
		width = 1
	}
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, width, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	} else {
		v := cpu.ReadA32(rd)
		if byteAccess {
			v &= 0xFF
		}
		if !writeWidth(cpu.Memory, cpu, addr, width, uint64(v), cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	return nil
}

func (cpu *ProcessorState) thumbLoadStoreHalfImm(h uint16) error {
	load := h&(1<<11) != 0
	imm := uint32((h>>6)&0x1F) * 2
	rn := int((h >> 3) & 0x7)
	rd := int(h & 0x7)
	addr := uint64(cpu.ReadA32(rn) + imm)
	priv := cpu.privileged()
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, 2, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	} else {
		if !writeWidth(cpu.Memory, cpu, addr, 2, uint64(cpu.ReadA32(rd))&0xFFFF, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	return nil
}

func (cpu *ProcessorState) thumbSPRelative(h uint16) error {
	load := h&(1<<11) != 0
	rd := int((h >> 8) & 0x7)
	imm := uint32(h&0xFF) * 4
	addr := uint64(cpu.ReadA32(13) + imm)
	priv := cpu.privileged()
	if load {
		v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32(rd, uint32(v))
	} else {
		if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(cpu.ReadA32(rd)), cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	return nil
}

func (cpu *ProcessorState) thumbPush(h uint16) error {
	list := h & 0xFF
	lr := h&(1<<8) != 0
	count := popcount16(list)
	if lr {
		count++
	}
	sp := cpu.ReadA32(13) - uint32(count*4)
	addr := uint64(sp)
	priv := cpu.privileged()
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(cpu.ReadA32(i)), cpu.Config.Endianness, priv) {
				return cpu.dataAbort()
			}
			addr += 4
		}
	}
	if lr {
		if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(cpu.ReadA32(14)), cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	cpu.WriteA32(13, sp)
	return nil
}

func (cpu *ProcessorState) thumbPop(h uint16) error {
	list := h & 0xFF
	pc := h&(1<<8) != 0
	addr := uint64(cpu.ReadA32(13))
	priv := cpu.privileged()
	count := popcount16(list)
	if pc {
		count++
	}
	for i := 0; i < 8; i++ {
		if list&(1<<uint(i)) != 0 {
			v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, priv)
			if !ok {
				return cpu.dataAbort()
			}
			cpu.WriteA32(i, uint32(v))
			addr += 4
		}
	}
	if pc {
		v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.WriteA32Interworking(15, uint32(v))
	}
	cpu.WriteA32(13, cpu.ReadA32(13)+uint32(count*4))
	return nil
}

func popcount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

// thumbMisc covers SXTH/SXTB/UXTH/UXTB and CBZ/CBNZ, a representative
// subset of the 16-bit "miscellaneous" space.
func (cpu *ProcessorState) thumbMisc(h uint16) error {
	switch {
	case h>>6 == 0b1011001011 || h>>6 == 0b1011001010 || h>>6 == 0b1011001001 || h>>6 == 0b1011001000:
		rd := int(h & 0x7)
		rm := int((h >> 3) & 0x7)
		v := cpu.ReadA32(rm)
		switch (h >> 6) & 0x3 {
		case 0:
			cpu.WriteA32(rd, uint32(int32(int16(v))))
		case 1:
			cpu.WriteA32(rd, uint32(int32(int8(v))))
		case 2:
			cpu.WriteA32(rd, v&0xFFFF)
		case 3:
			cpu.WriteA32(rd, v&0xFF)
		}
		return nil
	case h&0xF500 == 0xB100: // CBZ/CBNZ
		nonzero := h&(1<<11) != 0
		rn := int(h & 0x7)
		imm := (uint32((h>>3)&0x1F) << 1) | (uint32((h>>9)&1) << 6)
		v := cpu.ReadA32(rn)
		taken := (v == 0) != nonzero
		if taken {
			cpu.WriteA32(15, cpu.ReadA32(15)+imm)
		}
		return nil
	default:
		return nil // treat unimplemented hint/misc space as NOP
	}
}

func (cpu *ProcessorState) thumbCondBranch(h uint16) error {
	cond := ConditionCode((h >> 8) & 0xF)
	if !cond.Evaluate(&cpu.PState) {
		return nil
	}
	offset := int32(int8(h & 0xFF)) * 2
	cpu.WriteA32(15, uint32(int64(cpu.ReadA32(15))+int64(offset)))
	return nil
}

// execThumb2 implements the 32-bit Thumb-2 BL/BLX (immediate) encodings.
// No other 32-bit encoding is decoded: data-processing, load/store and the
// rest of the 32-bit space trap as Undefined.
func (cpu *ProcessorState) execThumb2(h1, h2 uint16) error {
	op1 := (h1 >> 11) & 0x3
	if op1 == 0b10 && h2&(1<<15) != 0 {
		return cpu.thumb2BranchLink(h1, h2)
	}
	// Every other 32-bit encoding is not decoded in this subset.
	return cpu.undefined()
}

func (cpu *ProcessorState) thumb2BranchLink(h1, h2 uint16) error {
	blx := h2&(1<<12) == 0
	s := uint32((h1 >> 10) & 1)
	i1 := uint32((h2>>13)&1) ^ s ^ 1
	i2 := uint32((h2>>11)&1) ^ s ^ 1
	imm10 := uint32(h1 & 0x3FF)
	imm11 := uint32(h2 & 0x7FF)
	imm32 := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
	if s != 0 {
		imm32 |= 0xFE000000
	}
	target := uint32(int64(cpu.ReadA32(15)) + int64(int32(imm32)))
	*cpu.physGPR(14) = cpu.Regs.PC | 1
	if blx {
		cpu.PState.T = false
		cpu.PState.ThumbEE = false
		cpu.Regs.PC = uint64(target &^ 3)
	} else {
		cpu.Regs.PC = uint64(target &^ 1)
	}
	return nil
}
