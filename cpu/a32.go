package cpu

// a32Kind classifies a decoded A32 opcode into the group of instructions
// that share an execute function, the same decompose-then-dispatch shape
// the A26/A32 reference executor uses.
type a32Kind int

const (
	a32Unknown a32Kind = iota
	a32DataProcessing
	a32Multiply
	a32LongMultiply
	a32LoadStore
	a32LoadStoreMultiple
	a32Branch
	a32BranchExchange
	a32SWI
	a32PSRTransfer
	a32Coprocessor
	a32Media // CLZ, SXT*, UXT*, BFI/BFC, SBFX/UBFX, packed SIMD-in-GPR
	a32Saturating
	a32Swap // SWP/SWPB (pre-v6 exclusive-style access)
)

type a32Instruction struct {
	Address  uint64
	Opcode   uint32
	Cond     ConditionCode
	Kind     a32Kind
	SetFlags bool
}

// decodeA32 classifies a fetched opcode, following the same bit-26/27
// triage the reference decoder uses, extended with the v5+/v6+/v7+
// encodings spec.md §4.5 lists as supplementary semantics.
func decodeA32(pc uint64, opcode uint32) a32Instruction {
	inst := a32Instruction{
		Address:  pc,
		Opcode:   opcode,
		Cond:     ConditionCode((opcode >> 28) & 0xF),
		SetFlags: opcode&(1<<20) != 0,
	}

	switch (opcode >> 26) & 0x3 {
	case 0b00:
		switch {
		case opcode&0x0FFFFFF0 == 0x012FFF10: // BX
			inst.Kind = a32BranchExchange
		case opcode&0x0FFFFFF0 == 0x012FFF30: // BLX (register)
			inst.Kind = a32BranchExchange
		case opcode&0x0FFFFFF0 == 0x012FFF20: // BXJ
			inst.Kind = a32BranchExchange
		case opcode&0x0FC000F0 == 0x00000090: // MUL/MLA
			inst.Kind = a32Multiply
		case opcode&0x0F8000F0 == 0x00800090: // UMULL/UMLAL/SMULL/SMLAL
			inst.Kind = a32LongMultiply
		case opcode&0x0FB00FF0 == 0x01000090: // SWP/SWPB
			inst.Kind = a32Swap
		case opcode&0x0F800FF0 == 0x01800F90: // LDREX/STREX family
			inst.Kind = a32LoadStore
		case opcode&0x0FBF0FFF == 0x010F0000: // MRS
			inst.Kind = a32PSRTransfer
		case opcode&0x0FB000F0 == 0x01200000: // MSR (register)
			inst.Kind = a32PSRTransfer
		case opcode&0x0FB00000 == 0x03200000: // MSR (immediate)
			inst.Kind = a32PSRTransfer
		case opcode&0x0F9000F0 == 0x01000050 && (opcode>>21)&0xF >= 8: // QADD/QSUB family
			inst.Kind = a32Saturating
		case opcode&0x0FF000F0 == 0x01600010: // CLZ
			inst.Kind = a32Media
		case opcode&0x0E000090 == 0x00000090: // halfword/signed load-store
			inst.Kind = a32LoadStore
		default:
			inst.Kind = a32DataProcessing
		}
	case 0b01:
		if opcode&0x02000010 == 0x02000010 { // register-offset form with bit 4 set: media space
			inst.Kind = a32Media
		} else {
			inst.Kind = a32LoadStore
		}
	case 0b10:
		if opcode&0x02000000 != 0 {
			inst.Kind = a32Branch
		} else {
			inst.Kind = a32LoadStoreMultiple
		}
	case 0b11:
		switch {
		case opcode&0x0F000000 == 0x0F000000:
			inst.Kind = a32SWI
		default:
			inst.Kind = a32Coprocessor
		}
	}
	return inst
}

// stepA32 fetches, decodes, and executes one A32/A26 instruction.
func (cpu *ProcessorState) stepA32() error {
	opcode, err := cpu.fetch()
	if err != nil {
		return err
	}
	inst := decodeA32(cpu.oldPC, opcode)

	if inst.Cond == CondNV && cpu.Config.ArchVersion < ArchV5 {
		return nil // legacy "never" predicate: instruction is a no-op
	}
	if inst.Cond != CondNV && !inst.Cond.Evaluate(&cpu.PState) {
		return nil
	}

	switch inst.Kind {
	case a32DataProcessing:
		return cpu.execDataProcessing(inst)
	case a32Multiply:
		return cpu.execMultiply(inst)
	case a32LongMultiply:
		return cpu.execLongMultiply(inst)
	case a32LoadStore:
		return cpu.execLoadStore(inst)
	case a32LoadStoreMultiple:
		return cpu.execLoadStoreMultiple(inst)
	case a32Branch:
		return cpu.execBranch(inst)
	case a32BranchExchange:
		return cpu.execBranchExchange(inst)
	case a32SWI:
		return cpu.svc()
	case a32PSRTransfer:
		return cpu.execPSRTransfer(inst)
	case a32Coprocessor:
		return cpu.execCoprocessor(inst)
	case a32Media:
		return cpu.execMedia(inst)
	case a32Saturating:
		return cpu.execSaturating(inst)
	case a32Swap:
		return cpu.execSwap(inst)
	default:
		return cpu.undefined()
	}
}

// --- data processing ---

// shifterOperand evaluates operand2 of a data-processing instruction and
// its carry-out, per spec.md §4.5: a rotated 8-bit immediate, or a register
// shifted by one of {LSL, LSR, ASR, ROR, RRX}.
func (cpu *ProcessorState) shifterOperand(opcode uint32) (uint32, bool) {
	carryIn := cpu.PState.C
	if opcode&(1<<25) != 0 {
		imm := opcode & 0xFF
		rot := ((opcode >> 8) & 0xF) * 2
		if rot == 0 {
			return imm, carryIn
		}
		result := rotateRight32(imm, uint(rot))
		return result, result&(1<<31) != 0
	}

	rm := cpu.ReadA32(int(opcode & 0xF))
	shiftType := (opcode >> 5) & 0x3
	var amount uint
	regShift := opcode&(1<<4) != 0
	if regShift {
		amount = uint(cpu.ReadA32(int((opcode>>8)&0xF)) & 0xFF)
	} else {
		amount = uint((opcode >> 7) & 0x1F)
	}

	switch shiftType {
	case 0: // LSL
		if amount == 0 {
			return rm, carryIn
		}
		if amount > 32 {
			return 0, false
		}
		if amount == 32 {
			return 0, rm&1 != 0
		}
		return rm << amount, rm&(1<<(32-amount)) != 0
	case 1: // LSR
		if amount == 0 {
			if regShift {
				return rm, carryIn
			}
			amount = 32
		}
		if amount > 32 {
			return 0, false
		}
		if amount == 32 {
			return 0, rm&(1<<31) != 0
		}
		return rm >> amount, rm&(1<<(amount-1)) != 0
	case 2: // ASR
		if amount == 0 {
			if regShift {
				return rm, carryIn
			}
			amount = 32
		}
		if amount >= 32 {
			if rm&(1<<31) != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(rm) >> amount), rm&(1<<(amount-1)) != 0
	case 3: // ROR / RRX
		if amount == 0 {
			if regShift {
				return rm, carryIn
			}
			// RRX: rotate right through carry by one bit.
			var c uint32
			if carryIn {
				c = 1 << 31
			}
			out := (rm >> 1) | c
			return out, rm&1 != 0
		}
		amount &= 31
		if amount == 0 {
			return rm, rm&(1<<31) != 0
		}
		return rotateRight32(rm, amount), rotateRight32(rm, amount)&(1<<31) != 0
	}
	return rm, carryIn
}

func (cpu *ProcessorState) setNZ(v uint32) {
	cpu.PState.Z = v == 0
	cpu.PState.N = v&(1<<31) != 0
}

// execDataProcessing implements AND/EOR/SUB/RSB/ADD/ADC/SBC/RSC/TST/TEQ/
// CMP/CMN/ORR/MOV/BIC/MVN (spec.md §4.5).
func (cpu *ProcessorState) execDataProcessing(inst a32Instruction) error {
	op := inst.Opcode
	opc := (op >> 21) & 0xF
	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)

	op2, shiftCarry := cpu.shifterOperand(op)
	rnVal := cpu.ReadA32LHS(rn)

	var result uint32
	var carryOut, overflow bool
	writesResult := true

	switch opc {
	case 0x0: // AND
		result = rnVal & op2
		carryOut = shiftCarry
	case 0x1: // EOR
		result = rnVal ^ op2
		carryOut = shiftCarry
	case 0x2: // SUB
		result, carryOut, overflow = subWithFlags(rnVal, op2)
	case 0x3: // RSB
		result, carryOut, overflow = subWithFlags(op2, rnVal)
	case 0x4: // ADD
		result, carryOut, overflow = addWithFlags(rnVal, op2, false)
	case 0x5: // ADC
		result, carryOut, overflow = addWithFlags(rnVal, op2, cpu.PState.C)
	case 0x6: // SBC
		result, carryOut, overflow = subWithFlags2(rnVal, op2, cpu.PState.C)
	case 0x7: // RSC
		result, carryOut, overflow = subWithFlags2(op2, rnVal, cpu.PState.C)
	case 0x8: // TST
		result = rnVal & op2
		carryOut = shiftCarry
		writesResult = false
	case 0x9: // TEQ
		result = rnVal ^ op2
		carryOut = shiftCarry
		writesResult = false
	case 0xA: // CMP
		result, carryOut, overflow = subWithFlags(rnVal, op2)
		writesResult = false
	case 0xB: // CMN
		result, carryOut, overflow = addWithFlags(rnVal, op2, false)
		writesResult = false
	case 0xC: // ORR
		result = rnVal | op2
		carryOut = shiftCarry
	case 0xD: // MOV
		result = op2
		carryOut = shiftCarry
	case 0xE: // BIC
		result = rnVal &^ op2
		carryOut = shiftCarry
	case 0xF: // MVN
		result = ^op2
		carryOut = shiftCarry
	}

	if inst.SetFlags {
		if rd == 15 {
			cpu.CopyFlagsFromR15(result)
		} else {
			cpu.setNZ(result)
			cpu.PState.C = carryOut
			if opc >= 0x2 && opc <= 0xB && opc != 0x8 && opc != 0x9 {
				cpu.PState.V = overflow
			}
		}
	}

	if writesResult {
		cpu.WriteA32(rd, result)
	}
	return nil
}

func addWithFlags(a, b uint32, carryIn bool) (result uint32, carryOut, overflow bool) {
	var c uint64
	if carryIn {
		c = 1
	}
	wide := uint64(a) + uint64(b) + c
	result = uint32(wide)
	carryOut = wide > 0xFFFFFFFF
	overflow = (a^b)&0x80000000 == 0 && (a^result)&0x80000000 != 0
	return
}

func subWithFlags(a, b uint32) (result uint32, carryOut, overflow bool) {
	return subWithFlags2(a, b, true)
}

// subWithFlags2 computes a - b - (1 - carryIn), matching SBC/RSC's use of
// the inverted carry as a borrow.
func subWithFlags2(a, b uint32, carryIn bool) (result uint32, carryOut, overflow bool) {
	var borrow uint32
	if !carryIn {
		borrow = 1
	}
	wide := int64(a) - int64(b) - int64(borrow)
	result = uint32(wide)
	carryOut = wide >= 0
	overflow = (a^b)&0x80000000 != 0 && (a^result)&0x80000000 != 0
	return
}
