package cpu

// pipelineOffset is the "PC+8 / PC+4" adjustment spec.md §3 invariant 4
// describes: reads of the PC as an operand see the next-but-one
// instruction address under the classic ARM pipeline model.
func (cpu *ProcessorState) pipelineOffset() uint64 {
	switch cpu.PState.CurrentISA() {
	case ISAThumb, ISAThumbEE:
		return 4
	default:
		return 8
	}
}

// physGPR resolves a logical A32 register number (0..14) to its physical
// storage for the current mode — the mode-indexed alias table of spec.md
// §4.1, expressed as a function returning a pointer rather than an
// array lookup.
func (cpu *ProcessorState) physGPR(reg int) *uint64 {
	mode := cpu.PState.Mode
	switch {
	case reg >= 8 && reg <= 12:
		if mode == ModeFIQ {
			if cpu.Config.ArchVersion == ArchV1 && (reg == 10 || reg == 11) {
				return &cpu.Regs.R[reg]
			}
			switch reg {
			case 8:
				return &cpu.Regs.R8Fiq
			case 9:
				return &cpu.Regs.R9Fiq
			case 10:
				return &cpu.Regs.R10Fiq
			case 11:
				return &cpu.Regs.R11Fiq
			default:
				return &cpu.Regs.R12Fiq
			}
		}
		return &cpu.Regs.R[reg]
	case reg == 13:
		sp, _ := cpu.bankedSPLR(mode)
		return sp
	case reg == 14:
		_, lr := cpu.bankedSPLR(mode)
		return lr
	default:
		return &cpu.Regs.R[reg]
	}
}

func (cpu *ProcessorState) bankedSPLR(mode Mode) (sp, lr *uint64) {
	switch mode {
	case ModeFIQ:
		return &cpu.Regs.SPFiq, &cpu.Regs.LRFiq
	case ModeIRQ:
		return &cpu.Regs.SPIrq, &cpu.Regs.LRIrq
	case ModeSVC:
		return &cpu.Regs.SPSvc, &cpu.Regs.LRSvc
	case ModeABT:
		return &cpu.Regs.SPAbt, &cpu.Regs.LRAbt
	case ModeUND:
		return &cpu.Regs.SPUnd, &cpu.Regs.LRUnd
	case ModeMON:
		if cpu.Config.ArchVersion >= ArchV6 {
			return &cpu.Regs.SPMon, &cpu.Regs.LRMon
		}
		return &cpu.Regs.SPUsr, &cpu.Regs.LRUsr
	case ModeHYP:
		if cpu.Config.EL2Supported {
			return &cpu.Regs.SPHyp, &cpu.Regs.LRUsr
		}
		return &cpu.Regs.SPUsr, &cpu.Regs.LRUsr
	default: // USR, SYS
		return &cpu.Regs.SPUsr, &cpu.Regs.LRUsr
	}
}

// ReadA32 reads a logical register (0..15) as a normal operand; R15 yields
// the address of the executing instruction + pipeline-offset, masked to 26
// bits in ARM26 mode (invariants 2, 4).
func (cpu *ProcessorState) ReadA32(reg int) uint32 {
	if reg != 15 {
		return uint32(*cpu.physGPR(reg))
	}
	pc := cpu.oldPC + cpu.pipelineOffset()
	if cpu.PState.RegWidth == 26 {
		return uint32(pc) & 0x03FFFFFC
	}
	return uint32(pc)
}

// ReadA32LHS additionally packs the ARM26 flags into R15's reply, for
// instructions that use R15 as both address and flags source (spec.md
// §4.1).
func (cpu *ProcessorState) ReadA32LHS(reg int) uint32 {
	if reg != 15 {
		return cpu.ReadA32(reg)
	}
	base := cpu.ReadA32(15)
	if cpu.PState.RegWidth == 26 {
		return base | cpu.PState.PackARM26PSR()
	}
	return base
}

// ReadA32ForStore reads a register for use as the data value of a store.
// On pre-v4 cores, STR with Rd=R15 stores PC+12 rather than PC+8, a
// documented quirk of the three-stage pipeline's write timing.
func (cpu *ProcessorState) ReadA32ForStore(reg int) uint32 {
	if reg == 15 && cpu.PState.RegWidth != 26 && cpu.Config.ArchVersion < ArchV4 {
		return uint32(cpu.oldPC) + 12
	}
	return cpu.ReadA32(reg)
}

// WriteA32 writes a logical register; writes to R15 clear the low bits to
// align to the current ISA (2-byte in Thumb/ThumbEE, 4-byte otherwise), and
// mask to 26 bits in ARM26 mode.
func (cpu *ProcessorState) WriteA32(reg int, val uint32) {
	if reg != 15 {
		*cpu.physGPR(reg) = uint64(val)
		return
	}
	switch cpu.PState.CurrentISA() {
	case ISAThumb, ISAThumbEE:
		cpu.Regs.PC = uint64(val) &^ 1
	default:
		cpu.Regs.PC = uint64(val) &^ 3
	}
	if cpu.PState.RegWidth == 26 {
		cpu.Regs.PC &= 0x03FFFFFC
	}
}

// WriteA32Interworking writes R15 the way BX/LDR/LDM (v5+) and
// arithmetic-to-PC (v7+) do: bit 0 of the value selects ARM vs Thumb
// instead of being dropped.
func (cpu *ProcessorState) WriteA32Interworking(reg int, val uint32) {
	if reg != 15 {
		cpu.WriteA32(reg, val)
		return
	}
	if val&1 != 0 {
		cpu.PState.T, cpu.PState.J, cpu.PState.ThumbEE = true, false, false
		cpu.Regs.PC = uint64(val) &^ 1
	} else {
		cpu.PState.T, cpu.PState.J = false, false
		cpu.Regs.PC = uint64(val) &^ 3
	}
}

// a64Slot resolves an A64 general register 0..30 to its physical storage.
// Registers 0..12 alias the low 32 bits of the A32 unbanked file; 13/14
// alias the current mode's banked SP/LR (so a world-switch sees the same
// physical value an A32 handler would have left); 15..29 live in the
// dedicated A64-only bank; 30 is X30.
func (cpu *ProcessorState) a64Slot(reg int) *uint64 {
	switch {
	case reg >= 0 && reg <= 7:
		return &cpu.Regs.R[reg]
	case reg >= 8 && reg <= 12:
		return cpu.physGPR(reg)
	case reg == 13:
		sp, _ := cpu.bankedSPLR(cpu.PState.Mode)
		return sp
	case reg == 14:
		_, lr := cpu.bankedSPLR(cpu.PState.Mode)
		return lr
	case reg >= 15 && reg <= 29:
		return &cpu.Regs.X1329[reg-13]
	default:
		return &cpu.Regs.X30
	}
}

// privileged reports whether the current mode/EL runs with privileged
// memory access (everything except A32 USR / A64 EL0).
func (cpu *ProcessorState) privileged() bool {
	return currentEL(&cpu.PState) != 0
}

func currentEL(p *PSTATE) int {
	if p.RegWidth == 64 {
		return p.EL
	}
	switch p.Mode {
	case ModeHYP:
		return 2
	case ModeMON, ModeEL3:
		return 3
	case ModeUSR:
		return 0
	default:
		return 1
	}
}

// spForCurrentEL implements the WZR/XZR-suppressed SP read: SP_EL0 if not
// using the per-EL stack, else SP_EL(current EL) (spec.md §4.1).
func (cpu *ProcessorState) spForCurrentEL() uint64 {
	if !cpu.PState.SPSel {
		return cpu.Regs.SPEL[0]
	}
	return cpu.Regs.SPEL[currentEL(&cpu.PState)]
}

func (cpu *ProcessorState) setSPForCurrentEL(v uint64) {
	if !cpu.PState.SPSel {
		cpu.Regs.SPEL[0] = v
		return
	}
	cpu.Regs.SPEL[currentEL(&cpu.PState)] = v
}

// ReadA64_64 reads a 64-bit A64 general register. reg 31 is XZR when
// suppressSP is set, otherwise the live SP.
func (cpu *ProcessorState) ReadA64_64(reg int, suppressSP bool) uint64 {
	if reg == 31 {
		if suppressSP {
			return 0
		}
		return cpu.spForCurrentEL()
	}
	if reg == 30 {
		return cpu.Regs.X30
	}
	return *cpu.a64Slot(reg)
}

// ReadA64_32 is the W-register (32-bit) view of the same storage.
func (cpu *ProcessorState) ReadA64_32(reg int, suppressSP bool) uint32 {
	return uint32(cpu.ReadA64_64(reg, suppressSP))
}

// WriteA64_64 writes a 64-bit A64 general register, honoring the XZR/SP
// suppression rule.
func (cpu *ProcessorState) WriteA64_64(reg int, val uint64, suppressSP bool) {
	if reg == 31 {
		if suppressSP {
			return
		}
		cpu.setSPForCurrentEL(val)
		return
	}
	if reg == 30 {
		cpu.Regs.X30 = val
		return
	}
	*cpu.a64Slot(reg) = val
}

// WriteA64_32 writes the low 32 bits and zero-extends to 64, as every
// 32-bit (W-register) A64 destination does.
func (cpu *ProcessorState) WriteA64_32(reg int, val uint32, suppressSP bool) {
	cpu.WriteA64_64(reg, uint64(val), suppressSP)
}

// GetCPSR/SetCPSR expose the packed 32-bit view used by MRS/MSR.
func (cpu *ProcessorState) GetCPSR() uint32 {
	return cpu.PState.ToCPSR(cpu.Config)
}

func (cpu *ProcessorState) SetCPSR(val, mask uint32) {
	cpu.PState.FromCPSR(val, mask, cpu.Config)
}

// spsrSlot resolves the current mode's SPSR storage. USR and SYS have no
// SPSR: writes are dropped, reads return 0 (spec.md §4.1).
func (cpu *ProcessorState) spsrSlot() *uint64 {
	switch cpu.PState.Mode {
	case ModeFIQ:
		return &cpu.Regs.SpsrFiq
	case ModeIRQ:
		return &cpu.Regs.SpsrIrq
	case ModeSVC:
		return &cpu.Regs.SpsrSvc
	case ModeABT:
		return &cpu.Regs.SpsrAbt
	case ModeUND:
		return &cpu.Regs.SpsrUnd
	case ModeMON:
		return &cpu.Regs.SpsrMon
	case ModeHYP:
		return &cpu.Regs.SpsrHyp
	default:
		return nil
	}
}

func (cpu *ProcessorState) GetSPSR() uint32 {
	slot := cpu.spsrSlot()
	if slot == nil {
		return 0
	}
	return uint32(*slot)
}

func (cpu *ProcessorState) SetSPSR(val, mask uint32) {
	slot := cpu.spsrSlot()
	if slot == nil {
		return
	}
	cur := uint32(*slot)
	*slot = uint64((cur &^ mask) | (val & mask))
}

// GetSPSREL / SetSPSREL are the A64-side SPSR_EL1..3 accessors.
func (cpu *ProcessorState) GetSPSREL(el int) uint64 {
	if el < 1 || el > 3 {
		return 0
	}
	return cpu.Regs.SpsrEL[el]
}

func (cpu *ProcessorState) SetSPSREL(el int, v uint64) {
	if el < 1 || el > 3 {
		return
	}
	cpu.Regs.SpsrEL[el] = v
}

// CopyFlagsFromR15 implements the "copy flags from R15" event spec.md §4.1
// describes: ARM26 stores/restores flags in R15's top/bottom bits; in
// 32-bit mode a data-processing write to PC with the S-bit set instead
// restores PSTATE from the current mode's SPSR. On an ARMv3 core the M4 bit
// (bit 4) of the restored value additionally switches the register width
// from 26 to 32 bits, letting a TEQP-style instruction move the core out of
// ARM26 mode in the same step that restores its flags.
func (cpu *ProcessorState) CopyFlagsFromR15(r15Value uint32) {
	if cpu.PState.RegWidth == 26 {
		cpu.PState.UnpackARM26PSR(r15Value)
		if cpu.Config.ArchVersion == ArchV3 && r15Value&0x10 != 0 {
			cpu.PState.RegWidth = 32
		}
		return
	}
	cpu.SetCPSR(cpu.GetSPSR(), 0xFFFFFFFF)
}
