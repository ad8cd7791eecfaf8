package cpu

// vectorA32 is the classic A32 vector-table offset for each handler kind.
// hvc uses offset 0x14 and smc uses 0x08; like every other offset here they
// are added to the one base a32Exception selects (VBAR[0] or the high
// vectors), with no separate Hyp or Monitor vector base.
func vectorA32(r Result) uint64 {
	switch r {
	case ResultReset:
		return 0x00
	case ResultUndefined:
		return 0x04
	case ResultSVC:
		return 0x08
	case ResultHVC:
		return 0x14
	case ResultSMC:
		return 0x08
	case ResultPrefetchAbort:
		return 0x0C
	case ResultDataAbort, ResultUnaligned, ResultUnalignedPC, ResultUnalignedSP:
		return 0x10
	case ResultAddress26:
		return 0x14
	case ResultIRQ:
		return 0x18
	case ResultFIQ:
		return 0x1C
	case ResultBreakpoint, ResultSoftwareStep:
		return 0x0C
	default:
		return 0x04
	}
}

func targetModeA32(r Result) Mode {
	switch r {
	case ResultReset:
		return ModeSVC
	case ResultUndefined:
		return ModeUND
	case ResultSVC:
		return ModeSVC
	case ResultHVC:
		return ModeHYP
	case ResultSMC:
		return ModeMON
	case ResultPrefetchAbort, ResultDataAbort, ResultUnaligned, ResultUnalignedPC,
		ResultUnalignedSP, ResultBreakpoint, ResultSoftwareStep:
		return ModeABT
	case ResultIRQ:
		return ModeIRQ
	case ResultFIQ:
		return ModeFIQ
	default:
		return ModeUND
	}
}

// vectorOffsetA64 maps each handler kind to the offset-within-4KB-block
// a64_exception uses, following the AArch64 exception vector table layout:
// four 0x80-spaced slots (sync, IRQ, FIQ, SError) repeated for each of the
// four source categories.
func vectorOffsetA64(r Result) uint64 {
	switch r {
	case ResultIRQ:
		return 0x80
	case ResultFIQ:
		return 0x100
	case ResultSError:
		return 0x180
	default:
		return 0x00
	}
}

// targetEL computes the exception level a fault is delivered to, given the
// current EL and a simple routing policy (spec.md §4.9, §9 open question:
// full HCR/SCR routing-bit fidelity is out of scope — interrupts always
// land no lower than EL1, hvc/smc land at their architectural home if
// present else fall back like an undefined instruction).
func (cpu *ProcessorState) targetEL(r Result) int {
	cur := currentEL(&cpu.PState)
	switch r {
	case ResultHVC:
		if cpu.Config.EL2Supported {
			return 2
		}
		return max(cur, 1)
	case ResultSMC:
		if cpu.Config.EL3Supported {
			return 3
		}
		return max(cur, 1)
	case ResultReset:
		if cpu.Config.EL3Supported {
			return 3
		}
		if cpu.Config.EL2Supported {
			return 2
		}
		return 1
	default:
		return max(cur, 1)
	}
}

// a32_exception computes the actual branch target from VBAR (with
// SCTLR.V high-vector remap on pre-v6 cores), saves SPSR/LR for the target
// mode, switches PSTATE into it, and masks interrupts per spec.md §4.9.
func (cpu *ProcessorState) a32Exception(r Result, faultPC uint64) {
	targetMode := targetModeA32(r)
	returnAddr := cpu.a32ReturnAddress(r, faultPC)

	savedCPSR := cpu.GetCPSR()
	cpu.PState.Mode = targetMode
	cpu.SetSPSR(savedCPSR, 0xFFFFFFFF)
	*cpu.physGPR(14) = returnAddr

	cpu.PState.I = true
	if r == ResultReset || r == ResultFIQ {
		cpu.PState.F = true
	}
	cpu.PState.T, cpu.PState.J, cpu.PState.ThumbEE = false, false, false
	cpu.PState.ITState = 0

	base := cpu.Sys.VBAR[0]
	if cpu.Sys.SCTLR[1]&(1<<13) != 0 { // SCTLR.V: high vectors at 0xFFFF0000
		base = 0xFFFF0000
	}
	cpu.Regs.PC = base + vectorA32(r)
}

// a32ReturnAddress implements the per-handler return-address bias the A32
// exception model uses: most handlers save PC+4 (one past the faulting
// instruction as fetched), prefetch abort saves PC+4 relative to the
// faulting fetch, SVC/undefined save the address following the trapping
// instruction.
func (cpu *ProcessorState) a32ReturnAddress(r Result, faultPC uint64) uint64 {
	width := uint64(4)
	switch cpu.PState.CurrentISA() {
	case ISAThumb, ISAThumbEE:
		width = 2
	}
	switch r {
	case ResultFIQ, ResultIRQ:
		return faultPC + width + width
	default:
		return faultPC + width
	}
}

// a64Exception implements spec.md §4.7/§4.9's a64_exception(offset, mode):
// selects VBAR for the target EL, adjusts the offset by current-EL-vs-
// target-EL and SP-select, saves ELR/SPSR, and sets D, A, I, F, target EL,
// SP-select.
func (cpu *ProcessorState) a64Exception(vectorOffset uint64, target int) {
	cur := currentEL(&cpu.PState)

	var block uint64
	switch {
	case cur == target && cpu.PState.SPSel:
		block = 0x200
	case cur == target && !cpu.PState.SPSel:
		block = 0x000
	case cur < target && cpu.PState.RegWidth == 64:
		block = 0x400
	default:
		block = 0x600
	}

	elr := cpu.Regs.PC
	spsr := cpu.GetCPSR()
	if cpu.PState.RegWidth == 64 {
		spsr = cpu.packPSTATEA64()
	}

	cpu.setELR(target, elr)
	cpu.SetSPSREL(target, uint64(spsr))

	cpu.PState.D, cpu.PState.A, cpu.PState.I, cpu.PState.F = true, true, true, true
	cpu.PState.EL = target
	cpu.PState.SPSel = true
	cpu.PState.ITState = 0
	if cpu.Config.ArchVersion >= ArchV8 {
		cpu.PState.IL = false
	}

	cpu.Regs.PC = cpu.Sys.VBAR[target] + block + vectorOffset
}

// setELR/getELR keep ELR_ELx in ProcessorState.elr, indexed by EL, since
// RegisterFile carries no ELR slots.
func (cpu *ProcessorState) setELR(el int, v uint64) {
	cpu.elr[el] = v
}

func (cpu *ProcessorState) getELR(el int) uint64 {
	return cpu.elr[el]
}

// packPSTATEA64 packs the subset of PSTATE that SPSR_ELx records, per the
// AArch64 SPSR layout (NZCV, DAIF, mode/EL+SP bits). This intentionally
// reuses the A32 CPSR bit positions for NZCV and DAIF plus a packed
// EL<<2|SPSel field in the low bits, which is the layout A64 software
// expects to restore from.
func (cpu *ProcessorState) packPSTATEA64() uint32 {
	var v uint32
	if cpu.PState.N {
		v |= 1 << 31
	}
	if cpu.PState.Z {
		v |= 1 << 30
	}
	if cpu.PState.C {
		v |= 1 << 29
	}
	if cpu.PState.V {
		v |= 1 << 28
	}
	if cpu.PState.D {
		v |= 1 << 9
	}
	if cpu.PState.A {
		v |= 1 << 8
	}
	if cpu.PState.I {
		v |= 1 << 7
	}
	if cpu.PState.F {
		v |= 1 << 6
	}
	if cpu.PState.SPSel {
		v |= 1 << 0
	}
	v |= uint32(cpu.PState.EL&0x3) << 2
	return v
}

func (cpu *ProcessorState) unpackPSTATEA64(v uint32) {
	cpu.PState.N = v&(1<<31) != 0
	cpu.PState.Z = v&(1<<30) != 0
	cpu.PState.C = v&(1<<29) != 0
	cpu.PState.V = v&(1<<28) != 0
	cpu.PState.D = v&(1<<9) != 0
	cpu.PState.A = v&(1<<8) != 0
	cpu.PState.I = v&(1<<7) != 0
	cpu.PState.F = v&(1<<6) != 0
	cpu.PState.SPSel = v&1 != 0
	cpu.PState.EL = int((v >> 2) & 0x3)
}

// raise is the entry point the named handlers below funnel into (j32Break
// and the ThumbEE checks deliver their own traps instead): it rewinds
// PC to the faulting instruction, and either reifies a typed result (when
// capture_breaks is set) or vectors into the appropriate handler, per
// spec.md §4.9 steps 1-4. Either way it returns a *trap error so the
// caller can propagate it straight back up to Step without further
// bookkeeping.
func (cpu *ProcessorState) raise(r Result) error {
	faultPC := cpu.oldPC
	cpu.Regs.PC = faultPC

	if cpu.CaptureBreaks {
		cpu.Result = r
		if r == ResultSVC || r == ResultHVC || r == ResultSMC {
			// A hosted call isn't retried: the host resumes execution after
			// the trapping instruction once it has serviced the call, the
			// same address a vectored SVC would save into LR.
			cpu.Regs.PC = cpu.a32ReturnAddress(r, faultPC)
		}
		return newTrap(r)
	}

	target := cpu.targetEL(r)
	if cpu.elAtEL(target) == 64 {
		cpu.a64Exception(vectorOffsetA64(r), target)
	} else {
		cpu.a32Exception(r, faultPC)
	}
	return newTrap(r)
}

// elAtEL reports the register width (32 or 64) the given EL executes in,
// derived from Configuration.Lowest64OnlyEL and the processor's own
// register width when it is already running in that EL.
func (cpu *ProcessorState) elAtEL(el int) int {
	if cpu.Config.Lowest64OnlyEL != 0 && el >= cpu.Config.Lowest64OnlyEL {
		return 64
	}
	if currentEL(&cpu.PState) == el {
		return cpu.PState.RegWidth
	}
	return 32
}

// The handler names below are the ones spec.md §4.9 names directly; each is
// a thin, named entry point onto raise so executor code reads the same way
// the architecture reference does ("take an undefined-instruction
// exception" rather than "raise(ResultUndefined)").
func (cpu *ProcessorState) reset() error           { return cpu.raise(ResultReset) }
func (cpu *ProcessorState) undefined() error       { return cpu.raise(ResultUndefined) }
func (cpu *ProcessorState) svc() error             { return cpu.raise(ResultSVC) }
func (cpu *ProcessorState) hvc() error             { return cpu.raise(ResultHVC) }
func (cpu *ProcessorState) smc() error             { return cpu.raise(ResultSMC) }
func (cpu *ProcessorState) prefetchAbort() error   { return cpu.raise(ResultPrefetchAbort) }
func (cpu *ProcessorState) dataAbort() error       { return cpu.raise(ResultDataAbort) }
func (cpu *ProcessorState) address26() error       { return cpu.raise(ResultAddress26) }
func (cpu *ProcessorState) irq() error             { return cpu.raise(ResultIRQ) }
func (cpu *ProcessorState) fiq() error             { return cpu.raise(ResultFIQ) }
func (cpu *ProcessorState) serror() error          { return cpu.raise(ResultSError) }
func (cpu *ProcessorState) breakpoint() error      { return cpu.raise(ResultBreakpoint) }
func (cpu *ProcessorState) unaligned() error       { return cpu.raise(ResultUnaligned) }
func (cpu *ProcessorState) unalignedPC() error     { return cpu.raise(ResultUnalignedPC) }
func (cpu *ProcessorState) unalignedSP() error     { return cpu.raise(ResultUnalignedSP) }
func (cpu *ProcessorState) softwareStep() error    { return cpu.raise(ResultSoftwareStep) }
