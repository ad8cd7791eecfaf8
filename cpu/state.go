package cpu

// RegisterFile holds every physical storage slot the register aliasing
// table in regs.go can resolve to. It is a flat set of named fields rather
// than spec.md §3's literal indexed array — the mapping from (mode,
// logical-number) to a slot is still made in one place (physGPR/bankedSPLR/
// a64Slot in regs.go), it just yields a pointer into this struct instead of an array
// index, which is the idiomatic Go shape for the same invariant: banked and
// shared registers differ only by mode (spec.md §9 design note).
type RegisterFile struct {
	R [13]uint64 // R0-R12, shared by every mode except FIQ's R8-R12

	R8Fiq, R9Fiq, R10Fiq, R11Fiq, R12Fiq uint64

	SPUsr, LRUsr uint64
	SPFiq, LRFiq uint64
	SPIrq, LRIrq uint64
	SPSvc, LRSvc uint64
	SPAbt, LRAbt uint64
	SPUnd, LRUnd uint64
	SPMon, LRMon uint64
	SPHyp        uint64

	PC uint64

	// A64-only view of x13-x29: the A32 banks above cover the low 32 bits
	// of x13/x14 per mode and x8-x12 under FIQ; these cover the rest of
	// the 64-bit width so A64 code sees a full register file. Real
	// hardware physically reuses the high halves of x16-x29 for the A32
	// FIQ/IRQ/SVC/ABT/UND banks (spec.md §3); this is a behavioral, not
	// bit-exact, model of that reuse.
	X1329 [17]uint64 // indexed by (reg-13), covers x13..x29
	X30   uint64      // A64 x30 / link register
	SPEL  [4]uint64    // SP_EL0..SP_EL3

	SpsrEL               [4]uint64 // index 1..3 used for SPSR_EL1..EL3
	SpsrAbt, SpsrUnd     uint64
	SpsrIrq, SpsrFiq     uint64
	SpsrSvc, SpsrMon     uint64
	SpsrHyp              uint64
}

// FPMode selects which of the two alternative floating-point register
// shapes spec.md §3 describes is active.
type FPMode int

const (
	FPModeNone FPMode = iota
	FPModeFPA
	FPModeVFP
)

// FPState is the floating-point/SIMD register bank, covering both the
// legacy FPA shape and the VFP/Advanced-SIMD shape per spec.md §3.
type FPState struct {
	Mode FPMode

	// FPA: 8 registers of 80-bit extended precision, modeled as the
	// mantissa/exponent/sign a Go program can actually compute with; no raw
	// 80-bit image is kept.
	FPAReg [8]FPAExtended
	FPSR   uint32
	FPCR   uint32

	// VFP/Advanced SIMD: 32 64-bit slots, addressable as 32-bit lanes
	// (2 singles per double) through the FormatBits mask recording which
	// lanes currently hold a double (spec.md §3 invariant 5).
	VFPReg     [32]uint64
	FormatBits uint32
	FPSID      uint32
	FPSCR      uint32
	FPEXC      uint32
}

// FPAExtended is a placeholder 80-bit extended-precision value: sign,
// 15-bit biased exponent, 64-bit mantissa, stored as three Go-native
// fields rather than a packed byte image (spec.md §9 open question: full
// FPA semantics, including packed/extended memory layouts, are out of
// scope; this is enough to round-trip register moves and basic arithmetic).
type FPAExtended struct {
	Sign     bool
	Exponent uint16
	Mantissa uint64
}

// ExclusiveMonitor is the [low, high] address range load-exclusive /
// store-exclusive operate over (spec.md §3, §5).
type ExclusiveMonitor struct {
	Low, High uint64 // empty iff Low > High
	ProcID    uint32 // tracked but never matched (spec.md §9 open question)
	Valid     bool
}

func (m *ExclusiveMonitor) Clear() {
	m.Valid = false
	m.Low, m.High = 1, 0
}

// Set records an exclusive range for a load-exclusive of the given width.
func (m *ExclusiveMonitor) Set(addr uint64, size uint64, procID uint32) {
	m.Low = addr
	m.High = addr + size - 1
	m.ProcID = procID
	m.Valid = true
}

// OverlapsAndClear clears the monitor if [addr, addr+size) overlaps the
// live range, and reports whether it did (spec.md §3 invariant 6).
func (m *ExclusiveMonitor) OverlapsAndClear(addr uint64, size uint64) bool {
	if !m.Valid {
		return false
	}
	end := addr + size - 1
	if end < m.Low || addr > m.High {
		return false
	}
	m.Clear()
	return true
}

// Contains reports whether [addr, addr+size) is fully within the live
// range — the success condition for STREX* (spec.md §3 invariant 6).
func (m *ExclusiveMonitor) Contains(addr uint64, size uint64) bool {
	if !m.Valid {
		return false
	}
	end := addr + size - 1
	return addr >= m.Low && end <= m.High
}

// SystemRegisters holds the per-EL shadow registers and Jazelle/ThumbEE
// control registers spec.md §3 names.
type SystemRegisters struct {
	SCTLR  [4]uint32 // indexed by EL 0..3 (EL0 slot unused, kept for symmetry)
	SCREL3 uint32
	HCREL2 uint32
	VBAR   [4]uint64 // indexed by EL

	JOSCR, JMCR, JAOLR, JIDR uint32
	TEEHBR                   uint64

	// Jazelle fast-stack control field: top register (0..3) and live
	// element count (0..4), packed as spec.md §4.8 describes; kept here
	// because it is architectural state, not executor-local state
	// (spec.md §9 design note).
	JazelleSHT uint32
}

// ProcessorState is the single aggregate spec.md §3 describes: register
// file, PSTATE, floating-point state, exclusive monitor, system-register
// shadows, and the break-capture flag/result code.
type ProcessorState struct {
	Config *Configuration
	Memory MemoryInterface

	Regs  RegisterFile
	PState PSTATE
	FP    FPState
	Mon   ExclusiveMonitor
	Sys   SystemRegisters

	Coprocessors CoprocessorTable
	Jazelle      JazelleState

	// SystemCall is invoked when Jazelle method invocation resolves a
	// zero-valued constant-pool slot (spec.md §4.8's "system call"
	// sentinel). The 0xFE/0x01 swi extension opcode does not use it: it
	// raises SVC like an A32 svc. The hosted-syscall shim itself is an external collaborator; this is
	// only the hook it wires into.
	SystemCall func(cpu *ProcessorState, selector uint32)

	CaptureBreaks bool
	Result        Result

	elr [4]uint64 // ELR_EL1..EL3, indexed by EL (index 0 unused)

	oldPC uint64 // PC of the instruction currently being executed, for fault rewind
}

// New creates a processor with the given configuration and memory
// interface, uninitialized otherwise (spec.md §3 "Lifecycle").
func New(cfg *Configuration, mem MemoryInterface) *ProcessorState {
	cpu := &ProcessorState{Config: cfg, Memory: mem}
	cpu.PState.Mode = ModeSVC
	cpu.SetISA(cfg.DefaultISA)
	return cpu
}

// Reset vectors the processor to EL3/EL2/EL1 reset as determined by the
// supported ELs (spec.md §3 "Lifecycle").
func (cpu *ProcessorState) Reset() {
	cpu.Regs = RegisterFile{}
	cpu.FP = FPState{}
	cpu.Mon.Clear()
	cpu.Sys = SystemRegisters{}
	cpu.PState = PSTATE{}
	cpu.SetISA(cpu.Config.DefaultISA)

	targetEL := 1
	if cpu.Config.EL3Supported {
		targetEL = 3
	} else if cpu.Config.EL2Supported {
		targetEL = 2
	}
	if cpu.PState.RegWidth == 64 {
		cpu.PState.EL = targetEL
		cpu.PState.SPSel = true
	} else {
		cpu.PState.Mode = ModeSVC
	}
	cpu.Regs.PC = 0
	cpu.PState.I, cpu.PState.F, cpu.PState.A = true, true, true
}
