package cpu

// JazelleState carries the executor-local bookkeeping a j32 session needs
// beyond the architectural registers it shares with A32 (the fast-stack
// control field lives in Sys.JazelleSHT since it is architectural state;
// this struct holds the invocation-frame bookkeeping, spec.md §4.8).
type JazelleState struct {
	LOC0 uint32 // cached word at [LOC], refreshed by j32_update_locals
}

// Conventional register assignments for the Jazelle execution model,
// matching the picoJava-derived convention spec.md §4.8 describes: R6 is
// the stack pointer (TOS), R5 the locals pointer, R4 the constant pool
// pointer, R8 the method-context pointer.
const (
	j32TOS = 6
	j32LOC = 5
	j32CP  = 4
	j32LINK = 8
)

func (cpu *ProcessorState) j32FastStackSize() uint32 {
	return (cpu.Sys.JazelleSHT >> 2) & 7
}

func (cpu *ProcessorState) j32FastStackTop() uint32 {
	if cpu.Sys.JazelleSHT&0x1C != 0 {
		return cpu.Sys.JazelleSHT & 3
	}
	return 3
}

func (cpu *ProcessorState) j32FastStackElement(offset uint32) uint32 {
	if cpu.Sys.JazelleSHT&0x1C != 0 {
		return (cpu.j32FastStackTop() - offset) & 3
	}
	return (offset + 3) & 3
}

func (cpu *ProcessorState) j32SetFastStackSizeTop(size, top uint32) {
	if size == 0 {
		top = 0
	}
	if size > 4 {
		size = 4
	}
	cpu.Sys.JazelleSHT &^= 0x1F
	cpu.Sys.JazelleSHT |= top & 3
	cpu.Sys.JazelleSHT |= size << 2
}

func (cpu *ProcessorState) j32PushWordMemory(value uint32) {
	sp := cpu.ReadA32(j32TOS)
	cpu.WriteA32(j32TOS, sp+4)
	writeWidth(cpu.Memory, cpu, uint64(sp), 4, uint64(value), cpu.Config.Endianness, cpu.privileged())
}

func (cpu *ProcessorState) j32PopWordMemory() uint32 {
	sp := cpu.ReadA32(j32TOS) - 4
	v, _ := readWidth(cpu.Memory, cpu, uint64(sp), 4, cpu.Config.Endianness, cpu.privileged())
	cpu.WriteA32(j32TOS, sp)
	return uint32(v)
}

// j32SpillFastStackSize stores registers into memory until the cache holds
// at most `destination` live elements (spec.md §4.8).
func (cpu *ProcessorState) j32SpillFastStackSize(destination uint32) {
	current := cpu.j32FastStackSize()
	top := cpu.j32FastStackTop()
	if current <= destination {
		return
	}
	for current > destination {
		reg := (top - (current - 1)) & 3
		cpu.j32PushWordMemory(cpu.ReadA32(int(reg)))
		current--
	}
	cpu.j32SetFastStackSizeTop(destination, top)
}

// j32FillFastStackSize reloads registers from memory until the cache holds
// at least `destination` live elements.
func (cpu *ProcessorState) j32FillFastStackSize(destination uint32) {
	current := cpu.j32FastStackSize()
	top := cpu.j32FastStackTop()
	if current >= destination {
		return
	}
	if current == 0 {
		top = destination - 1
	}
	for current < destination {
		value := cpu.j32PopWordMemory()
		cpu.WriteA32(int((top-current)&3), value)
		current++
	}
	cpu.j32SetFastStackSizeTop(destination, top)
}

// j32SpillFastStack empties the register cache entirely, required before
// any operation that observes TOS from memory (spec.md §4.8).
func (cpu *ProcessorState) j32SpillFastStack() {
	cpu.j32SpillFastStackSize(0)
}

// j32UpdateLocals refreshes the cached first-local word, called after any
// operation that could have changed the locals pointer.
func (cpu *ProcessorState) j32UpdateLocals() {
	v, _ := readWidth(cpu.Memory, cpu, uint64(cpu.ReadA32(j32LOC)), 4, cpu.Config.Endianness, cpu.privileged())
	cpu.Jazelle.LOC0 = uint32(v)
}

func (cpu *ProcessorState) j32PushWord(value uint32) {
	size := cpu.j32FastStackSize()
	if size == 4 {
		cpu.j32SpillFastStackSize(3)
		size = 3
	}
	top := (cpu.j32FastStackTop() + 1) & 3
	cpu.WriteA32(int(top), value)
	size++
	cpu.j32SetFastStackSizeTop(size, top)
}

func (cpu *ProcessorState) j32PopWord() uint32 {
	size := cpu.j32FastStackSize()
	if size == 0 {
		cpu.j32FillFastStackSize(1)
		size = 1
	}
	top := cpu.j32FastStackTop()
	value := cpu.ReadA32(int(top))
	top = (top - 1) & 3
	size--
	cpu.j32SetFastStackSizeTop(size, top)
	return value
}

func (cpu *ProcessorState) j32PeekWord(index uint32) uint32 {
	if index <= 3 {
		size := cpu.j32FastStackSize()
		if size <= index {
			cpu.j32FillFastStackSize(index + 1)
		}
		return cpu.ReadA32(int(cpu.j32FastStackElement(index)))
	}
	size := cpu.j32FastStackSize()
	sp := cpu.ReadA32(j32TOS)
	v, _ := readWidth(cpu.Memory, cpu, uint64(sp)-4*uint64(1+index-size), 4, cpu.Config.Endianness, cpu.privileged())
	return uint32(v)
}

func (cpu *ProcessorState) j32PushDword(value uint64) {
	cpu.j32PushWord(uint32(value))
	cpu.j32PushWord(uint32(value >> 32))
}

func (cpu *ProcessorState) j32PopDword() uint64 {
	hi := cpu.j32PopWord()
	lo := cpu.j32PopWord()
	return uint64(hi)<<32 | uint64(lo)
}

// Jazelle exception indices, matching the handler table j32_break vectors
// into (spec.md §4.8).
const (
	j32ExceptionUndefined = iota
	j32ExceptionNullPtr
	j32ExceptionOutOfBounds
	j32ExceptionDisabled
	j32ExceptionInvalid
	j32ExceptionPrefetchAbort
)

// j32Break implements spec.md §4.8's exception delivery: spills the fast
// stack first so memory reflects the full operand stack, then either
// reifies a typed result or dispatches into the software handler table at
// (JazelleSHT & ~0xFFF) + (index << 2).
func (cpu *ProcessorState) j32Break(index uint32) error {
	cpu.j32SpillFastStack()
	cpu.Regs.PC = cpu.oldPC

	if cpu.CaptureBreaks {
		switch index {
		case j32ExceptionNullPtr:
			cpu.Result = ResultJazelleNullptr
		case j32ExceptionOutOfBounds:
			cpu.Result = ResultJazelleOutOfBounds
		case j32ExceptionDisabled:
			cpu.Result = ResultJazelleDisabled
		case j32ExceptionInvalid:
			cpu.Result = ResultJazelleInvalid
		case j32ExceptionPrefetchAbort:
			cpu.Result = ResultJazellePrefetchAbort
		default:
			cpu.Result = ResultJazelleUndefined
		}
		return newTrap(cpu.Result)
	}

	*cpu.physGPR(14) = cpu.Regs.PC
	cpu.SetISA(ISAARM32)
	cpu.Regs.PC = uint64(cpu.Sys.JazelleSHT&0xFFFFF000) + uint64(index<<2)
	return newTrap(ResultJazelleUndefined)
}

// jazelleEntry sets up the register convention state BXJ leaves behind:
// J=1,T=0 was already applied by the caller's SetISA, LR already holds the
// return address; this clears the reserved SHT bits BXJ resets.
func (cpu *ProcessorState) jazelleEntry(addr uint32) {
	cpu.Sys.JazelleSHT &^= 0x000003C0
}

// j32ArrayAccess computes an array's element base and bound-checks index,
// governed by JOSCR/JAOLR per spec.md §4.8. flatArray selects whether the
// array reference itself is the data header (JOSCR.flat-array set) or a
// pointer to one (indirected through a header pointer).
func (cpu *ProcessorState) j32ArrayAccess(arrayRef uint32, index uint32, elemShift uint32) (uint64, error) {
	if arrayRef == 0 {
		return 0, cpu.j32Break(j32ExceptionNullPtr)
	}

	header := arrayRef
	flatArray := cpu.Sys.JOSCR&(1<<0) != 0
	if !flatArray {
		v, ok := readWidth(cpu.Memory, cpu, uint64(arrayRef), 4, cpu.Config.Endianness, cpu.privileged())
		if !ok {
			return 0, cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		header = uint32(v)
	}

	lengthOffNeg := cpu.Sys.JAOLR&(1<<31) != 0
	lengthOff := (cpu.Sys.JAOLR >> 16) & 0x7FFF
	elementOff := cpu.Sys.JAOLR & 0xFFFF
	lenShift := (cpu.Sys.JAOLR >> 28) & 0x7

	var lengthAddr uint64
	if lengthOffNeg {
		lengthAddr = uint64(header) - uint64(lengthOff)
	} else {
		lengthAddr = uint64(header) + uint64(lengthOff)
	}
	rawLen, ok := readWidth(cpu.Memory, cpu, lengthAddr, 4, cpu.Config.Endianness, cpu.privileged())
	if !ok {
		return 0, cpu.j32Break(j32ExceptionPrefetchAbort)
	}
	length := uint32(rawLen) >> lenShift

	if index >= length {
		return 0, cpu.j32Break(j32ExceptionOutOfBounds)
	}

	stride := uint64(1) << elemShift
	return uint64(header) + uint64(elementOff) + uint64(index)*stride, nil
}
