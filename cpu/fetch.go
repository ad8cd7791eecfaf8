package cpu

// fetchWidth returns the raw access width the current ISA fetches at, per
// spec.md §4.4: 2 bytes for Thumb/ThumbEE (the executor re-fetches a second
// halfword itself for 32-bit Thumb-2 encodings), 1 for Jazelle bytecode, 4
// for everything else.
func (cpu *ProcessorState) fetchWidth() int {
	switch cpu.PState.CurrentISA() {
	case ISAThumb, ISAThumbEE:
		return 2
	case ISAJazelle:
		return 1
	default:
		return 4
	}
}

// fetch reads the next instruction unit at R[PC], advances PC by its width,
// and applies the ARM26 26-bit PC mask after advance. A64 additionally
// faults on an unaligned PC.
func (cpu *ProcessorState) fetch() (uint32, error) {
	width := cpu.fetchWidth()
	pc := cpu.Regs.PC

	if cpu.PState.RegWidth == 64 && pc&3 != 0 {
		return 0, cpu.unalignedPC()
	}

	var v uint64
	var ok bool
	if cpu.PState.CurrentISA() == ISAJazelle {
		v, ok = cpu.fetchJazelleByte(pc)
	} else {
		v, ok = readWidth(cpu.Memory, cpu, pc, width, cpu.Config.Endianness, cpu.privileged())
	}
	if !ok {
		return 0, cpu.prefetchAbort()
	}

	cpu.Regs.PC = pc + uint64(width)
	if cpu.PState.RegWidth == 26 {
		cpu.Regs.PC &= 0x03FFFFFC
	}
	return uint32(v), nil
}

// fetchJazelleByte reads one opcode byte. Jazelle bytecode is a single
// big-endian byte stream regardless of configured data endianness
// (spec.md §4.4); multi-byte operands go through fetchJazelleImmediate,
// which applies the same big-endian interpretation.
func (cpu *ProcessorState) fetchJazelleByte(addr uint64) (uint64, bool) {
	buf, ok := readRaw(cpu.Memory, cpu, addr, 1, cpu.privileged())
	if !ok {
		return 0, false
	}
	return uint64(buf[0]), true
}

// fetchJazelleImmediate reads an n-byte (2 or 4) big-endian immediate at
// addr without touching PC, used by bytecodes whose operands trail the
// opcode byte. Memory is stored per the configured endianness; Jazelle
// immediates are always interpreted big-endian (spec.md §4.4), so an
// LE-configured machine's bytes are byte-swapped here.
func (cpu *ProcessorState) fetchJazelleImmediate(addr uint64, n int) (uint32, bool) {
	buf, ok := readRaw(cpu.Memory, cpu, addr, n, cpu.privileged())
	if !ok {
		return 0, false
	}
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<8 | uint32(buf[i])
	}
	return v, true
}

// fetchSecondThumbHalfword reads the trailing halfword of a 32-bit Thumb-2
// encoding. Call only after determining the first halfword's top five bits
// mark a 32-bit form (spec.md §4.6).
func (cpu *ProcessorState) fetchSecondThumbHalfword() (uint16, error) {
	v, ok := readWidth(cpu.Memory, cpu, cpu.Regs.PC, 2, cpu.Config.Endianness, cpu.privileged())
	if !ok {
		return 0, cpu.prefetchAbort()
	}
	cpu.Regs.PC += 2
	return uint16(v), nil
}

// is32BitThumb reports whether a first Thumb halfword indicates a 32-bit
// Thumb-2 encoding: top five bits 0b11101, 0b11110, or 0b11111.
func is32BitThumb(h uint16) bool {
	top5 := h >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}
