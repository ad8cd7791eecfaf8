package cpu

// stepJazelle fetches one opcode byte and dispatches it. Only a
// representative subset of the JVM bytecode set is implemented — enough to
// run straight-line arithmetic, local-variable access, control flow,
// static-field-free array access, and the system-call invocation
// convention; anything else traps Undefined the way an unimplemented
// bytecode does on real hardware (spec.md §4.8, §9 open question).
func (cpu *ProcessorState) stepJazelle() error {
	opcode, err := cpu.fetch()
	if err != nil {
		return err
	}
	op := byte(opcode)

	switch op {
	case 0x00: // nop
		return nil
	case 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08: // iconst_m1..iconst_5
		cpu.j32PushWord(uint32(int32(op) - 0x03))
		return nil
	case 0x1A, 0x1B, 0x1C, 0x1D: // iload_0..iload_3
		n := uint32(op - 0x1A)
		v, _ := readWidth(cpu.Memory, cpu, uint64(cpu.ReadA32(j32LOC))-4*uint64(n), 4, cpu.Config.Endianness, cpu.privileged())
		cpu.j32PushWord(uint32(v))
		return nil
	case 0x3B, 0x3C, 0x3D, 0x3E: // istore_0..istore_3
		n := uint32(op - 0x3B)
		v := cpu.j32PopWord()
		writeWidth(cpu.Memory, cpu, uint64(cpu.ReadA32(j32LOC))-4*uint64(n), 4, uint64(v), cpu.Config.Endianness, cpu.privileged())
		return nil
	case 0x15: // iload <index>
		idx, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 1)
		if !ok {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		cpu.Regs.PC++
		v, _ := readWidth(cpu.Memory, cpu, uint64(cpu.ReadA32(j32LOC))-4*uint64(idx), 4, cpu.Config.Endianness, cpu.privileged())
		cpu.j32PushWord(uint32(v))
		return nil
	case 0x36: // istore <index>
		idx, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 1)
		if !ok {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		cpu.Regs.PC++
		v := cpu.j32PopWord()
		writeWidth(cpu.Memory, cpu, uint64(cpu.ReadA32(j32LOC))-4*uint64(idx), 4, uint64(v), cpu.Config.Endianness, cpu.privileged())
		return nil
	case 0x60: // iadd
		b := cpu.j32PopWord()
		a := cpu.j32PopWord()
		cpu.j32PushWord(a + b)
		return nil
	case 0x64: // isub
		b := cpu.j32PopWord()
		a := cpu.j32PopWord()
		cpu.j32PushWord(a - b)
		return nil
	case 0x68: // imul
		b := cpu.j32PopWord()
		a := cpu.j32PopWord()
		cpu.j32PushWord(a * b)
		return nil
	case 0x59: // dup
		v := cpu.j32PeekWord(0)
		cpu.j32PushWord(v)
		return nil
	case 0x57: // pop
		cpu.j32PopWord()
		return nil
	case 0xA7: // goto <branchbyte1><branchbyte2>
		off, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 2)
		if !ok {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		base := cpu.oldPC
		cpu.Regs.PC = base + uint64(int64(int16(off)))
		return nil
	case 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9E: // ifeq/ifne/iflt/ifge/ifgt/ifle
		off, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 2)
		if !ok {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		cpu.Regs.PC += 2
		v := int32(cpu.j32PopWord())
		taken := false
		switch op {
		case 0x99:
			taken = v == 0
		case 0x9A:
			taken = v != 0
		case 0x9B:
			taken = v < 0
		case 0x9C:
			taken = v >= 0
		case 0x9D:
			taken = v > 0
		case 0x9E:
			taken = v <= 0
		}
		if taken {
			cpu.Regs.PC = cpu.oldPC + uint64(int64(int16(off)))
		}
		return nil
	case 0xAC: // ireturn
		v := cpu.j32PopWord()
		return cpu.j32Return(1, v, 0)
	case 0xB1: // return
		return cpu.j32Return(0, 0, 0)
	case 0xBE: // arraylength
		ref := cpu.j32PopWord()
		length, err := cpu.j32ArrayLength(ref)
		if err != nil {
			return err
		}
		cpu.j32PushWord(length)
		return nil
	case 0x2E: // iaload
		index := cpu.j32PopWord()
		ref := cpu.j32PopWord()
		addr, err := cpu.j32ArrayAccess(ref, index, 2)
		if err != nil {
			return err
		}
		v, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, cpu.privileged())
		if !ok {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		cpu.j32PushWord(uint32(v))
		return nil
	case 0x4F: // iastore
		value := cpu.j32PopWord()
		index := cpu.j32PopWord()
		ref := cpu.j32PopWord()
		addr, err := cpu.j32ArrayAccess(ref, index, 2)
		if err != nil {
			return err
		}
		if !writeWidth(cpu.Memory, cpu, addr, 4, uint64(value), cpu.Config.Endianness, cpu.privileged()) {
			return cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		return nil
	case 0xB8, 0xBA, 0xB9: // invokestatic / invokedynamic / invokeinterface
		return cpu.j32Invoke(op)
	case 0xFE: // extension opcodes
		return cpu.j32Extension()
	case 0xFF: // bkpt #0 in the picoJava-compatible mapping
		return cpu.breakpoint()
	default:
		return cpu.j32Break(j32ExceptionUndefined)
	}
}

// j32ArrayLength reads an array's length the same way j32ArrayAccess does,
// without an index to bound-check.
func (cpu *ProcessorState) j32ArrayLength(arrayRef uint32) (uint32, error) {
	if arrayRef == 0 {
		return 0, cpu.j32Break(j32ExceptionNullPtr)
	}
	header := arrayRef
	if cpu.Sys.JOSCR&1 == 0 {
		v, ok := readWidth(cpu.Memory, cpu, uint64(arrayRef), 4, cpu.Config.Endianness, cpu.privileged())
		if !ok {
			return 0, cpu.j32Break(j32ExceptionPrefetchAbort)
		}
		header = uint32(v)
	}
	lengthOffNeg := cpu.Sys.JAOLR&(1<<31) != 0
	lengthOff := (cpu.Sys.JAOLR >> 16) & 0x7FFF
	lenShift := (cpu.Sys.JAOLR >> 28) & 0x7
	var addr uint64
	if lengthOffNeg {
		addr = uint64(header) - uint64(lengthOff)
	} else {
		addr = uint64(header) + uint64(lengthOff)
	}
	raw, ok := readWidth(cpu.Memory, cpu, addr, 4, cpu.Config.Endianness, cpu.privileged())
	if !ok {
		return 0, cpu.j32Break(j32ExceptionPrefetchAbort)
	}
	return uint32(raw) >> lenShift, nil
}

// j32Frame is an invocation-stack entry: the caller's (PC, locals pointer,
// constant-pool pointer, link) per spec.md §4.8's method invocation
// convention.
type j32Frame struct {
	pc, loc, cp, link uint32
}

// j32Invoke implements invokestatic/invokedynamic/invokeinterface. When the
// two-byte constant-pool index operand resolves to a zero-valued slot (the
// sentinel "system call" marker) the native action is performed directly
// and execution resumes after the instruction and its operands; otherwise
// a frame is pushed and control transfers into the callee body at the
// resolved method entry.
func (cpu *ProcessorState) j32Invoke(opcode byte) error {
	operandLen := 2
	if opcode == 0xB9 { // invokeinterface carries two extra bytes
		operandLen = 4
	}
	cpIndex, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 2)
	if !ok {
		return cpu.j32Break(j32ExceptionPrefetchAbort)
	}
	cpu.Regs.PC += uint64(operandLen)

	cpBase := cpu.ReadA32(j32CP)
	slotAddr := uint64(cpBase) + uint64(cpIndex)*4
	slot, ok := readWidth(cpu.Memory, cpu, slotAddr, 4, cpu.Config.Endianness, cpu.privileged())
	if !ok {
		return cpu.j32Break(j32ExceptionPrefetchAbort)
	}

	if slot == 0 {
		return cpu.j32SystemCall(uint32(cpIndex))
	}

	frame := j32Frame{
		pc:   uint32(cpu.Regs.PC),
		loc:  cpu.ReadA32(j32LOC),
		cp:   cpBase,
		link: cpu.ReadA32(j32LINK),
	}
	cpu.j32PushWord(frame.link)
	cpu.j32PushWord(frame.cp)
	cpu.j32PushWord(frame.loc)
	cpu.j32PushWord(frame.pc)

	cpu.Regs.PC = uint64(slot)
	cpu.WriteA32(j32LOC, uint32(cpu.ReadA32(j32TOS)))
	cpu.j32UpdateLocals()
	return nil
}

// j32Return unwinds one invocation frame, pushing 0, 1, or 2 return words
// (none/int-or-reference/long-or-double) per the opcode that triggered it.
func (cpu *ProcessorState) j32Return(words int, lo, hi uint32) error {
	savedPC := cpu.j32PopWord()
	savedLOC := cpu.j32PopWord()
	savedCP := cpu.j32PopWord()
	savedLink := cpu.j32PopWord()

	cpu.Regs.PC = uint64(savedPC)
	cpu.WriteA32(j32LOC, savedLOC)
	cpu.WriteA32(j32CP, savedCP)
	cpu.WriteA32(j32LINK, savedLink)
	cpu.j32UpdateLocals()

	if words >= 1 {
		cpu.j32PushWord(lo)
	}
	if words >= 2 {
		cpu.j32PushWord(hi)
	}
	return nil
}

// j32SystemCall performs the native action a zero constant-pool slot
// designates. The action itself is host-defined (spec.md §6's hosted
// syscall collaborator); here it is dispatched through cpu.SystemCall,
// which a host wires to its own ABI.
func (cpu *ProcessorState) j32SystemCall(selector uint32) error {
	if cpu.SystemCall == nil {
		return cpu.j32Break(j32ExceptionInvalid)
	}
	cpu.SystemCall(cpu, selector)
	return nil
}

// j32Extension implements the 0xFE byte's non-historical extension
// opcodes: 00 ret_from_jazelle, 01 swi (spec.md §4.8).
func (cpu *ProcessorState) j32Extension() error {
	sub, ok := cpu.fetchJazelleImmediate(cpu.Regs.PC, 1)
	if !ok {
		return cpu.j32Break(j32ExceptionPrefetchAbort)
	}
	cpu.Regs.PC++
	switch sub {
	case 0x00: // ret_from_jazelle
		target := cpu.j32PopWord()
		cpu.WriteA32Interworking(15, target)
		return nil
	case 0x01: // swi
		return cpu.svc()
	default:
		return cpu.j32Break(j32ExceptionUndefined)
	}
}
