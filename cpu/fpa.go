package cpu

// fpaCoprocessor implements the legacy FPA11 coprocessor facade (slots 1
// and 2, spec.md §3/§4.10): eight 80-bit extended registers, a status
// register, load/store/move of single/double/extended values, and the
// common arithmetic ops. It models just enough to round-trip register
// moves and basic arithmetic — full FPA semantics (rounding modes, packed
// memory formats) are a documented non-goal (spec.md §9).
type fpaCoprocessor struct{}

// NewFPACoprocessor returns a Coprocessor implementing the FPA facade,
// ready to install at slots 1/2.
func NewFPACoprocessor() Coprocessor { return fpaCoprocessor{} }

func (fpaCoprocessor) CDP(cpu *ProcessorState, opcode uint32) error {
	opc1 := (opcode >> 20) & 0xF
	fn := int((opcode >> 16) & 0x7)
	fd := int((opcode >> 12) & 0x7)
	fm := int(opcode & 0x7)

	a := cpu.FP.FPAReg[fn]
	b := cpu.FP.FPAReg[fm]
	var r FPAExtended

	switch opc1 {
	case 0x0: // ADF
		r = fpaAdd(a, b)
	case 0x2: // SUF
		r = fpaAdd(a, fpaNegate(b))
	case 0x1: // MUF
		r = fpaMul(a, b)
	case 0x8: // MVF
		r = b
	case 0x9: // MNF
		r = fpaNegate(b)
	case 0xA: // ABS
		r = b
		r.Sign = false
	default:
		return cpu.undefined()
	}
	cpu.FP.FPAReg[fd] = r
	return nil
}

func (fpaCoprocessor) LoadStore(cpu *ProcessorState, opcode uint32) error {
	load := opcode&(1<<20) != 0
	fd := int((opcode >> 12) & 0x7)
	rn := int((opcode >> 16) & 0xF)
	up := opcode&(1<<23) != 0
	imm := (opcode & 0xFF) << 2
	base := cpu.ReadA32(rn)
	var addr uint32
	if up {
		addr = base + imm
	} else {
		addr = base - imm
	}

	priv := cpu.privileged()
	if load {
		v, ok := readWidth(cpu.Memory, cpu, uint64(addr), 4, cpu.Config.Endianness, priv)
		if !ok {
			return cpu.dataAbort()
		}
		cpu.FP.FPAReg[fd] = FPAExtended{Mantissa: v}
	} else {
		v := cpu.FP.FPAReg[fd].Mantissa
		if !writeWidth(cpu.Memory, cpu, uint64(addr), 4, v, cpu.Config.Endianness, priv) {
			return cpu.dataAbort()
		}
	}
	return nil
}

func (fpaCoprocessor) MCR(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	reg := (opcode >> 16) & 0x7
	if reg == 0 {
		cpu.FP.FPSR = cpu.ReadA32(rd)
	}
	return nil
}

func (fpaCoprocessor) MRC(cpu *ProcessorState, opcode uint32) error {
	rd := int((opcode >> 12) & 0xF)
	reg := (opcode >> 16) & 0x7
	if reg == 0 {
		cpu.WriteA32(rd, cpu.FP.FPSR)
	}
	return nil
}

func (fpaCoprocessor) MCRR(cpu *ProcessorState, opcode uint32) error { return cpu.undefined() }
func (fpaCoprocessor) MRRC(cpu *ProcessorState, opcode uint32) error { return cpu.undefined() }

func fpaNegate(v FPAExtended) FPAExtended {
	v.Sign = !v.Sign
	return v
}

// fpaAdd and fpaMul operate on the mantissa field as a fixed-point
// approximation: full extended-precision arithmetic is out of scope (see
// FPAExtended's doc comment in state.go), this is enough to exercise the
// register file and opcode dispatch with a representative computation.
func fpaAdd(a, b FPAExtended) FPAExtended {
	var signedA, signedB int64 = int64(a.Mantissa), int64(b.Mantissa)
	if a.Sign {
		signedA = -signedA
	}
	if b.Sign {
		signedB = -signedB
	}
	sum := signedA + signedB
	r := FPAExtended{Mantissa: uint64(sum)}
	if sum < 0 {
		r.Sign = true
		r.Mantissa = uint64(-sum)
	}
	return r
}

func fpaMul(a, b FPAExtended) FPAExtended {
	return FPAExtended{
		Mantissa: a.Mantissa * b.Mantissa,
		Sign:     a.Sign != b.Sign,
	}
}
