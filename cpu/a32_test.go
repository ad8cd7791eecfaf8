package cpu_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newA32Processor(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	return newTestProcessor(t, cpu.ConfigRequest{Arch: "v7"})
}

func loadA32(t *testing.T, p *cpu.ProcessorState, addr uint64, words ...uint32) {
	t.Helper()
	for i, w := range words {
		buf := []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		require.True(t, p.Memory.Write(p, addr+uint64(i*4), buf, false))
	}
}

func TestStepMovImmediate(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	// MOV r0, #5 (AL condition, immediate operand2)
	loadA32(t, p, 0x8000, 0xE3A00005)

	result := p.Step()
	assert.Equal(t, cpu.ResultOK, result)
	assert.Equal(t, uint32(5), p.ReadA32(0))
	assert.Equal(t, uint64(0x8004), p.Regs.PC)
}

func TestStepAddSetsFlags(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	// MOV r0, #0xFFFFFFFF via MVN r0, #0
	loadA32(t, p, 0x8000, 0xE3E00000)
	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0xFFFFFFFF), p.ReadA32(0))

	// ADDS r1, r0, #1 -> result 0, carry set, zero set
	loadA32(t, p, 0x8004, 0xE2901001)
	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0), p.ReadA32(1))
	assert.True(t, p.PState.Z)
	assert.True(t, p.PState.C)
}

func TestStepConditionSkipsInstruction(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	p.PState.Z = false
	// MOVEQ r0, #9 - condition EQ fails, so r0 stays 0
	loadA32(t, p, 0x8000, 0x03A00009)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0), p.ReadA32(0))
	assert.Equal(t, uint64(0x8004), p.Regs.PC)
}

func TestStepBranchForward(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	// B with a 24-bit word-offset of 1: target = (pc+8) + 4 = 0x800C.
	loadA32(t, p, 0x8000, 0xEA000001)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0x800C), p.Regs.PC)
}

func TestStepBranchWithLinkSetsLRidx14(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	// BL #0
	loadA32(t, p, 0x8000, 0xEB000000)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0x8004), p.ReadA32(14), "LR should hold the return address")
}

func TestStepUndefinedOpcodeTraps(t *testing.T) {
	p := newA32Processor(t)
	p.CaptureBreaks = true
	p.Regs.PC = 0x8000
	// CDP targeting coprocessor 3, which nothing installs by default.
	loadA32(t, p, 0x8000, 0xEE000300)

	result := p.Step()
	assert.NotEqual(t, cpu.ResultOK, result)
}

func readA32Word(t *testing.T, p *cpu.ProcessorState, addr uint64) uint32 {
	t.Helper()
	buf := make([]byte, 4)
	require.True(t, p.Memory.Read(p, addr, buf, false))
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}

// spec.md §8: STM{writeback} stores the pre-writeback Rn iff Rn is the
// lowest-numbered register in the list.
func TestStepStmWritebackLowestBaseStoresPreWritebackValue(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	p.WriteA32(0, 0x9000)
	p.WriteA32(1, 0x1111)
	p.WriteA32(2, 0x2222)
	// STMIA r0!, {r0, r1, r2} - r0 is both the base and the lowest in the list.
	loadA32(t, p, 0x8000, 0xE8A00007)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0x9000), readA32Word(t, p, 0x9000), "lowest-numbered base should store its pre-writeback value")
	assert.Equal(t, uint32(0x1111), readA32Word(t, p, 0x9004))
	assert.Equal(t, uint32(0x2222), readA32Word(t, p, 0x9008))
	assert.Equal(t, uint32(0x900C), p.ReadA32(0), "base register should hold the written-back address afterwards")
}

func TestStepStmWritebackNonLowestBaseStoresPostWritebackValue(t *testing.T) {
	p := newA32Processor(t)
	p.Regs.PC = 0x8000
	p.WriteA32(0, 0xAAAA)
	p.WriteA32(1, 0xBBBB)
	p.WriteA32(2, 0xCCCC)
	p.WriteA32(3, 0x9000)
	// STMIA r3!, {r0, r1, r2, r3} - r3 is the base but not the lowest in the list.
	loadA32(t, p, 0x8000, 0xE8A3000F)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0xAAAA), readA32Word(t, p, 0x9000))
	assert.Equal(t, uint32(0xBBBB), readA32Word(t, p, 0x9004))
	assert.Equal(t, uint32(0xCCCC), readA32Word(t, p, 0x9008))
	assert.Equal(t, uint32(0x9010), readA32Word(t, p, 0x900C), "non-lowest base should store its post-writeback value")
	assert.Equal(t, uint32(0x9010), p.ReadA32(3))
}

// spec.md §8: on an ARMv3 core running in ARM26 mode, a TEQP-style
// data-processing instruction (S-bit set, Rd=R15) that folds the M4 bit
// (0x10) into the restored R15 value switches the core from 26-bit to
// 32-bit addressing in the same step that restores its flags.
func TestStepTeqpArm26FoldsM4IntoArm32Mode(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v3"})
	p.SetISA(cpu.ISAARM26)
	require.Equal(t, 26, p.PState.RegWidth)
	p.Regs.PC = 0x8000
	// TEQP r15, #0x10 - XORs R15's M4 bit into the result, which CPSR-style
	// writeback then reads back out to pick the new register width.
	loadA32(t, p, 0x8000, 0xE33FF010)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, 32, p.PState.RegWidth)
	assert.Equal(t, cpu.ISAARM32, p.PState.CurrentISA())
}

// spec.md §8: on a BE-32 (word-invariant) system, a word's bytes read "11 22
// 33 44" in address order, and a halfword load at each half of that word
// sees the half's bytes in their natural, non-byte-swapped order.
func TestStepLdrhBigEndian32ReadsWordHalvesInOrder(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v5", Endianness: cpu.BigEndian32})
	p.Regs.PC = 0x8000
	p.WriteA32(0, 0x9000)
	require.True(t, p.Memory.Write(p, 0x9000, []byte{0x11, 0x22, 0x33, 0x44}, false))

	// LDRH r1, [r0]; LDRH r2, [r0, #2] (0xE1D010B0, 0xE1D020B2), stored most
	// significant byte first: a BE-32 core fetches instruction words with the
	// same byte order as data words.
	require.True(t, p.Memory.Write(p, 0x8000, []byte{0xE1, 0xD0, 0x10, 0xB0, 0xE1, 0xD0, 0x20, 0xB2}, false))

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0x1122), p.ReadA32(1))

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0x3344), p.ReadA32(2))
}
