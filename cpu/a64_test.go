package cpu_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newA64Processor(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	return newTestProcessor(t, cpu.ConfigRequest{Arch: "v8"})
}

func loadA64(t *testing.T, p *cpu.ProcessorState, addr uint64, words ...uint32) {
	t.Helper()
	for i, w := range words {
		buf := []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		require.True(t, p.Memory.Write(p, addr+uint64(i*4), buf, false))
	}
}

func TestStepMovzWide(t *testing.T) {
	p := newA64Processor(t)
	p.Regs.PC = 0x40000
	// MOVZ x0, #5
	loadA64(t, p, 0x40000, 0xD28000A0)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(5), p.ReadA64_64(0, true))
}

func TestStepMovkMergesHalfword(t *testing.T) {
	p := newA64Processor(t)
	p.Regs.PC = 0x40000
	// MOVZ x0, #5 ; MOVK x0, #0xBEEF, lsl #16
	loadA64(t, p, 0x40000, 0xD28000A0, 0xF2B7DDE0)

	require.Equal(t, cpu.ResultOK, p.Step())
	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0xBEEF0005), p.ReadA64_64(0, true))
}

func TestStepUbfmExtractsLowBits(t *testing.T) {
	p := newA64Processor(t)
	p.Regs.PC = 0x40000
	p.WriteA64_64(1, 0x1234ABCD, true)
	// UBFM w0, w1, #0, #3 (UBFX w0, w1, #0, #4): extract the low nibble.
	loadA64(t, p, 0x40000, 0x53000C20)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0xD), p.ReadA64_64(0, true))
}

// spec.md §8: ORR (logical immediate) decodes the N:immr:imms bitmask
// encoding into a replicated bit pattern rather than a literal constant.
func TestStepOrrLogicalImmediateDecodesBitmask(t *testing.T) {
	p := newA64Processor(t)
	p.Regs.PC = 0x40000
	// ORR x0, xzr, #0x5555555555555555 (N=0, immr=0, imms=0b111100)
	loadA64(t, p, 0x40000, 0xB200F3E0)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0x5555555555555555), p.ReadA64_64(0, true))
}

func TestStepSbfmSignExtendsByte(t *testing.T) {
	p := newA64Processor(t)
	p.Regs.PC = 0x40000
	p.WriteA64_64(1, 0xFF, true)
	// SBFM w0, w1, #0, #7 (SXTB w0, w1): sign-extend the low byte.
	loadA64(t, p, 0x40000, 0x13001C20)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0xFFFFFFFF), p.ReadA64_64(0, true))
}
