package cpu_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newT32Processor(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v7", Thumb: true})
	p.SetISA(cpu.ISAThumb)
	return p
}

func loadT16(t *testing.T, p *cpu.ProcessorState, addr uint64, halfwords ...uint16) {
	t.Helper()
	for i, h := range halfwords {
		buf := []byte{byte(h), byte(h >> 8)}
		require.True(t, p.Memory.Write(p, addr+uint64(i*2), buf, false))
	}
}

func TestStepThumbMovImmediate(t *testing.T) {
	p := newT32Processor(t)
	p.Regs.PC = 0x8000
	// MOVS r0, #0x20
	loadT16(t, p, 0x8000, 0x2020)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(0x20), p.ReadA32(0))
	assert.False(t, p.PState.Z)
	assert.Equal(t, uint64(0x8002), p.Regs.PC)
}

func TestStepThumbAddSubRegister(t *testing.T) {
	p := newT32Processor(t)
	p.Regs.PC = 0x8000
	p.WriteA32(1, 10)
	p.WriteA32(2, 3)
	// SUBS r0, r1, r2
	loadT16(t, p, 0x8000, 0x1A88)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint32(7), p.ReadA32(0))
}

// spec.md §8: an ITTE EQ block gates its three following instructions on
// the base condition, the same condition, and its inverse respectively.
func TestStepThumbItBlockGatesConditionally(t *testing.T) {
	cases := []struct {
		name                   string
		r0                     uint32
		wantR1, wantR2, wantR3 uint32
	}{
		{"condition holds", 0, 1, 2, 0},
		{"condition fails", 1, 0, 0, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newT32Processor(t)
			p.Regs.PC = 0x8000
			p.WriteA32(0, tc.r0)
			// cmp r0,#0; itte eq; moveq r1,#1; moveq r2,#2; movne r3,#3
			loadT16(t, p, 0x8000, 0x2800, 0xBF03, 0x2101, 0x2202, 0x2303)
			for i := 0; i < 5; i++ {
				require.Equal(t, cpu.ResultOK, p.Step())
			}
			assert.Equal(t, tc.wantR1, p.ReadA32(1))
			assert.Equal(t, tc.wantR2, p.ReadA32(2))
			assert.Equal(t, tc.wantR3, p.ReadA32(3))
		})
	}
}

func TestStepThumbUnconditionalBranch(t *testing.T) {
	p := newT32Processor(t)
	p.Regs.PC = 0x8000
	// B #4 forward (11-bit signed word offset *2, sign-extended)
	loadT16(t, p, 0x8000, 0xE002)

	require.Equal(t, cpu.ResultOK, p.Step())
	assert.Equal(t, uint64(0x8008), p.Regs.PC)
}
