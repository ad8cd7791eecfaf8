package cpu_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJazelleProcessor(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v7", Jazelle: true})
	p.SetISA(cpu.ISAJazelle)
	return p
}

func loadJ32(t *testing.T, p *cpu.ProcessorState, addr uint64, bytes ...byte) {
	t.Helper()
	require.True(t, p.Memory.Write(p, addr, bytes, false))
}

func writeLEWord(t *testing.T, p *cpu.ProcessorState, addr uint64, v uint32) {
	t.Helper()
	buf := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	require.True(t, p.Memory.Write(p, addr, buf, false))
}

// spec.md §8: invokestatic transfers control into a callee's bytecode body
// through a resolved constant-pool slot, and ireturn unwinds that invocation
// frame - restoring the caller's locals/constant-pool/link registers and PC
// - while leaving the computed result on the operand stack.
func TestStepJazelleInvokeAddReturnsAcrossFrame(t *testing.T) {
	p := newJazelleProcessor(t)

	const (
		cpBase    = 0x9000
		callerPC  = 0x9100
		calleePC  = 0x9200
		callerLOC = 0x9300
		stackBase = 0x9500

		j32CP   = 4
		j32LOC  = 5
		j32TOS  = 6
		j32LINK = 8
	)

	p.WriteA32(j32CP, cpBase)
	p.WriteA32(j32LOC, callerLOC)
	p.WriteA32(j32TOS, stackBase)
	p.WriteA32(j32LINK, 0x1234)

	// Constant pool slot #1 resolves to the callee's entry address.
	writeLEWord(t, p, cpBase+4, calleePC)

	// invokestatic #1; istore_0
	loadJ32(t, p, callerPC, 0xB8, 0x00, 0x01, 0x3B)
	// iconst_2; iconst_3; iadd; ireturn
	loadJ32(t, p, calleePC, 0x05, 0x06, 0x60, 0xAC)

	p.Regs.PC = callerPC
	for i := 0; i < 6; i++ {
		require.Equal(t, cpu.ResultOK, p.Step(), "step %d", i)
	}

	assert.Equal(t, uint32(cpBase), p.ReadA32(j32CP), "constant-pool register should be restored on return")
	assert.Equal(t, uint32(callerLOC), p.ReadA32(j32LOC), "locals register should be restored on return")
	assert.Equal(t, uint32(0x1234), p.ReadA32(j32LINK), "link register should be restored on return")

	var buf [4]byte
	require.True(t, p.Memory.Read(p, callerLOC, buf[:], false))
	got := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	assert.Equal(t, uint32(5), got, "istore_0 should have stored the callee's 2+3 result")
}
