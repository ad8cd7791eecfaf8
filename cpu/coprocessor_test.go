package cpu_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMemory struct{ data map[uint64]byte }

func newStubMemory() *stubMemory { return &stubMemory{data: map[uint64]byte{}} }

func (m *stubMemory) Read(_ *cpu.ProcessorState, address uint64, buf []byte, _ bool) bool {
	for i := range buf {
		buf[i] = m.data[address+uint64(i)]
	}
	return true
}

func (m *stubMemory) Write(_ *cpu.ProcessorState, address uint64, buf []byte, _ bool) bool {
	for i, b := range buf {
		m.data[address+uint64(i)] = b
	}
	return true
}

func newTestProcessor(t *testing.T, req cpu.ConfigRequest) *cpu.ProcessorState {
	t.Helper()
	cfg, _ := cpu.Resolve(req)
	return cpu.New(cfg, newStubMemory())
}

func TestInstallDefaultCoprocessorsWiresFPA(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v4", FP: true, FPVersion: cpu.FPA})
	p.InstallDefaultCoprocessors()

	// MVF f1, f0 encoded with opc1=0x8 (MVF), Fd=1, Fn=0, Fm=0.
	p.FP.FPAReg[0] = cpu.FPAExtended{Mantissa: 7}
	opcode := uint32(0x8<<20) | uint32(1<<12)
	err := p.Coprocessors[1].CDP(p, opcode)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.FP.FPAReg[1].Mantissa)
}

func TestInstallDefaultCoprocessorsWiresVFP(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v7", FP: true, FPVersion: cpu.VFPv3})
	p.InstallDefaultCoprocessors()

	require.NotNil(t, p.Coprocessors[10])
	require.NotNil(t, p.Coprocessors[11])
	require.Nil(t, p.Coprocessors[1])
}

func TestSystemCoprocessorRoundTripsSCTLR(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v7"})
	p.InstallDefaultCoprocessors()

	// MCR p15, 0, r0, c1, c0, 0 then MRC back into r1.
	p.WriteA32(0, 0x12345678)
	mcr := uint32(1<<16) | uint32(0<<12)
	err := p.Coprocessors[15].MCR(p, mcr)
	require.NoError(t, err)

	mrc := uint32(1<<16) | uint32(1<<12)
	err = p.Coprocessors[15].MRC(p, mrc)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), p.ReadA32(1))
}

func TestSystemCoprocessorMIDRReadOnly(t *testing.T) {
	p := newTestProcessor(t, cpu.ConfigRequest{Arch: "v7"})
	p.InstallDefaultCoprocessors()

	p.WriteA32(0, 0xDEADBEEF)
	mcr := uint32(0<<16) | uint32(0<<12) // CRn=0 is MIDR
	err := p.Coprocessors[15].MCR(p, mcr)
	require.NoError(t, err)

	mrc := uint32(0<<16) | uint32(1<<12)
	err = p.Coprocessors[15].MRC(p, mrc)
	require.NoError(t, err)
	assert.NotEqual(t, uint32(0xDEADBEEF), p.ReadA32(1))
}
