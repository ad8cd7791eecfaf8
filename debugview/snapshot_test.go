package debugview_test

import (
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/BinaryMelodies/all-the-arm/debugview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMemory struct{}

func (nopMemory) Read(_ *cpu.ProcessorState, _ uint64, buf []byte, _ bool) bool {
	for i := range buf {
		buf[i] = 0
	}
	return true
}

func (nopMemory) Write(_ *cpu.ProcessorState, _ uint64, _ []byte, _ bool) bool { return true }

func newTestProcessor(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	cfg, _ := cpu.Resolve(cpu.ConfigRequest{Arch: "v7"})
	return cpu.New(cfg, nopMemory{})
}

func TestCaptureReflectsCurrentState(t *testing.T) {
	p := newTestProcessor(t)
	p.WriteA32(0, 42)
	p.Regs.PC = 0x8000

	s := debugview.Capture(p)
	assert.Equal(t, uint64(42), s.GPR[0])
	assert.Equal(t, uint64(0x8000), s.PC)
}

func TestCompareNoChange(t *testing.T) {
	p := newTestProcessor(t)
	before := debugview.Capture(p)
	after := debugview.Capture(p)
	assert.Empty(t, debugview.Compare(before, after))
}

func TestCompareDetectsRegisterChange(t *testing.T) {
	p := newTestProcessor(t)
	before := debugview.Capture(p)
	p.WriteA32(3, 0xCAFE)
	after := debugview.Capture(p)

	diffs := debugview.Compare(before, after)
	require.Len(t, diffs, 1)
	assert.Equal(t, "R3", diffs[0].Field)
}

func TestCompareDetectsFlagAndPC(t *testing.T) {
	p := newTestProcessor(t)
	before := debugview.Capture(p)
	p.PState.N = true
	p.Regs.PC += 4
	after := debugview.Capture(p)

	diffs := debugview.Compare(before, after)
	fields := make(map[string]bool)
	for _, d := range diffs {
		fields[d.Field] = true
	}
	assert.True(t, fields["N"])
	assert.True(t, fields["PC"])
}

func TestFormatDiffsEmpty(t *testing.T) {
	assert.Equal(t, "(no change)", debugview.FormatDiffs(nil))
}

func TestFormatDiffsRendersLines(t *testing.T) {
	diffs := []debugview.Diff{{Field: "R0", Old: "0x0", New: "0x1"}}
	out := debugview.FormatDiffs(diffs)
	assert.Contains(t, out, "R0: 0x0 -> 0x1")
}
