package hostsvc

import (
	"bytes"
	"testing"

	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/BinaryMelodies/all-the-arm/hostmem"
	"github.com/stretchr/testify/assert"
)

func newTestCPU(t *testing.T) *cpu.ProcessorState {
	t.Helper()
	cfg, _ := cpu.Resolve(cpu.ConfigRequest{Arch: "v7"})
	mem := hostmem.New()
	mem.AddSegment("data", 0x1000, 0x1000, hostmem.PermRead|hostmem.PermWrite)
	return cpu.New(cfg, mem)
}

func TestHandleExit(t *testing.T) {
	p := newTestCPU(t)
	s := New()
	p.WriteA32(7, NRExit)
	p.WriteA32(0, 42)
	s.Handle(p, 0)
	assert.True(t, s.Exited)
	assert.Equal(t, int32(42), s.ExitStatus)
}

func TestHandleWriteStdout(t *testing.T) {
	p := newTestCPU(t)
	var out bytes.Buffer
	s := New()
	s.Stdout = &out

	msg := []byte("hi")
	p.Memory.Write(p, 0x1000, msg, false)
	p.WriteA32(7, NRWrite)
	p.WriteA32(0, 1)
	p.WriteA32(1, 0x1000)
	p.WriteA32(2, uint32(len(msg)))
	s.Handle(p, 0)

	assert.Equal(t, "hi", out.String())
	assert.Equal(t, uint32(len(msg)), p.ReadA32(0))
}

func TestHandleBrkQueryThenSet(t *testing.T) {
	p := newTestCPU(t)
	s := New()

	p.WriteA32(7, NRBrk)
	p.WriteA32(0, 0)
	s.Handle(p, 0)
	assert.Equal(t, uint32(0), p.ReadA32(0), "expected initial break 0")

	p.WriteA32(0, 0x5000)
	s.Handle(p, 0)
	assert.Equal(t, uint32(0x5000), p.ReadA32(0), "expected break updated to 0x5000")
}

// spec.md §8: a guest program that loads a write syscall's registers,
// traps on svc, has the host dispatch it through the shim, and resumes to
// exit, observably writes its message and reports its exit status - the
// decimal-print seed vector's end-to-end flow.
func TestGuestWriteThenExitEndToEnd(t *testing.T) {
	cfg, _ := cpu.Resolve(cpu.ConfigRequest{Arch: "v7"})
	mem := hostmem.New()
	mem.AddSegment("text", 0x8000, 0x1000, hostmem.PermRead|hostmem.PermWrite|hostmem.PermExecute)
	p := cpu.New(cfg, mem)
	p.CaptureBreaks = true
	p.Regs.PC = 0x8000

	words := []uint32{
		0xE3A00001, // mov r0, #1          ; fd = stdout
		0xE28F1014, // add r1, pc, #0x14   ; r1 = &msg (pc reads as addr+8 here)
		0xE3A02006, // mov r2, #6          ; count = len("12345\n")
		0xE3A07004, // mov r7, #4          ; __NR_write
		0xEF000000, // svc #0
		0xE3A0007B, // mov r0, #0x7B       ; exit status 123
		0xE3A07001, // mov r7, #1          ; __NR_exit
		0xEF000000, // svc #0
	}
	for i, w := range words {
		buf := []byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}
		if !p.Memory.Write(p, 0x8000+uint64(i*4), buf, false) {
			t.Fatalf("failed to load instruction %d", i)
		}
	}
	msg := []byte("12345\n")
	if !p.Memory.Write(p, 0x8020, msg, false) {
		t.Fatal("failed to load message")
	}

	var out bytes.Buffer
	s := New()
	s.Stdout = &out

	for steps := 0; !s.Exited; steps++ {
		if steps > 20 {
			t.Fatal("guest did not exit within the expected instruction budget")
		}
		switch r := p.Step(); r {
		case cpu.ResultOK:
		case cpu.ResultSVC:
			s.Handle(p, 0)
		default:
			t.Fatalf("unexpected trap %s at PC=0x%X", r, p.Regs.PC)
		}
	}

	assert.Equal(t, "12345\n", out.String())
	assert.Equal(t, int32(123), s.ExitStatus)
}

func TestHandleUnknownSyscall(t *testing.T) {
	p := newTestCPU(t)
	s := New()
	p.WriteA32(7, 0xFFFF)
	s.Handle(p, 0)
	assert.Equal(t, uint32(0xFFFFFFFF), p.ReadA32(0), "expected -1 return for unknown syscall")
}
