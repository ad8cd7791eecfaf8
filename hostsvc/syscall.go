// Package hostsvc is a minimal hosted-syscall shim: the external
// collaborator spec.md §6 names as consuming cpu.ProcessorState.SystemCall.
// It implements just enough of the Linux EABI convention (r7=number,
// r0-r2=args, result in r0) to run exit/read/write/brk — the calls
// spec.md §8's seed vector 1 needs end-to-end.
package hostsvc

import (
	"fmt"
	"io"
	"os"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Syscall numbers, matching the Linux ARM EABI convention the seed vector
// targets (__NR_exit, __NR_read, __NR_write, __NR_brk).
const (
	NRExit  = 1
	NRRead  = 3
	NRWrite = 4
	NRBrk   = 45
)

// ExitError is an error value carrying a guest's exit status so a CLI can
// set its own. Shim does not return one: it records the status in Exited
// and ExitStatus.
type ExitError struct {
	Code int32
}

func (e *ExitError) Error() string { return fmt.Sprintf("guest exited with status %d", e.Code) }

// Shim holds the host-side state a hosted syscall needs across calls: the
// current break address for brk, and the streams read/write target.
type Shim struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	BreakAddress uint64

	// Exited is set once NRExit is observed; a host run loop checks this
	// after each cpu.Step to know when to stop.
	Exited     bool
	ExitStatus int32
}

// New creates a shim wired to the process's standard streams.
func New() *Shim {
	return &Shim{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Handle implements the cpu.ProcessorState.SystemCall hook signature
// (spec.md §6): it is installed directly as p.SystemCall, or wrapped by a
// Jazelle-specific selector translator if the guest dispatches through
// j32's invocation convention instead of svc.
func (s *Shim) Handle(p *cpu.ProcessorState, selector uint32) {
	number := p.ReadA32(7)
	if selector != 0 {
		number = selector
	}
	switch number {
	case NRExit:
		s.Exited = true
		s.ExitStatus = int32(p.ReadA32(0))
	case NRRead:
		s.handleRead(p)
	case NRWrite:
		s.handleWrite(p)
	case NRBrk:
		s.handleBrk(p)
	default:
		p.WriteA32(0, 0xFFFFFFFF)
	}
}

func (s *Shim) handleRead(p *cpu.ProcessorState) {
	fd := p.ReadA32(0)
	addr := uint64(p.ReadA32(1))
	count := p.ReadA32(2)
	if fd != 0 || s.Stdin == nil {
		p.WriteA32(0, 0xFFFFFFFF)
		return
	}
	buf := make([]byte, count)
	n, err := s.Stdin.Read(buf)
	if err != nil && err != io.EOF {
		p.WriteA32(0, 0xFFFFFFFF)
		return
	}
	for i := 0; i < n; i++ {
		if !p.Memory.Write(p, addr+uint64(i), buf[i:i+1], false) {
			p.WriteA32(0, 0xFFFFFFFF)
			return
		}
	}
	p.WriteA32(0, uint32(n))
}

func (s *Shim) handleWrite(p *cpu.ProcessorState) {
	fd := p.ReadA32(0)
	addr := uint64(p.ReadA32(1))
	count := p.ReadA32(2)

	var w io.Writer
	switch fd {
	case 1:
		w = s.Stdout
	case 2:
		w = s.Stderr
	default:
		p.WriteA32(0, 0xFFFFFFFF)
		return
	}
	if w == nil {
		p.WriteA32(0, 0xFFFFFFFF)
		return
	}

	buf := make([]byte, count)
	for i := uint32(0); i < count; i++ {
		one := buf[i : i+1]
		if !p.Memory.Read(p, addr+uint64(i), one, false) {
			p.WriteA32(0, 0xFFFFFFFF)
			return
		}
	}
	n, err := w.Write(buf)
	if err != nil {
		p.WriteA32(0, 0xFFFFFFFF)
		return
	}
	p.WriteA32(0, uint32(n))
}

// handleBrk implements the degenerate single-call form: querying the
// current break (arg 0) returns it; any nonzero request is accepted
// verbatim and becomes the new break, matching the Linux convention that
// brk is advisory and always "succeeds" from the caller's perspective.
func (s *Shim) handleBrk(p *cpu.ProcessorState) {
	requested := uint64(p.ReadA32(0))
	if requested != 0 {
		s.BreakAddress = requested
	}
	p.WriteA32(0, uint32(s.BreakAddress))
}
