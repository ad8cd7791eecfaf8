package cpu

// Step executes exactly one instruction (§5: the sole progression
// primitive). It returns ResultOK on a normal completion or a vectored
// exception, and the specific typed code when capture_breaks caught a fault
// instead of vectoring it.
func (cpu *ProcessorState) Step() Result {
	cpu.oldPC = cpu.Regs.PC
	cpu.Result = ResultOK

	err := cpu.stepOnce()
	if err == nil {
		return ResultOK
	}
	t, ok := asTrap(err)
	if !ok {
		return ResultUndefined
	}
	if cpu.CaptureBreaks {
		return t.result
	}
	return ResultOK
}

// stepOnce dispatches to the executor for the current ISA. Every executor
// entry point returns a *trap (wrapped as error) on any fault; stepOnce
// itself never recovers from a panic — control unwinds back to Step purely
// through ordinary Go error returns, the sentinel-based replacement for the
// original's setjmp/longjmp (spec.md §9).
func (cpu *ProcessorState) stepOnce() error {
	switch cpu.PState.CurrentISA() {
	case ISAARM26, ISAARM32:
		return cpu.stepA32()
	case ISAThumb, ISAThumbEE:
		return cpu.stepT32()
	case ISAJazelle:
		return cpu.stepJazelle()
	case ISAA64:
		return cpu.stepA64()
	default:
		return cpu.undefined()
	}
}
