package cpu

// Result is the outcome of a single Step. OK means the instruction completed
// (or, if it faulted, that the fault was delivered as an architectural
// exception and the guest is now executing its own handler). Any other value
// means capture mode was active and the fault was reified as a typed code
// instead of being vectored.
type Result int

const (
	ResultOK Result = iota
	ResultReset
	ResultSVC
	ResultHVC
	ResultSMC
	ResultUndefined
	ResultPrefetchAbort
	ResultDataAbort
	ResultAddress26
	ResultIRQ
	ResultFIQ
	ResultSError
	ResultBreakpoint
	ResultUnaligned
	ResultUnalignedPC
	ResultUnalignedSP
	ResultSoftwareStep
	ResultJazelleUndefined
	ResultJazelleNullptr
	ResultJazelleOutOfBounds
	ResultJazelleDisabled
	ResultJazelleInvalid
	ResultJazellePrefetchAbort
	ResultThumbEEOutOfBounds
	ResultThumbEENullptr
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultReset:
		return "Reset"
	case ResultSVC:
		return "SVC"
	case ResultHVC:
		return "HVC"
	case ResultSMC:
		return "SMC"
	case ResultUndefined:
		return "Undefined"
	case ResultPrefetchAbort:
		return "PrefetchAbort"
	case ResultDataAbort:
		return "DataAbort"
	case ResultAddress26:
		return "Address26"
	case ResultIRQ:
		return "IRQ"
	case ResultFIQ:
		return "FIQ"
	case ResultSError:
		return "SError"
	case ResultBreakpoint:
		return "Breakpoint"
	case ResultUnaligned:
		return "Unaligned"
	case ResultUnalignedPC:
		return "UnalignedPC"
	case ResultUnalignedSP:
		return "UnalignedSP"
	case ResultSoftwareStep:
		return "SoftwareStep"
	case ResultJazelleUndefined:
		return "JazelleUndefined"
	case ResultJazelleNullptr:
		return "JazelleNullptr"
	case ResultJazelleOutOfBounds:
		return "JazelleOutOfBounds"
	case ResultJazelleDisabled:
		return "JazelleDisabled"
	case ResultJazelleInvalid:
		return "JazelleInvalid"
	case ResultJazellePrefetchAbort:
		return "JazellePrefetchAbort"
	case ResultThumbEEOutOfBounds:
		return "ThumbEEOutOfBounds"
	case ResultThumbEENullptr:
		return "ThumbEENullptr"
	default:
		return "??"
	}
}

// trap is the sentinel error used to unwind out of Step once a fault has
// been reified, per spec.md §9's replacement for the original's
// setjmp/longjmp. Every decode/execute helper that can fault returns a
// *trap wrapped as an error; Step is the only frame that type-asserts it
// back out.
type trap struct {
	result Result
}

func (t *trap) Error() string {
	return "trap: " + t.result.String()
}

func asTrap(err error) (*trap, bool) {
	t, ok := err.(*trap)
	return t, ok
}

func newTrap(r Result) error {
	return &trap{result: r}
}
