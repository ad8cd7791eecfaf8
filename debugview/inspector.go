package debugview

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Inspector is a read-only tview panel showing the current register file,
// PSTATE flags, and the last Diff against the previous Step — the reduced,
// non-interactive counterpart of the teacher's debugger TUI (no source
// view, no disassembly, no breakpoint list: this package never pauses
// execution, it only reports state).
type Inspector struct {
	App          *tview.Application
	RegisterView *tview.TextView
	DiffView     *tview.TextView
	Layout       *tview.Flex

	cpu  *cpu.ProcessorState
	prev Snapshot
}

// NewInspector builds an Inspector bound to p. Call Refresh after each
// cpu.ProcessorState.Step to update both panels.
func NewInspector(p *cpu.ProcessorState) *Inspector {
	ins := &Inspector{
		App:  tview.NewApplication(),
		cpu:  p,
		prev: Capture(p),
	}

	ins.RegisterView = tview.NewTextView().SetDynamicColors(true)
	ins.RegisterView.SetBorder(true).SetTitle(" Registers ")

	ins.DiffView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	ins.DiffView.SetBorder(true).SetTitle(" Last Step Diff ")

	ins.Layout = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ins.RegisterView, 0, 1, false).
		AddItem(ins.DiffView, 0, 1, false)

	ins.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			ins.App.Stop()
			return nil
		}
		return event
	})

	ins.Refresh()
	return ins
}

// Refresh recomputes both panels from the bound ProcessorState's current
// state, diffing against the snapshot taken at the previous Refresh.
func (ins *Inspector) Refresh() {
	now := Capture(ins.cpu)
	ins.RegisterView.SetText(renderRegisters(now))
	ins.DiffView.SetText(FormatDiffs(Compare(ins.prev, now)))
	ins.prev = now
	if ins.App != nil {
		ins.App.Draw()
	}
}

// Run starts the tview event loop. Ctrl-C exits.
func (ins *Inspector) Run() error {
	return ins.App.SetRoot(ins.Layout, true).Run()
}

// Stop halts the tview event loop.
func (ins *Inspector) Stop() {
	ins.App.Stop()
}

func renderRegisters(s Snapshot) string {
	var lines []string
	for row := 0; row < 4; row++ {
		var cols []string
		for col := 0; col < 4; col++ {
			reg := row*4 + col
			name := fmt.Sprintf("R%-2d", reg)
			switch reg {
			case 13:
				name = "SP "
			case 14:
				name = "LR "
			case 15:
				name = "PC "
			}
			cols = append(cols, fmt.Sprintf("%s: 0x%016X", name, s.GPR[reg]))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}

	flags := fmt.Sprintf("N:%v Z:%v C:%v V:%v", s.N, s.Z, s.C, s.V)
	lines = append(lines, "")
	lines = append(lines, flags)
	lines = append(lines, fmt.Sprintf("Mode: %s  ISA: %s  PC: 0x%016X", s.Mode, s.ISA, s.PC))

	return strings.Join(lines, "\n")
}
