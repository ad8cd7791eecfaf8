package debugview

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/BinaryMelodies/all-the-arm/cpu"
)

// Window is a minimal fyne register/PSTATE snapshot viewer: the reduced
// counterpart of the teacher's debugger GUI, with no source view, memory
// hex dump, toolbar, or breakpoint list — a read-only grid plus a refresh
// button, since there is nothing here to pause or step.
type Window struct {
	App    fyne.App
	Window fyne.Window

	RegisterGrid *widget.TextGrid
	DiffGrid     *widget.TextGrid

	cpu  *cpu.ProcessorState
	prev Snapshot
}

// NewWindow creates a Window bound to p, sized for a side-by-side
// register/diff layout.
func NewWindow(p *cpu.ProcessorState) *Window {
	myApp := app.New()
	myWindow := myApp.NewWindow("all-the-arm state inspector")

	w := &Window{
		App:    myApp,
		Window: myWindow,
		cpu:    p,
		prev:   Capture(p),
	}

	w.RegisterGrid = widget.NewTextGrid()
	w.DiffGrid = widget.NewTextGrid()

	refresh := widget.NewButton("Refresh", w.Refresh)
	content := container.NewBorder(
		refresh, nil, nil, nil,
		container.NewHSplit(w.RegisterGrid, w.DiffGrid),
	)

	myWindow.SetContent(content)
	myWindow.Resize(fyne.NewSize(900, 500))

	w.Refresh()
	return w
}

// Refresh recomputes both grids from the bound ProcessorState's current
// state, diffing against the snapshot taken at the previous Refresh.
func (w *Window) Refresh() {
	now := Capture(w.cpu)
	w.RegisterGrid.SetText(renderRegisters(now))
	w.DiffGrid.SetText(fmt.Sprintf("Last step:\n%s", FormatDiffs(Compare(w.prev, now))))
	w.prev = now
}

// ShowAndRun displays the window and blocks until it is closed.
func (w *Window) ShowAndRun() {
	w.Window.ShowAndRun()
}
