// Command armkernel is a minimal CLI front end wiring config, loader,
// hostmem, hostsvc, and cpu together to run a flat binary image to
// completion, the way the teacher's main.go wires vm/loader/parser/config
// for an assembly source file. ELF loading, disassembly, and interactive
// debugging stay external collaborators (spec.md §1); this is the "run a
// program" path spec.md §8's seed vectors exercise end-to-end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BinaryMelodies/all-the-arm/config"
	"github.com/BinaryMelodies/all-the-arm/cpu"
	"github.com/BinaryMelodies/all-the-arm/debugview"
	"github.com/BinaryMelodies/all-the-arm/hostmem"
	"github.com/BinaryMelodies/all-the-arm/hostsvc"
	"github.com/BinaryMelodies/all-the-arm/loader"
)

var (
	Version = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		arch        = flag.String("arch", "", "Override architecture (v1..v8, v4T, v7VE, ...)")
		loadAddr    = flag.Uint64("load", 0x8000, "Address to load the image at")
		entryAddr   = flag.Uint64("entry", 0, "Entry point (defaults to load address)")
		maxCycles   = flag.Uint64("max-cycles", 0, "Override the configured cycle limit (0 = use config)")
		inspect     = flag.Bool("inspect", false, "Launch a tview state inspector after the run")
		verbose     = flag.Bool("verbose", false, "Print configuration and exit status")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("armkernel %s\n", Version)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: armkernel [options] <flat-binary>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	imagePath := flag.Arg(0)

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	req := settings.Request()
	if *arch != "" {
		req.Arch = *arch
	}

	cfg, warnings := cpu.Resolve(req)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "config: %s\n", w.Message)
	}

	cycles := settings.Execution.MaxCycles
	if *maxCycles != 0 {
		cycles = *maxCycles
	}

	mem := hostmem.New()
	stackTop := *loadAddr - uint64(settings.Execution.StackSize)
	mem.AddSegment("stack", stackTop, uint64(settings.Execution.StackSize), hostmem.PermRead|hostmem.PermWrite)

	img, err := loader.LoadFile(mem, imagePath, *loadAddr, *entryAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
		os.Exit(1)
	}

	p := cpu.New(cfg, mem)
	p.InstallDefaultCoprocessors()
	p.CaptureBreaks = settings.Execution.CaptureTraps
	loader.Start(p, img)

	shim := hostsvc.New()
	p.SystemCall = shim.Handle

	if *verbose {
		fmt.Printf("Architecture: %s, entry 0x%016X, stack 0x%016X (%d bytes)\n",
			req.Arch, img.EntryPoint, stackTop, settings.Execution.StackSize)
	}

	var executed uint64
	for !shim.Exited {
		if cycles != 0 && executed >= cycles {
			fmt.Fprintf(os.Stderr, "Halted: exceeded max-cycles (%d)\n", cycles)
			os.Exit(1)
		}
		switch r := p.Step(); r {
		case cpu.ResultOK:
		case cpu.ResultSVC:
			shim.Handle(p, 0)
		default:
			fmt.Fprintf(os.Stderr, "Trap at PC=0x%016X: %s\n", p.Regs.PC, r)
			os.Exit(1)
		}
		executed++
	}

	if *inspect {
		ins := debugview.NewInspector(p)
		if err := ins.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Inspector error: %v\n", err)
		}
	}

	if *verbose {
		fmt.Printf("Exited after %d instructions with status %d\n", executed, shim.ExitStatus)
	}
	os.Exit(int(shim.ExitStatus))
}
