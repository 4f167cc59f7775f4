// Chrono CLI - runs Chrono programs forward and backward through time
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"
	"golang.org/x/term"

	"github.com/chazu/chrono/manifest"
	"github.com/chazu/chrono/server"
	"github.com/chazu/chrono/vm"
)

func main() {
	var f flags
	flag.StringVar(&f.file, "f", "", "Read the program from a file (line breaks are stripped)")
	flag.BoolVar(&f.verbose, "v", false, "Verbose output: jump tables and a trace of every step")
	flag.BoolVar(&f.nonZeroJumpOnEnd, "nzr", false, "Make } jump back when the cell is nonzero instead of zero")
	flag.BoolVar(&f.eraseAllowsJumps, "eaj", false, "Keep instruction pointer jumps made while E erases ticks")
	flag.Uint64Var(&f.maxSteps, "max-steps", 0, "Stop after this many steps (0 = no limit)")
	flag.BoolVar(&f.profile, "profile", false, "Print the most executed instructions after the run")
	flag.StringVar(&f.breaks, "break", "", "Comma-separated instruction indices; print engine state on arrival")
	noManifest := flag.Bool("no-manifest", false, "Skip loading chrono.toml")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chrono [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a Chrono program from -f, the chrono.toml entry, or a line typed at the prompt.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  chrono                      # Prompt for a program\n")
		fmt.Fprintf(os.Stderr, "  chrono -f hello.cf          # Run a file\n")
		fmt.Fprintf(os.Stderr, "  chrono -f loop.cf -nzr -max-steps 10000\n")
		fmt.Fprintf(os.Stderr, "  chrono -f loop.cf -break 3,7 # Dump state at indices 3 and 7\n")
		fmt.Fprintf(os.Stderr, "  chrono -lsp                 # Language server for editors\n")
	}
	flag.Parse()

	if *lspMode {
		commonlog.Configure(0, nil)
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			util.Exit(1)
		}
		util.Exit(0)
	}

	var m *manifest.Manifest
	if !*noManifest {
		var err error
		m, err = manifest.FindAndLoad(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
			util.Exit(1)
		}
	}
	cfg, err := resolveConfig(m, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		util.Exit(1)
	}

	verbosity := 0
	if cfg.opts.Verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	stdin := bufio.NewReader(os.Stdin)
	code, err := loadProgram(cfg.source, stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		util.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	util.Exit(run(ctx, code, cfg, stdin, os.Stdout, os.Stderr))
}

// run executes code and reports the outcome. It returns the process exit code.
func run(ctx context.Context, code string, cfg config, in io.Reader, out, errOut io.Writer) int {
	v := vm.NewVM(code, cfg.opts)
	v.SetInput(in)
	v.SetOutput(out)

	var runErr error
	if len(cfg.breakpoints) > 0 {
		runErr = debug(ctx, v, cfg, errOut)
	} else {
		runErr = v.Run(ctx, cfg.maxSteps)
	}

	if cfg.dumpTape {
		fmt.Fprintf(out, "\n%s\n", v.Tape())
	}
	if cfg.opts.Profile {
		printProfile(out, v.Profiler())
	}

	if runErr == nil {
		return 0
	}
	if p, ok := vm.IsParadox(runErr); ok {
		fmt.Fprintf(errOut, "Paradox: %s\n", p.Message)
		fmt.Fprintf(errOut, "  %s at instruction %d, cell %d\n", p.Detail, p.IP, p.MP)
		return 1
	}
	if errors.Is(runErr, vm.ErrStepLimit) {
		fmt.Fprintf(errOut, "Stopped: %v\n", runErr)
		return 2
	}
	fmt.Fprintf(errOut, "Error: %v\n", runErr)
	return 1
}

// debug runs v under a debugger, printing a snapshot to w at each breakpoint.
func debug(ctx context.Context, v *vm.VM, cfg config, w io.Writer) error {
	d := vm.NewDebugger(v)
	for _, bp := range cfg.breakpoints {
		if err := d.SetBreakpoint(bp); err != nil {
			return err
		}
	}
	for {
		ev, err := d.Continue(ctx, cfg.maxSteps)
		if err != nil || ev == nil {
			return err
		}
		fmt.Fprintf(w, "-- %s\n%s\n", ev.Reason, ev.Snapshot)
	}
}

func printProfile(w io.Writer, p *vm.Profiler) {
	fmt.Fprintf(w, "Profile: %d instructions, %d chrono redirects\n", p.Total(), p.Redirects())
	for _, ip := range p.Hot(10) {
		fmt.Fprintf(w, "  %6d  %q  %d\n", ip.Index, ip.Glyph, ip.Count)
	}
}
