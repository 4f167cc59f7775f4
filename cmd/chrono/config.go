package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/chrono/manifest"
	"github.com/chazu/chrono/vm"
)

// flags holds the command-line switches that can also come from chrono.toml.
type flags struct {
	file             string
	verbose          bool
	nonZeroJumpOnEnd bool
	eraseAllowsJumps bool
	maxSteps         uint64
	profile          bool
	breaks           string
}

// config is the merged result of chrono.toml and the command line.
type config struct {
	source   string // Program file, "" to prompt
	opts     vm.Options
	maxSteps uint64
	dumpTape bool

	breakpoints []int
}

// resolveConfig lays the command line over the manifest. Switches are
// enabled by either; -f and -max-steps replace the manifest values when set.
func resolveConfig(m *manifest.Manifest, f flags) (config, error) {
	breakpoints, err := parseBreakpoints(f.breaks)
	if err != nil {
		return config{}, err
	}
	cfg := config{
		source:   f.file,
		maxSteps: f.maxSteps,
		dumpTape: true,
		opts: vm.Options{
			Verbose:          f.verbose,
			NonZeroJumpOnEnd: f.nonZeroJumpOnEnd,
			EraseAllowsJumps: f.eraseAllowsJumps,
			Profile:          f.profile,
		},
		breakpoints: breakpoints,
	}
	if m == nil {
		return cfg, nil
	}

	if cfg.source == "" {
		cfg.source = m.EntryPath()
	}
	if cfg.maxSteps == 0 {
		cfg.maxSteps = m.Options.MaxSteps
	}
	cfg.dumpTape = m.DumpsTape()
	cfg.opts.Verbose = cfg.opts.Verbose || m.Options.Verbose
	cfg.opts.NonZeroJumpOnEnd = cfg.opts.NonZeroJumpOnEnd || m.Options.NonZeroJumpOnEnd
	cfg.opts.EraseAllowsJumps = cfg.opts.EraseAllowsJumps || m.Options.EraseAllowsJumps
	cfg.opts.Profile = cfg.opts.Profile || m.Output.Profile
	return cfg, nil
}

// parseBreakpoints reads a list like "3, 7". Range checks happen when the
// debugger sees the program.
func parseBreakpoints(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid breakpoint %q", field)
		}
		out = append(out, n)
	}
	return out, nil
}
