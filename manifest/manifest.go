// Package manifest handles chrono.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest looked up by Load and FindAndLoad.
const FileName = "chrono.toml"

// Manifest represents a chrono.toml project configuration.
type Manifest struct {
	Program Program `toml:"program"`
	Options Options `toml:"options"`
	Output  Output  `toml:"output"`

	// Dir is the directory containing the chrono.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program names the program and its source file.
type Program struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// Options are the engine switches.
type Options struct {
	Verbose          bool   `toml:"verbose"`
	NonZeroJumpOnEnd bool   `toml:"non-zero-jump-on-end"`
	EraseAllowsJumps bool   `toml:"erase-allows-jumps"`
	MaxSteps         uint64 `toml:"max-steps"`
}

// Output configures what is reported after the run.
type Output struct {
	DumpTape *bool `toml:"dump-tape"`
	Profile  bool  `toml:"profile"`
}

// Load parses a chrono.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a chrono.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the program source, or "" if the
// manifest names none.
func (m *Manifest) EntryPath() string {
	if m.Program.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Program.Entry) {
		return m.Program.Entry
	}
	return filepath.Join(m.Dir, m.Program.Entry)
}

// DumpsTape reports whether the tape is printed after the run. Defaults to true.
func (m *Manifest) DumpsTape() bool {
	if m.Output.DumpTape == nil {
		return true
	}
	return *m.Output.DumpTape
}
