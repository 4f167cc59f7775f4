package vm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Debugger: breakpoints on instruction indices
// ---------------------------------------------------------------------------

// Debugger drives a VM and stops when the instruction pointer arrives at a
// breakpoint. The check happens before the chrono-stack ticks, so a stop
// shows where natural flow landed even if a redirect is about to fire.
// Breakpoints may be changed from another goroutine while Continue runs.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool // index -> enabled
	mu          sync.Mutex

	stepping bool
	paused   bool // Last Continue returned a stop event
}

// Breakpoint describes one breakpoint for listing.
type Breakpoint struct {
	Index  int
	Glyph  byte // Glyph in the standard image
	Active bool
}

// StopEvent reports why Continue returned control.
type StopEvent struct {
	Reason   string // "breakpoint" or "step"
	Snapshot Snapshot
}

// NewDebugger attaches a debugger to v.
func NewDebugger(v *VM) *Debugger {
	return &Debugger{
		vm:          v,
		breakpoints: make(map[int]bool),
	}
}

// ---------------------------------------------------------------------------
// Breakpoint management
// ---------------------------------------------------------------------------

// SetBreakpoint sets an enabled breakpoint at index.
func (d *Debugger) SetBreakpoint(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.vm.images[Forward]) {
		return fmt.Errorf("breakpoint %d outside program of length %d", index, len(d.vm.images[Forward]))
	}
	d.breakpoints[index] = true
	return nil
}

// RemoveBreakpoint removes the breakpoint at index.
func (d *Debugger) RemoveBreakpoint(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.breakpoints[index]; !exists {
		return fmt.Errorf("no breakpoint at %d", index)
	}
	delete(d.breakpoints, index)
	return nil
}

// EnableBreakpoint re-enables a disabled breakpoint.
func (d *Debugger) EnableBreakpoint(index int) error {
	return d.setActive(index, true)
}

// DisableBreakpoint keeps the breakpoint but stops it from firing.
func (d *Debugger) DisableBreakpoint(index int) error {
	return d.setActive(index, false)
}

func (d *Debugger) setActive(index int, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.breakpoints[index]; !exists {
		return fmt.Errorf("no breakpoint at %d", index)
	}
	d.breakpoints[index] = active
	return nil
}

// ListBreakpoints returns every breakpoint ordered by index.
func (d *Debugger) ListBreakpoints() []Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]Breakpoint, 0, len(d.breakpoints))
	for index, active := range d.breakpoints {
		result = append(result, Breakpoint{
			Index:  index,
			Glyph:  d.vm.images[Forward][index],
			Active: active,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result
}

// ClearAllBreakpoints removes all breakpoints.
func (d *Debugger) ClearAllBreakpoints() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoints = make(map[int]bool)
}

// StepInto makes the next Continue stop after a single instruction.
func (d *Debugger) StepInto() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stepping = true
}

// ---------------------------------------------------------------------------
// Execution control
// ---------------------------------------------------------------------------

// Continue runs until a breakpoint or single step stops the VM, returning
// the stop event. It returns a nil event once the program halts. A
// breakpoint under the current position stops before anything runs, unless
// the previous Continue already stopped there; resuming always executes at
// least one instruction. Context and step limit behave as in Run.
func (d *Debugger) Continue(ctx context.Context, maxSteps uint64) (*StopEvent, error) {
	first := true
	resuming := d.paused
	d.paused = false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !d.vm.halted && !(first && resuming) {
			// A pending single step waits for one instruction to run.
			if reason, stop := d.shouldBreak(d.vm.ip, !first); stop {
				d.paused = true
				return &StopEvent{Reason: reason, Snapshot: d.vm.Inspect()}, nil
			}
		}
		first = false

		ok, err := d.vm.Step()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if maxSteps > 0 && d.vm.steps >= maxSteps {
			return nil, fmt.Errorf("%w: %d steps", ErrStepLimit, d.vm.steps)
		}
	}
}

func (d *Debugger) shouldBreak(ip int, stepDue bool) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if stepDue && d.stepping {
		d.stepping = false
		return "step", true
	}
	if d.breakpoints[ip] {
		return "breakpoint", true
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Snapshot: point-in-time engine state
// ---------------------------------------------------------------------------

// Snapshot is a copy of the engine state between two steps.
type Snapshot struct {
	IP     int
	MP     int
	Mode   Mode
	Glyph  byte // Instruction at IP in the active image, 0 if outside
	Steps  uint64
	Chrono []ChronoEntry // Bottom first
	Tape   []byte
}

// Inspect captures the current engine state.
func (v *VM) Inspect() Snapshot {
	return Snapshot{
		IP:     v.ip,
		MP:     v.mp,
		Mode:   v.mode,
		Glyph:  v.fetch(v.ip),
		Steps:  v.steps,
		Chrono: v.chrono.Entries(),
		Tape:   v.tape.Cells(),
	}
}

func (s Snapshot) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "step %d: ip=%d ins=%q mode=%s mp=%d\n", s.Steps, s.IP, s.Glyph, s.Mode, s.MP)
	if len(s.Chrono) == 0 {
		sb.WriteString("  chrono: empty\n")
	}
	for i := len(s.Chrono) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "  chrono: %s\n", s.Chrono[i])
	}
	fmt.Fprintf(&sb, "  tape: %v", s.Tape)
	return sb.String()
}
