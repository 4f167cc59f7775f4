package vm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tliron/commonlog"
)

// VM runs one program. The driver calls Step until it reports false, then
// reads Tape for reporting. A VM is owned by a single goroutine.
type VM struct {
	images [2]string // Indexed by Mode: standard and mirrored program
	tables *DualJumpTable
	code   string // Active image

	ip   int
	mp   int
	mode Mode

	chrono ChronoStack
	tape   *Tape

	opts     Options
	out      io.Writer
	in       *bufio.Reader
	log      commonlog.Logger
	profiler *Profiler

	steps  uint64
	halted bool
	err    error
}

// NewVM builds both program images and their jump tables. The program text
// must already be final: nothing is re-derived while running.
func NewVM(code string, opts Options) *VM {
	v := &VM{
		images: [2]string{code, Mirror(code)},
		tables: NewDualJumpTable(code),
		code:   code,
		mode:   Forward,
		tape:   NewTape(),
		opts:   opts,
		out:    io.Discard,
		in:     bufio.NewReader(strings.NewReader("")),
		log:    commonlog.GetLogger("chrono.vm"),
		halted: len(code) == 0,
	}
	if opts.Profile {
		v.profiler = NewProfiler()
	}
	if opts.Verbose {
		v.log.Debugf("forward jump map: %s", v.tables.Standard)
		v.log.Debugf("reverse jump map: %s", v.tables.Mirrored)
	}
	return v
}

// SetOutput sets the sink for forward-mode '.'.
func (v *VM) SetOutput(w io.Writer) {
	v.out = w
}

// SetInput sets the line source for reverse-mode '.'.
func (v *VM) SetInput(r io.Reader) {
	v.in = bufio.NewReader(r)
}

// ---------------------------------------------------------------------------
// Stepping
// ---------------------------------------------------------------------------

// Step runs one tick-and-dispatch cycle and advances the instruction pointer.
// It returns false once the pointer leaves the program in the direction of
// travel. A fatal condition is returned as a *ParadoxError and repeated on
// every later call.
func (v *VM) Step() (bool, error) {
	if v.err != nil {
		return false, v.err
	}
	if v.halted {
		return false, nil
	}

	instr := v.tick(v.code[v.ip])
	v.steps++
	if v.opts.Verbose {
		v.trace(instr)
	}
	v.profiler.RecordInstruction(v.ip, instr)

	if err := v.dispatch(instr); err != nil {
		return v.fail(err)
	}

	v.ip += v.mode.Delta()
	ok, err := v.canContinue()
	if err != nil {
		return v.fail(err)
	}
	if !ok {
		v.halted = true
	}
	return ok, nil
}

// Run steps until the program halts, a fatal error occurs, ctx is done, or
// maxSteps steps have run (0 means no limit).
func (v *VM) Run(ctx context.Context, maxSteps uint64) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := v.Step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if maxSteps > 0 && v.steps >= maxSteps {
			return fmt.Errorf("%w: %d steps", ErrStepLimit, v.steps)
		}
	}
}

// tick counts the chrono-stack down once. When an entry falls due the
// instruction pointer moves to its target and the instruction found there
// replaces natural.
func (v *VM) tick(natural byte) byte {
	target, fired := v.chrono.Tick(v.ip)
	if !fired {
		return natural
	}
	if v.opts.Verbose {
		v.log.Debugf("chrono redirect from %d to %d", v.ip, target)
	}
	v.profiler.RecordRedirect()
	v.ip = target
	return v.fetch(target)
}

// fetch reads the active image at i. Redirect targets outside the program
// read as a no-op so the continuation check decides what happens next.
func (v *VM) fetch(i int) byte {
	if i < 0 || i >= len(v.code) {
		return 0
	}
	return v.code[i]
}

func (v *VM) dispatch(instr byte) error {
	switch instr {
	case GlyphReverse:
		v.mode = v.mode.Flip()
		v.code = v.images[v.mode]

	case GlyphErase:
		n, err := v.cell()
		if err != nil {
			return err
		}
		before := v.ip
		for i := 0; i < int(n); i++ {
			v.tick(0)
		}
		if !v.opts.EraseAllowsJumps {
			v.ip = before
		}

	case GlyphJump:
		n, err := v.cell()
		if err != nil {
			return err
		}
		v.ip += int(n) * v.mode.Delta()

	case GlyphWait:
		n, err := v.cell()
		if err != nil {
			return err
		}
		v.chrono.Push(NewChronoEntry(int(n), v.ip+v.mode.Delta(), false))

	case GlyphPersist:
		n, err := v.cell()
		if err != nil {
			return err
		}
		shift := int(n) * v.mode.Delta()
		v.chrono.Push(NewChronoEntry(int(n)+1, v.ip+shift, true))
		v.ip += shift

	case GlyphIO:
		return v.io()

	case GlyphPlus:
		return v.tape.Add(v.mp, v.mode.Delta())

	case GlyphMove:
		v.mp += v.mode.Delta()
		return v.tape.BoundsCheck(v.mp)

	case GlyphOpen, GlyphClose:
		return v.jump(instr)

	default:
		if v.opts.Verbose {
			v.log.Debugf("skipping unknown instruction %q (%d)", instr, instr)
		}
	}
	return nil
}

func (v *VM) io() error {
	if v.mode == Forward {
		c, err := v.cell()
		if err != nil {
			return err
		}
		if _, err := io.WriteString(v.out, string(rune(c))); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	if v.opts.Verbose {
		v.log.Debug("awaiting input")
	}
	line, err := v.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")

	var c byte
	if line != "" {
		r, _ := utf8.DecodeRuneInString(line)
		c = byte(r)
	}
	return v.tape.Write(v.mp, c)
}

// jump consults the table of the active image. { looks up its closer when
// the cell is zero; } looks up its opener when the cell is zero, or nonzero
// under NonZeroJumpOnEnd.
func (v *VM) jump(instr byte) error {
	c, err := v.cell()
	if err != nil {
		return err
	}
	table := v.tables.For(v.mode)

	var (
		lookup map[int]int
		take   bool
	)
	switch instr {
	case GlyphOpen:
		lookup, take = table.Forward, c == 0
	case GlyphClose:
		lookup, take = table.Backward, c == 0
		if v.opts.NonZeroJumpOnEnd {
			take = c != 0
		}
	default:
		return paradox(ErrInvalidJump, "Tear in space time!",
			fmt.Sprintf("invalid character %q (%d) passed to jump", instr, instr))
	}
	if !take {
		return nil
	}

	target, ok := lookup[v.ip]
	if !ok {
		return paradox(ErrInvalidJump, "Tear in space time!",
			fmt.Sprintf("no jump table entry for %q at %d", instr, v.ip))
	}
	if target == NoMatch {
		return paradox(ErrUnmatchedBracket, "A loop that never closes cannot be entered",
			fmt.Sprintf("unmatched %q at %d in %s mode", instr, v.ip, v.mode))
	}
	if v.opts.Verbose {
		v.log.Debugf("jumped from %d to %d", v.ip, target)
	}
	v.ip = target
	return nil
}

func (v *VM) canContinue() (bool, error) {
	last := len(v.code) - 1
	if v.mode == Forward {
		if v.ip < 0 {
			return false, paradox(ErrTemporalUnderflow,
				"Attempting to discover The Past is not permitted",
				"negative instruction pointer in forward mode")
		}
		return v.ip <= last, nil
	}
	if v.ip > last {
		return false, paradox(ErrTemporalOverflow,
			"Attempting to discover The Future is not permitted",
			"instruction pointer over length of code in reverse mode")
	}
	return v.ip >= 0, nil
}

func (v *VM) cell() (byte, error) {
	return v.tape.Read(v.mp)
}

func (v *VM) fail(err error) (bool, error) {
	if p, ok := IsParadox(err); ok {
		p.IP, p.MP = v.ip, v.mp
	}
	v.err = err
	v.halted = true
	return false, err
}

func (v *VM) trace(instr byte) {
	var cell byte
	if v.mp >= 0 && v.mp < v.tape.Len() {
		cell = v.tape.cells[v.mp]
	}
	top := "none"
	if e, ok := v.chrono.Top(); ok {
		top = e.String()
	}
	v.log.Debugf("ip=%-4d ins=%q mp=%d cell=%d mode=%s top=%s",
		v.ip, instr, v.mp, cell, v.mode, top)
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// Tape returns the engine's memory.
func (v *VM) Tape() *Tape { return v.tape }

// IP is the instruction pointer.
func (v *VM) IP() int { return v.ip }

// MP is the memory pointer.
func (v *VM) MP() int { return v.mp }

// Mode is the current direction.
func (v *VM) Mode() Mode { return v.mode }

// Code is the active program image.
func (v *VM) Code() string { return v.code }

// Steps is the number of completed Step calls.
func (v *VM) Steps() uint64 { return v.steps }

// Halted reports whether the engine will not step again.
func (v *VM) Halted() bool { return v.halted }

// Err is the fatal error that halted the engine, if any.
func (v *VM) Err() error { return v.err }

// ChronoEntries returns the pending redirects, bottom first.
func (v *VM) ChronoEntries() []ChronoEntry { return v.chrono.Entries() }

// JumpTables returns the tables of both program images.
func (v *VM) JumpTables() *DualJumpTable { return v.tables }

// Profiler returns the execution profile, or nil unless Options.Profile.
func (v *VM) Profiler() *Profiler { return v.profiler }
