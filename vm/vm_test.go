package vm

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// runProgram runs code to completion and fails the test on any error.
func runProgram(t *testing.T, code string, opts Options) *VM {
	t.Helper()
	v := NewVM(code, opts)
	if err := v.Run(context.Background(), 100000); err != nil {
		t.Fatalf("Run(%q) error: %v", code, err)
	}
	return v
}

func assertTape(t *testing.T, v *VM, want ...byte) {
	t.Helper()
	if got := v.Tape().Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("tape = %v, want %v", got, want)
	}
}

// ============ Basic Instructions ============

func TestStepExampleProgram(t *testing.T) {
	v := NewVM("+{+}", Options{})

	wantCells := []byte{1, 1, 2, 2}
	for i, want := range wantCells {
		ok, err := v.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if cell, _ := v.Tape().Read(0); cell != want {
			t.Errorf("step %d: cell = %d, want %d", i+1, cell, want)
		}
		if wantOK := i < len(wantCells)-1; ok != wantOK {
			t.Errorf("step %d: continue = %v, want %v", i+1, ok, wantOK)
		}
	}
	if v.IP() != 4 {
		t.Errorf("IP() = %d, want 4", v.IP())
	}
	assertTape(t, v, 2)

	if ok, err := v.Step(); ok || err != nil {
		t.Errorf("Step() after halt = %v, %v; want false, nil", ok, err)
	}
}

func TestEmptyProgramHalts(t *testing.T) {
	v := NewVM("", Options{})
	ok, err := v.Step()
	if ok || err != nil {
		t.Errorf("Step() = %v, %v; want false, nil", ok, err)
	}
	if !v.Halted() {
		t.Error("empty program should be halted")
	}
}

func TestPlusWrapsForward(t *testing.T) {
	v := runProgram(t, strings.Repeat("+", 256), Options{})
	assertTape(t, v, 0)
}

func TestPlusDecrementsInReverse(t *testing.T) {
	// + sets 1, J skips the second +, R turns around, the second + and the
	// first + each decrement on the way back: 1 -> 0 -> 255.
	v := runProgram(t, "+J+R", Options{})
	assertTape(t, v, 255)
	if v.Steps() != 6 {
		t.Errorf("Steps() = %d, want 6", v.Steps())
	}
	if v.Mode() != Reverse {
		t.Errorf("Mode() = %v, want REVERSE", v.Mode())
	}
}

func TestMoveGrowsTape(t *testing.T) {
	v := runProgram(t, ">+>++", Options{})
	assertTape(t, v, 0, 1, 2)
	if v.MP() != 2 {
		t.Errorf("MP() = %d, want 2", v.MP())
	}
}

func TestMoveNegativeAddressInReverse(t *testing.T) {
	v := NewVM("+J>R", Options{})
	err := v.Run(context.Background(), 100)
	if !errors.Is(err, ErrNegativeAddress) {
		t.Fatalf("Run() error = %v, want ErrNegativeAddress", err)
	}
	p, ok := IsParadox(err)
	if !ok {
		t.Fatalf("error %T is not a *ParadoxError", err)
	}
	if p.MP != -1 || p.IP != 2 {
		t.Errorf("paradox at ip=%d mp=%d, want ip=2 mp=-1", p.IP, p.MP)
	}

	// Fatal errors are sticky.
	if _, again := v.Step(); again != err {
		t.Errorf("Step() after paradox = %v, want the same error", again)
	}
}

func TestOutputForward(t *testing.T) {
	var out bytes.Buffer
	v := NewVM(strings.Repeat("+", 72)+"."+strings.Repeat("+", 33)+".", Options{})
	v.SetOutput(&out)
	if err := v.Run(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if out.String() != "Hi" {
		t.Errorf("output = %q, want %q", out.String(), "Hi")
	}
}

func TestInputInReverse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  byte
	}{
		{"first character", "AB\n", 'A'},
		{"empty line", "\n", 0},
		{"end of input", "", 0},
		{"crlf", "z\r\n", 'z'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// J skips the '.', R turns around onto it on step 4.
			v := NewVM("+J.R", Options{})
			v.SetInput(strings.NewReader(tt.input))
			for i := 0; i < 4; i++ {
				if _, err := v.Step(); err != nil {
					t.Fatalf("step %d: %v", i+1, err)
				}
			}
			assertTape(t, v, tt.want)
		})
	}
}

func TestJumpForwardSkips(t *testing.T) {
	v := runProgram(t, "++J++++", Options{})
	assertTape(t, v, 4)
}

// ============ Brackets ============

func TestOpenJumpsOnZero(t *testing.T) {
	v := runProgram(t, "{+}+", Options{})
	assertTape(t, v, 1)
	if v.Steps() != 2 {
		t.Errorf("Steps() = %d, want 2", v.Steps())
	}
}

func TestNonZeroJumpOnEndLoopsUntilWrap(t *testing.T) {
	// The cell climbs from 2 until it wraps to 0 and the loop exits.
	v := runProgram(t, "+{+}", Options{NonZeroJumpOnEnd: true})
	assertTape(t, v, 0)
	if v.Steps() != 512 {
		t.Errorf("Steps() = %d, want 512", v.Steps())
	}
}

func TestNonZeroJumpOnEndInfiniteLoop(t *testing.T) {
	v := NewVM("+{}", Options{NonZeroJumpOnEnd: true})
	err := v.Run(context.Background(), 1000)
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("Run() error = %v, want ErrStepLimit", err)
	}
	if v.Halted() {
		t.Error("engine should still be runnable after hitting the step limit")
	}
}

func TestUnmatchedBracketIsFatalOnlyWhenTaken(t *testing.T) {
	// Never dereferenced: the cell is nonzero at the stray {.
	v := runProgram(t, "+{", Options{})
	assertTape(t, v, 1)

	v = NewVM("{", Options{})
	if err := v.Run(context.Background(), 10); !errors.Is(err, ErrUnmatchedBracket) {
		t.Errorf("Run() error = %v, want ErrUnmatchedBracket", err)
	}

	v = NewVM("}", Options{})
	if err := v.Run(context.Background(), 10); !errors.Is(err, ErrUnmatchedBracket) {
		t.Errorf("Run() error = %v, want ErrUnmatchedBracket", err)
	}
}

func TestReverseUsesMirroredJumpTable(t *testing.T) {
	// Forward: J skips the stray }, { is not taken (cell 1), R turns
	// around. Reversed, the text reads "+J{x}R" and its } pairs with
	// index 2, so the jump lands there and J ends the run.
	v := runProgram(t, "+J}x{R", Options{NonZeroJumpOnEnd: true})
	if v.Steps() != 7 {
		t.Errorf("Steps() = %d, want 7", v.Steps())
	}
	if v.Code() != "+J{x}R" {
		t.Errorf("Code() = %q, want the mirrored image", v.Code())
	}
	assertTape(t, v, 1)
}

func TestReverseFlipsBackToStandardImage(t *testing.T) {
	v := NewVM("}R", Options{})
	v.mode = Reverse
	v.code = v.images[Reverse]
	if err := v.dispatch(GlyphReverse); err != nil {
		t.Fatal(err)
	}
	if v.Mode() != Forward || v.Code() != "}R" {
		t.Errorf("after R: mode=%v code=%q, want FORWARD %q", v.Mode(), v.Code(), "}R")
	}
}

// ============ Chrono-stack ============

func TestWaitRedirectsOnce(t *testing.T) {
	// W schedules a return to index 3 two ticks later, so the + there runs
	// twice: 2 + 4 increments.
	v := runProgram(t, "++W+++", Options{})
	assertTape(t, v, 6)
	if v.Steps() != 7 {
		t.Errorf("Steps() = %d, want 7", v.Steps())
	}
	if n := len(v.ChronoEntries()); n != 0 {
		t.Errorf("%d chrono entries left, want 0", n)
	}
}

func TestPersistReschedules(t *testing.T) {
	v := runProgram(t, "+P+++", Options{Profile: true})
	assertTape(t, v, 4)
	if v.Steps() != 5 {
		t.Errorf("Steps() = %d, want 5", v.Steps())
	}

	entries := v.ChronoEntries()
	want := []ChronoEntry{{ReturnIn: 1, JumpIndex: 3, JumpAgain: true, OrigReturnIn: 1}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("ChronoEntries() = %v, want %v", entries, want)
	}
	if got := v.Profiler().Redirects(); got != 2 {
		t.Errorf("Redirects() = %d, want 2", got)
	}
}

func TestChronoInReverse(t *testing.T) {
	// Each program leaves cell 0 at 2, skips the chrono glyph with a forward
	// J, and reaches it through R.
	tests := []struct {
		name          string
		code          string
		pushStep      uint64
		wantEntry     ChronoEntry
		wantIP        int // Pointer after the pushing step
		fireStep      uint64
		wantSteps     uint64
		wantRedirects uint64
		wantTape      byte
	}{
		{
			name:          "wait targets the previous index",
			code:          "++J+WR",
			pushStep:      5,
			wantEntry:     ChronoEntry{ReturnIn: 2, JumpIndex: 3, JumpAgain: false, OrigReturnIn: 1},
			wantIP:        3,
			fireStep:      7,
			wantSteps:     10,
			wantRedirects: 1,
			wantTape:      254,
		},
		{
			name:          "persist jumps back and targets ip-N",
			code:          "xxx++JxPR",
			pushStep:      8,
			wantEntry:     ChronoEntry{ReturnIn: 3, JumpIndex: 5, JumpAgain: true, OrigReturnIn: 2},
			wantIP:        4,
			fireStep:      11,
			wantSteps:     17,
			wantRedirects: 4,
			wantTape:      254,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVM(tt.code, Options{Profile: true})
			var fired uint64
			for {
				ok, err := v.Step()
				if err != nil {
					t.Fatalf("step %d: %v", v.Steps(), err)
				}
				if v.Steps() == tt.pushStep {
					if v.Mode() != Reverse {
						t.Fatalf("mode at push = %s, want REVERSE", v.Mode())
					}
					entries := v.ChronoEntries()
					if len(entries) != 1 || entries[0] != tt.wantEntry {
						t.Errorf("entries after push = %v, want [%v]", entries, tt.wantEntry)
					}
					if v.IP() != tt.wantIP {
						t.Errorf("IP after push = %d, want %d", v.IP(), tt.wantIP)
					}
				}
				if fired == 0 && v.Profiler().Redirects() > 0 {
					fired = v.Steps()
				}
				if !ok {
					break
				}
			}

			if fired != tt.fireStep {
				t.Errorf("first redirect at step %d, want %d", fired, tt.fireStep)
			}
			if v.Steps() != tt.wantSteps {
				t.Errorf("Steps = %d, want %d", v.Steps(), tt.wantSteps)
			}
			if got := v.Profiler().Redirects(); got != tt.wantRedirects {
				t.Errorf("Redirects = %d, want %d", got, tt.wantRedirects)
			}
			assertTape(t, v, tt.wantTape)
		})
	}
}

func TestJumpRetreatsPastStartInReverse(t *testing.T) {
	// Forward J sees 0; the reverse '.' reads 2 before J runs backward.
	v := NewVM("xJ.R", Options{})
	v.SetInput(strings.NewReader("\x02\n"))
	if err := v.Run(context.Background(), 100); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if v.IP() != -2 {
		t.Errorf("IP = %d, want -2", v.IP())
	}
	if v.Steps() != 6 {
		t.Errorf("Steps = %d, want 6", v.Steps())
	}
	if !v.Halted() || v.Err() != nil {
		t.Errorf("Halted = %v, Err = %v; want clean halt", v.Halted(), v.Err())
	}
	assertTape(t, v, 2)
}

func TestEraseRestoresPointer(t *testing.T) {
	// The W entry falls due inside E. Its redirect is undone afterwards
	// but the entry is still consumed.
	v := runProgram(t, "+++WxE+", Options{})
	assertTape(t, v, 4)
	if v.Steps() != 7 {
		t.Errorf("Steps() = %d, want 7", v.Steps())
	}
	if n := len(v.ChronoEntries()); n != 0 {
		t.Errorf("%d chrono entries left, want 0", n)
	}
}

func TestEraseAllowsJumps(t *testing.T) {
	// The redirect inside E sticks, so execution resumes at x and E runs
	// a second time.
	v := runProgram(t, "+++WxE+", Options{EraseAllowsJumps: true})
	assertTape(t, v, 4)
	if v.Steps() != 8 {
		t.Errorf("Steps() = %d, want 8", v.Steps())
	}
}

// ============ Paradoxes ============

func TestContinuationParadoxes(t *testing.T) {
	v := NewVM("++", Options{})
	v.ip = -2
	if _, err := v.canContinue(); !errors.Is(err, ErrTemporalUnderflow) {
		t.Errorf("forward ip=-2: error = %v, want ErrTemporalUnderflow", err)
	}

	v.mode = Reverse
	v.ip = 3
	if _, err := v.canContinue(); !errors.Is(err, ErrTemporalOverflow) {
		t.Errorf("reverse ip=3: error = %v, want ErrTemporalOverflow", err)
	}

	v.ip = -1
	if ok, err := v.canContinue(); ok || err != nil {
		t.Errorf("reverse ip=-1: %v, %v; want clean halt", ok, err)
	}
}

func TestJumpOnNonBracketIsInvalid(t *testing.T) {
	v := NewVM("+", Options{})
	err := v.jump('+')
	if !errors.Is(err, ErrInvalidJump) {
		t.Errorf("jump('+') error = %v, want ErrInvalidJump", err)
	}
}

// ============ Driver ============

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := NewVM("+{}", Options{NonZeroJumpOnEnd: true})
	if err := v.Run(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestVerboseDoesNotChangeSemantics(t *testing.T) {
	plain := runProgram(t, "++W+++", Options{})
	verbose := runProgram(t, "++W+++", Options{Verbose: true})
	if plain.Tape().String() != verbose.Tape().String() || plain.Steps() != verbose.Steps() {
		t.Errorf("verbose run diverged: %s/%d vs %s/%d",
			verbose.Tape(), verbose.Steps(), plain.Tape(), plain.Steps())
	}
}

func TestProfilerCountsLoop(t *testing.T) {
	v := runProgram(t, "+{+}", Options{NonZeroJumpOnEnd: true, Profile: true})
	p := v.Profiler()
	if p.Total() != 512 {
		t.Errorf("Total() = %d, want 512", p.Total())
	}
	want := []InstructionProfile{
		{Index: 2, Glyph: '+', Count: 255},
		{Index: 3, Glyph: '}', Count: 255},
	}
	if got := p.Hot(2); !reflect.DeepEqual(got, want) {
		t.Errorf("Hot(2) = %v, want %v", got, want)
	}
}

func TestProfilerDisabledByDefault(t *testing.T) {
	v := runProgram(t, "+", Options{})
	if v.Profiler() != nil {
		t.Error("Profiler() should be nil without Options.Profile")
	}
	if v.Profiler().Total() != 0 {
		t.Error("nil profiler should report zero")
	}
}

func TestModeHelpers(t *testing.T) {
	if Forward.Flip() != Reverse || Reverse.Flip() != Forward {
		t.Error("Flip() is not an involution")
	}
	if Forward.Delta() != 1 || Reverse.Delta() != -1 {
		t.Error("unexpected Delta()")
	}
	if Forward.String() != "FORWARD" || Reverse.String() != "REVERSE" {
		t.Error("unexpected String()")
	}
}

func TestGlyphs(t *testing.T) {
	if len(Glyphs()) != 10 {
		t.Errorf("Glyphs() has %d entries, want 10", len(Glyphs()))
	}
	if g, ok := LookupGlyph('W'); !ok || g.Name != "wait" {
		t.Errorf("LookupGlyph('W') = %v, %v", g, ok)
	}
	if _, ok := LookupGlyph('x'); ok {
		t.Error("LookupGlyph('x') should be a no-op")
	}
	if !IsBracket('{') || IsBracket('+') {
		t.Error("IsBracket misclassified")
	}
}
