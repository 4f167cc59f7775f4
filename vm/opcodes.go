package vm

// Glyphs of the instruction set. Every other character is a no-op.
const (
	GlyphReverse = 'R' // Flip direction mode and switch the active image
	GlyphErase   = 'E' // Pretend-execute N ticks of the chrono-stack
	GlyphJump    = 'J' // Move the instruction pointer by N
	GlyphWait    = 'W' // Schedule a one-shot redirect to the next instruction
	GlyphPersist = 'P' // Jump by N and schedule a self-rescheduling redirect
	GlyphIO      = '.' // Output the cell (forward) or read a line into it (reverse)
	GlyphPlus    = '+' // Increment (forward) or decrement (reverse) the cell
	GlyphMove    = '>' // Advance (forward) or retreat (reverse) the memory pointer
	GlyphOpen    = '{' // Jump to the matching closer when the cell is zero
	GlyphClose   = '}' // Jump back to the matching opener when the cell is zero
)

// GlyphInfo describes one instruction glyph.
type GlyphInfo struct {
	Glyph   byte
	Name    string
	Forward string // Effect while running FORWARD
	Reverse string // Effect while running REVERSE
}

var glyphTable = []GlyphInfo{
	{GlyphReverse, "reverse", "switch to REVERSE mode and the mirrored program", "switch to FORWARD mode and the standard program"},
	{GlyphErase, "erase", "run N chrono-stack ticks without executing them", "run N chrono-stack ticks without executing them"},
	{GlyphJump, "jump", "advance the instruction pointer by N", "retreat the instruction pointer by N"},
	{GlyphWait, "wait", "after N ticks, redirect to the instruction after this one", "after N ticks, redirect to the instruction before this one"},
	{GlyphPersist, "persist", "jump ahead N and redirect there every N ticks after N+1", "jump back N and redirect there every N ticks after N+1"},
	{GlyphIO, "io", "print the current cell as a character", "read a line and store its first character code"},
	{GlyphPlus, "plus", "increment the current cell (255 wraps to 0)", "decrement the current cell (0 wraps to 255)"},
	{GlyphMove, "move", "advance the memory pointer", "retreat the memory pointer"},
	{GlyphOpen, "open", "if the cell is zero, jump to the matching }", "if the cell is zero, jump to the matching } of the mirrored program"},
	{GlyphClose, "close", "if the cell is zero, jump back to the matching {", "if the cell is zero, jump back to the matching { of the mirrored program"},
}

// Glyphs returns descriptions of every instruction glyph in a stable order.
func Glyphs() []GlyphInfo {
	out := make([]GlyphInfo, len(glyphTable))
	copy(out, glyphTable)
	return out
}

// LookupGlyph returns the description of c, or false if c is a no-op.
func LookupGlyph(c byte) (GlyphInfo, bool) {
	for _, g := range glyphTable {
		if g.Glyph == c {
			return g, true
		}
	}
	return GlyphInfo{}, false
}

// IsBracket reports whether c is a jump glyph.
func IsBracket(c byte) bool {
	return c == GlyphOpen || c == GlyphClose
}

// Mode is the direction the engine runs through the program.
type Mode int

const (
	Forward Mode = iota
	Reverse
)

func (m Mode) String() string {
	switch m {
	case Forward:
		return "FORWARD"
	case Reverse:
		return "REVERSE"
	default:
		return "UNKNOWN"
	}
}

// Flip returns the opposite direction.
func (m Mode) Flip() Mode {
	if m == Forward {
		return Reverse
	}
	return Forward
}

// Delta is the per-step instruction pointer movement in this mode.
func (m Mode) Delta() int {
	if m == Reverse {
		return -1
	}
	return 1
}
