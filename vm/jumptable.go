package vm

import (
	"fmt"
	"sort"
	"strings"
)

// NoMatch is the jump table value of a bracket without a partner.
const NoMatch = -1

// JumpTable maps bracket indices of one program image to their partners.
// Forward is keyed by opener index, Backward by closer index and is the exact
// inverse of Forward for every matched pair.
type JumpTable struct {
	Forward  map[int]int
	Backward map[int]int
}

// MapBrackets scans code once and pairs { with } by nesting. Openers left on
// the stack and closers with nothing to pop map to NoMatch.
func MapBrackets(code string) *JumpTable {
	forward := make(map[int]int)
	var strayClosers []int
	stack := make([]int, 0, 16)

	for i := 0; i < len(code); i++ {
		switch code[i] {
		case GlyphOpen:
			stack = append(stack, i)
		case GlyphClose:
			if len(stack) == 0 {
				strayClosers = append(strayClosers, i)
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			forward[open] = i
		}
	}
	for _, open := range stack {
		forward[open] = NoMatch
	}

	t := NewJumpTable(forward)
	for _, c := range strayClosers {
		t.Backward[c] = NoMatch
	}
	return t
}

// NewJumpTable wraps forward and derives Backward by swapping every entry.
func NewJumpTable(forward map[int]int) *JumpTable {
	t := &JumpTable{
		Forward:  forward,
		Backward: make(map[int]int, len(forward)),
	}
	for open, closer := range forward {
		if closer != NoMatch {
			t.Backward[closer] = open
		}
	}
	return t
}

// Unmatched returns the sorted indices of brackets without a partner.
func (t *JumpTable) Unmatched() []int {
	var out []int
	for open, closer := range t.Forward {
		if closer == NoMatch {
			out = append(out, open)
		}
	}
	for closer, open := range t.Backward {
		if open == NoMatch {
			out = append(out, closer)
		}
	}
	sort.Ints(out)
	return out
}

func (t *JumpTable) String() string {
	keys := make([]int, 0, len(t.Forward))
	for k := range t.Forward {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d=%d", k, t.Forward[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Mirror swaps every { with } and back, leaving other characters alone.
// Mirror(Mirror(s)) == s.
func Mirror(code string) string {
	b := []byte(code)
	for i, c := range b {
		switch c {
		case GlyphOpen:
			b[i] = GlyphClose
		case GlyphClose:
			b[i] = GlyphOpen
		}
	}
	return string(b)
}

// DualJumpTable holds the tables of both program images.
type DualJumpTable struct {
	Standard *JumpTable // Built from the program as written
	Mirrored *JumpTable // Built from Mirror(program)
}

// NewDualJumpTable maps the brackets of code and of its mirror image.
func NewDualJumpTable(code string) *DualJumpTable {
	return &DualJumpTable{
		Standard: MapBrackets(code),
		Mirrored: MapBrackets(Mirror(code)),
	}
}

// For returns the table consulted while running in mode m.
func (d *DualJumpTable) For(m Mode) *JumpTable {
	if m == Reverse {
		return d.Mirrored
	}
	return d.Standard
}
