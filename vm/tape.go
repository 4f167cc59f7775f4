package vm

import (
	"strconv"
	"strings"
)

// Tape is the engine's memory: unsigned 8-bit cells, zero-initialized,
// growing on demand to the right. Cell arithmetic wraps modulo 256.
type Tape struct {
	cells []byte
}

// NewTape returns a tape holding a single zero cell.
func NewTape() *Tape {
	return &Tape{cells: make([]byte, 1, 64)}
}

// BoundsCheck grows the tape until p is addressable. Negative addresses are
// a paradox.
func (t *Tape) BoundsCheck(p int) error {
	if p < 0 {
		return paradox(ErrNegativeAddress,
			"Attempting to find forbidden knowledge is not permitted",
			"attempted to index a negative cell")
	}
	for p >= len(t.cells) {
		t.cells = append(t.cells, 0)
	}
	return nil
}

// Read returns the cell at p.
func (t *Tape) Read(p int) (byte, error) {
	if err := t.BoundsCheck(p); err != nil {
		return 0, err
	}
	return t.cells[p], nil
}

// Write stores v at p.
func (t *Tape) Write(p int, v byte) error {
	if err := t.BoundsCheck(p); err != nil {
		return err
	}
	t.cells[p] = v
	return nil
}

// Add adds delta to the cell at p, wrapping modulo 256.
func (t *Tape) Add(p int, delta int) error {
	if err := t.BoundsCheck(p); err != nil {
		return err
	}
	t.cells[p] = byte(int(t.cells[p]) + delta)
	return nil
}

// Len is the number of cells allocated so far.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Cells returns a copy of the tape contents.
func (t *Tape) Cells() []byte {
	out := make([]byte, len(t.cells))
	copy(out, t.cells)
	return out
}

// String renders the tape as [a, b, c].
func (t *Tape) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range t.cells {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	b.WriteByte(']')
	return b.String()
}
