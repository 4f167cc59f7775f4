package vm

import (
	"errors"
	"reflect"
	"testing"
)

func TestTapeStartsWithOneZeroCell(t *testing.T) {
	tape := NewTape()
	if tape.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tape.Len())
	}
	if got := tape.String(); got != "[0]" {
		t.Errorf("String() = %q, want %q", got, "[0]")
	}
}

func TestTapeGrowsOnRead(t *testing.T) {
	tape := NewTape()
	v, err := tape.Read(5)
	if err != nil {
		t.Fatalf("Read(5) error: %v", err)
	}
	if v != 0 {
		t.Errorf("Read(5) = %d, want 0", v)
	}
	if tape.Len() != 6 {
		t.Errorf("Len() = %d, want 6", tape.Len())
	}
}

func TestTapeNegativeAddress(t *testing.T) {
	tape := NewTape()
	if _, err := tape.Read(-1); !errors.Is(err, ErrNegativeAddress) {
		t.Errorf("Read(-1) error = %v, want ErrNegativeAddress", err)
	}
	if err := tape.Write(-3, 1); !errors.Is(err, ErrNegativeAddress) {
		t.Errorf("Write(-3) error = %v, want ErrNegativeAddress", err)
	}
	if err := tape.BoundsCheck(-1); err == nil {
		t.Error("BoundsCheck(-1) should fail")
	}
	if tape.Len() != 1 {
		t.Errorf("negative access changed Len() to %d", tape.Len())
	}
}

func TestTapeWraps(t *testing.T) {
	tape := NewTape()
	if err := tape.Write(0, 255); err != nil {
		t.Fatal(err)
	}
	if err := tape.Add(0, 1); err != nil {
		t.Fatal(err)
	}
	if v, _ := tape.Read(0); v != 0 {
		t.Errorf("255+1 = %d, want 0", v)
	}
	if err := tape.Add(0, -1); err != nil {
		t.Fatal(err)
	}
	if v, _ := tape.Read(0); v != 255 {
		t.Errorf("0-1 = %d, want 255", v)
	}
}

func TestTapeCellsIsACopy(t *testing.T) {
	tape := NewTape()
	tape.Write(2, 7)
	cells := tape.Cells()
	if !reflect.DeepEqual(cells, []byte{0, 0, 7}) {
		t.Fatalf("Cells() = %v, want [0 0 7]", cells)
	}
	cells[2] = 9
	if v, _ := tape.Read(2); v != 7 {
		t.Errorf("mutating Cells() changed the tape to %d", v)
	}
	if got := tape.String(); got != "[0, 0, 7]" {
		t.Errorf("String() = %q", got)
	}
}
