package vm

import "fmt"

// ---------------------------------------------------------------------------
// Chrono-stack: delayed jumps
// ---------------------------------------------------------------------------

// ChronoEntry is a pending redirect. When ReturnIn counts down to zero the
// engine jumps to JumpIndex. A JumpAgain entry re-arms itself with a period
// of OrigReturnIn ticks.
type ChronoEntry struct {
	ReturnIn     int
	JumpIndex    int
	JumpAgain    bool
	OrigReturnIn int
}

// NewChronoEntry builds an entry whose re-arm period is one less than its
// first countdown.
func NewChronoEntry(returnIn, jumpIndex int, jumpAgain bool) ChronoEntry {
	return ChronoEntry{
		ReturnIn:     returnIn,
		JumpIndex:    jumpIndex,
		JumpAgain:    jumpAgain,
		OrigReturnIn: returnIn - 1,
	}
}

func (e ChronoEntry) String() string {
	return fmt.Sprintf("ChronoEntry(returnIn=%d, jumpIndex=%d, jumpAgain=%t, origReturnIn=%d)",
		e.ReturnIn, e.JumpIndex, e.JumpAgain, e.OrigReturnIn)
}

// ChronoStack is a LIFO of pending redirects. Only the top entry counts down;
// entries below it are inert until they surface.
type ChronoStack struct {
	entries []ChronoEntry
}

// Push adds e on top.
func (s *ChronoStack) Push(e ChronoEntry) {
	s.entries = append(s.entries, e)
}

// Top returns the top entry, or false when the stack is empty.
func (s *ChronoStack) Top() (ChronoEntry, bool) {
	if len(s.entries) == 0 {
		return ChronoEntry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len is the number of pending entries.
func (s *ChronoStack) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the stack, bottom first.
func (s *ChronoStack) Entries() []ChronoEntry {
	out := make([]ChronoEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tick counts the top entry down by one. When it falls due the entry is
// popped and its target returned with fired set. A JumpAgain entry is
// replaced by a fresh one that targets ip, the instruction pointer at the
// moment of firing, and keeps rescheduling itself every OrigReturnIn ticks.
func (s *ChronoStack) Tick(ip int) (target int, fired bool) {
	n := len(s.entries)
	if n == 0 {
		return 0, false
	}
	top := &s.entries[n-1]
	top.ReturnIn--
	if top.ReturnIn > 0 {
		return 0, false
	}

	due := *top
	s.entries = s.entries[:n-1]
	if due.JumpAgain {
		s.entries = append(s.entries, ChronoEntry{
			ReturnIn:     due.OrigReturnIn,
			JumpIndex:    ip,
			JumpAgain:    true,
			OrigReturnIn: due.OrigReturnIn,
		})
	}
	return due.JumpIndex, true
}
