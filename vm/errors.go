package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Paradoxes: fatal engine conditions
// ---------------------------------------------------------------------------

var (
	ErrNegativeAddress   = errors.New("negative memory address")
	ErrTemporalUnderflow = errors.New("instruction pointer negative in forward mode")
	ErrTemporalOverflow  = errors.New("instruction pointer past program end in reverse mode")
	ErrInvalidJump       = errors.New("jump dispatched on a non-bracket instruction")
	ErrUnmatchedBracket  = errors.New("jump through an unmatched bracket")
	ErrStepLimit         = errors.New("step limit exceeded")
)

// ParadoxError is a fatal condition raised while stepping. Kind is one of the
// Err* sentinels above and is what errors.Is matches against.
type ParadoxError struct {
	Kind    error
	Message string // Flavour text shown to the user
	Detail  string // Technical cause
	IP      int
	MP      int
}

func (e *ParadoxError) Error() string {
	return fmt.Sprintf("%s (%s at ip=%d mp=%d)", e.Message, e.Detail, e.IP, e.MP)
}

func (e *ParadoxError) Unwrap() error {
	return e.Kind
}

// IsParadox reports whether err is a fatal engine condition and returns it.
func IsParadox(err error) (*ParadoxError, bool) {
	var p *ParadoxError
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

func paradox(kind error, message, detail string) *ParadoxError {
	return &ParadoxError{Kind: kind, Message: message, Detail: detail}
}
