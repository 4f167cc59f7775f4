package vm

// Options configures an engine. They are fixed at construction.
type Options struct {
	// Verbose emits jump tables and per-step traces to the chrono.vm logger.
	Verbose bool

	// NonZeroJumpOnEnd makes } jump back when the cell is nonzero instead of zero.
	NonZeroJumpOnEnd bool

	// EraseAllowsJumps keeps instruction pointer moves made by chrono-stack
	// redirects during E. Otherwise the pointer is restored afterwards.
	EraseAllowsJumps bool

	// Profile records per-instruction execution counts.
	Profile bool
}
