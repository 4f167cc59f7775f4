// Package vm implements the Chrono execution engine.
//
// This package contains:
//   - Bracket matching for the standard and mirrored program images
//   - The byte tape with lazy growth and wrapping cells
//   - The chrono-stack of delayed and self-rescheduling jumps
//   - The single-step interpreter driven by an external loop
//   - An optional per-instruction profiler
//   - A breakpoint debugger and state snapshots
//
// Running FORWARD executes the program as written. Running REVERSE executes
// its mirror image, in which every { and } trade places, so bracket matching
// in reverse uses a table built from the mirrored text.
package vm
