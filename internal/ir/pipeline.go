package ir

// DebugLogging gates the driver loop's progress narration (written with
// the builtin println, to stderr), following the same boolean-flag-gated
// convention used throughout the
// backend (see wazevoapi.RegAllocLoggingEnabled in the teacher codebase)
// rather than pulling in a logging library for what is purely a developer
// trace.
var DebugLogging = false

// Optimize iterates liveness analysis and dead-code/dead-parameter
// elimination to a fixpoint: each round's DCE output is fed back into
// liveness analysis until a round's DCE finds nothing left to remove.
//
// The returned Program is the fixpoint re-annotated by one final liveness
// pass (rather than DCE's own nil-Ana output), since the conflict analyzer
// that consumes this package's output needs the live-in sets attached to
// every node, not just a settled program shape.
func Optimize(prog *Program) *Program {
	cur := prog
	for round := 0; ; round++ {
		annotated := AnalyzeLiveness(cur)
		reduced, progress := RemoveUnused(annotated)
		if !progress.Any() {
			if DebugLogging {
				println("ir: optimize: settled after", round, "round(s)")
			}
			return annotated
		}
		if DebugLogging {
			println("ir: optimize: round", round, "removed", len(progress.DeadVars), "dead op(s) and",
				len(progress.DeadParams), "block(s) with dead param(s)")
		}
		cur = reduced
		if round > 100_000 {
			panic("ir: BUG: optimize failed to reach a fixpoint")
		}
	}
}
