// Package pass implements the CFG obfuscation transforms.
//
// Each pass rewrites one function in place through the ir package's
// mutation primitives and reports whether it changed anything. Passes are
// independent and composable: any enabled subset may run in any order,
// and each leaves the function structurally valid (the pipeline verifies
// and rolls back if not).
//
// CRITICAL PATTERNS:
//
// Determinism: passes draw every randomized decision from the Source
// handed to Run, never from process-global state. The pipeline derives
// one seeded source per function from the configured master seed, so the
// same seed and input always produce the same output, regardless of
// worker scheduling.
//
// Explicit registration: the available passes live in a Registry value
// built by NewRegistry, in declaration order. There is no self-registering
// global list; the pipeline's pass set is a visible, testable value.
package pass
