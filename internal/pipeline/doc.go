// Package pipeline drives the obfuscation passes over a module.
//
// ARCHITECTURE:
//
// Per-function pass chains:
// Each eligible function is processed independently: the enabled passes
// run against it in registry order. Functions are distributed over a
// bounded worker pool; the passes themselves never coordinate across
// functions except through module-level resources that guard themselves
// (string encryption's once-per-global bookkeeping).
//
// All-or-nothing pass application:
// Before each pass the pipeline snapshots the function (and the globals
// it references). A pass that returns an error, breaks structural
// validity, or replaces the entry block is rolled back to the snapshot
// and the function's remaining passes are skipped. A failed pass can
// therefore never leave a half-transformed function behind.
//
// CRITICAL PATTERNS:
//
// CP-1: Derived Seeds
// Every randomized decision comes from a pass.Source seeded with
// DeriveSeed(masterSeed, functionName). Worker scheduling cannot perturb
// any function's random stream, so runs are reproducible regardless of
// parallelism.
//
// CP-2: Logical Clock
// Results are stamped with a monotonic seq from Clock.Next(), assigned
// after all workers join, in module function order then registry pass
// order. NEVER stamp from inside workers; completion order is racy.
package pipeline
