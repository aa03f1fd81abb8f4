// Package report persists obfuscation run outcomes.
//
// Each pipeline invocation becomes one run row (UUIDv7 id, module name,
// seed) plus one result row per (function, pass) attempt, keyed by the
// pipeline's logical seq. Runs carry an aggregate stats blob written when
// the run finishes.
//
// Storage is SQLite in WAL mode with a single writer connection; readers
// can inspect a report database while a run is still writing.
package report
