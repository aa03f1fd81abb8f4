// Package harness provides conformance testing for obfuscation scenarios.
//
// A scenario is a YAML file naming an input module, a seed, the pass
// configuration to apply, and a set of executions to compare:
//
//	name: subst_chain
//	description: "What this scenario validates"
//	module: ../modules/chain.ir
//	seed: 7
//	passes:
//	  instruction-substitution:
//	    enabled: "true"
//	runs:
//	  - func: calc
//	    args: [2, 3]
//
// Run parses the module twice, obfuscates one copy through the real
// pipeline, and interprets both copies on every listed execution: the
// observable results must match. RunWithGolden additionally compares the
// printed obfuscated module against testdata/golden/{name}.golden.
//
// # Deterministic Testing
//
// Scenarios run with a fixed seed and a single worker, so the printed
// output is identical across runs and suitable for golden comparison.
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
