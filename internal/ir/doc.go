// Package ir provides the intermediate representation consumed and mutated
// by the obfuscation passes.
//
// This package is the foundational layer: every other internal package
// imports ir; ir imports nothing internal. Functions own basic blocks,
// blocks own instructions, and every block ends in exactly one terminator.
//
// Key design constraints:
//   - All integer values are int64 with two's-complement wraparound.
//     There are no float types anywhere in the model.
//   - Passes mutate functions only through the primitives here (NewBlock,
//     Append, InsertBefore, Erase, ReplaceAllUses, terminator setters).
//   - A definition must dominate all of its uses. Verify enforces this;
//     passes that break it are rolled back by the pipeline.
//   - The entry block keeps its identity and position across any pass.
package ir
