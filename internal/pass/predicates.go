package pass

import (
	"fmt"

	"github.com/cloakforge/cloak/internal/ir"
)

// EligibleFunction decides whether any pass may touch a function:
// declarations, compiler intrinsics, and functions carrying a
// do-not-transform attribute (noobf, forced inlining either way) are
// off limits. Consulted by the pipeline before any pass runs.
func EligibleFunction(f *ir.Function) bool {
	if f.IsDeclaration() {
		return false
	}
	if f.Attrs[ir.AttrIntrinsic] || f.Attrs[ir.AttrNoObfuscate] {
		return false
	}
	if f.Attrs[ir.AttrAlwaysInline] || f.Attrs[ir.AttrNoInline] {
		return false
	}
	return true
}

// SafeToMutate reports whether an instruction may be replaced or
// relocated. Phi nodes and landing pads derive meaning from their
// structural position; touching them produces an invalid graph, so
// every pass must check this before mutating.
func SafeToMutate(i *ir.Instr) bool {
	return i.Op != ir.OpPhi && i.Op != ir.OpLandingPad
}

// uniqueBlockName returns base, or base suffixed with the first free
// ordinal when a block of that name already exists (a prior pass run may
// have claimed it).
func uniqueBlockName(f *ir.Function, base string) string {
	if f.Block(base) == nil {
		return base
	}
	for n := 2; ; n++ {
		name := fmt.Sprintf("%s.%d", base, n)
		if f.Block(name) == nil {
			return name
		}
	}
}

// hasUnsafeInstrs reports whether the function contains any instruction
// failing SafeToMutate. Flattening refuses such functions wholesale:
// relocating a phi's predecessors silently changes its meaning.
func hasUnsafeInstrs(f *ir.Function) bool {
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			if !SafeToMutate(i) {
				return true
			}
		}
	}
	return false
}
