package pass

import (
	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

// substitution replaces single arithmetic instructions with equivalent
// longer sequences. All identities hold under two's-complement
// wraparound:
//
//	a + b  =>  a - (-b)
//	a - b  =>  a + (-b)
//	a * 3  =>  (a << 1) + a
type substitution struct{}

func newSubstitution(config.PassConfig) (Pass, error) {
	return substitution{}, nil
}

func (substitution) Name() string { return NameSubstitution }

func (substitution) Run(fn *ir.Function, _ Source) (bool, error) {
	if fn.IsDeclaration() {
		return false, nil
	}
	modified := false
	for _, b := range fn.Blocks {
		// Snapshot: inserted replacements must not be re-substituted.
		for _, old := range append([]*ir.Instr(nil), b.Instrs...) {
			if !SafeToMutate(old) {
				continue
			}
			if rewriteArith(fn, b, old) {
				modified = true
			}
		}
	}
	return modified, nil
}

// rewriteArith replaces old in place when an identity applies.
func rewriteArith(fn *ir.Function, b *ir.BasicBlock, old *ir.Instr) bool {
	pos := b.Index(old)
	if pos < 0 {
		return false
	}

	switch old.Op {
	case ir.OpAdd:
		a, c := old.Operands[0], old.Operands[1]
		neg := fn.NewInstr(ir.OpNeg, c)
		res := fn.NewInstr(ir.OpSub, a, neg)
		b.InsertBefore(neg, pos)
		b.InsertBefore(res, pos+1)
		fn.ReplaceAllUses(old, res)
		b.Erase(old)
		return true

	case ir.OpSub:
		a, c := old.Operands[0], old.Operands[1]
		neg := fn.NewInstr(ir.OpNeg, c)
		res := fn.NewInstr(ir.OpAdd, a, neg)
		b.InsertBefore(neg, pos)
		b.InsertBefore(res, pos+1)
		fn.ReplaceAllUses(old, res)
		b.Erase(old)
		return true

	case ir.OpMul:
		other, ok := mulByThreeOperand(old)
		if !ok {
			return false
		}
		shl := fn.NewInstr(ir.OpShl, other, ir.ConstOf(1))
		res := fn.NewInstr(ir.OpAdd, shl, other)
		b.InsertBefore(shl, pos)
		b.InsertBefore(res, pos+1)
		fn.ReplaceAllUses(old, res)
		b.Erase(old)
		return true
	}
	return false
}

// mulByThreeOperand returns the non-constant side of a multiplication by
// the literal 3. Only the literal form is rewritten; a value that merely
// happens to hold 3 at runtime is not provably 3.
func mulByThreeOperand(i *ir.Instr) (ir.Value, bool) {
	a, b := i.Operands[0], i.Operands[1]
	if c, ok := a.(*ir.Const); ok && c.Int == 3 {
		return b, true
	}
	if c, ok := b.(*ir.Const); ok && c.Int == 3 {
		return a, true
	}
	return ir.Value(nil), false
}
