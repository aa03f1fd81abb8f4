package pass

import (
	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

const (
	defaultOpaqueProbability = 0.3

	// StyleLiteral guards with a constant self-comparison; StyleParity
	// derives the guard from a live value's low bit.
	StyleLiteral = "literal"
	StyleParity  = "parity"
)

// opaquePredicates replaces selected unconditional exits with a branch
// on a predicate that always evaluates true but is not a plain constant
// in the graph. The false arm targets a fake block of dead computation
// that loops back to its host.
type opaquePredicates struct {
	probability float64
	style       string
}

func newOpaquePredicates(cfg config.PassConfig) (Pass, error) {
	style := cfg.String("style", StyleLiteral)
	if style != StyleLiteral && style != StyleParity {
		style = StyleLiteral
	}
	return opaquePredicates{
		probability: cfg.Float("probability", defaultOpaqueProbability),
		style:       style,
	}, nil
}

func (opaquePredicates) Name() string { return NameOpaquePredicates }

func (p opaquePredicates) Run(fn *ir.Function, rng Source) (bool, error) {
	if fn.IsDeclaration() {
		return false, nil
	}
	entry := fn.Entry()
	modified := false

	for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		if b == entry || len(b.Instrs) < 2 || b.Term.Kind != ir.TermJump {
			continue
		}
		if !rng.Chance(p.probability) {
			continue
		}
		p.guardExit(fn, b)
		modified = true
	}
	return modified, nil
}

// guardExit turns b's jump into condbr(pred, target, fake) where pred
// is an always-true predicate and fake is a dead block jumping back to b.
func (p opaquePredicates) guardExit(fn *ir.Function, b *ir.BasicBlock) {
	target := b.Term.Targets[0]

	fake := fn.NewBlock(uniqueBlockName(fn, "fake."+b.Name))
	dead := fn.NewInstr(ir.OpXor, ir.ConstOf(7), ir.ConstOf(7))
	fake.Append(dead)
	fake.Append(fn.NewInstr(ir.OpAdd, dead, ir.ConstOf(1)))
	fake.SetJump(b)

	pred := p.buildPredicate(fn, b)
	b.SetCondBr(pred, target, fake)
}

// buildPredicate appends the predicate instructions to b and returns the
// final comparison. The parity form encodes (v&1) ^ ((v+1)&1) == 1, an
// identity for every integer v; it needs a live result-producing
// instruction in b and falls back to the literal form when none exists.
func (p opaquePredicates) buildPredicate(fn *ir.Function, b *ir.BasicBlock) *ir.Instr {
	if p.style == StyleParity {
		if v := lastResult(b); v != nil {
			low := fn.NewInstr(ir.OpAnd, v, ir.ConstOf(1))
			b.Append(low)
			next := fn.NewInstr(ir.OpAdd, v, ir.ConstOf(1))
			b.Append(next)
			nextLow := fn.NewInstr(ir.OpAnd, next, ir.ConstOf(1))
			b.Append(nextLow)
			bits := fn.NewInstr(ir.OpXor, low, nextLow)
			b.Append(bits)
			pred := fn.NewInstr(ir.OpCmpEQ, bits, ir.ConstOf(1))
			b.Append(pred)
			return pred
		}
	}
	pred := fn.NewInstr(ir.OpCmpEQ, ir.ConstOf(42), ir.ConstOf(42))
	b.Append(pred)
	return pred
}

// lastResult returns the last instruction in b that produces a value
// safe to feed into new arithmetic, or nil.
func lastResult(b *ir.BasicBlock) *ir.Instr {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		in := b.Instrs[i]
		if !in.HasResult() || !SafeToMutate(in) {
			continue
		}
		// Cells and calls are not arithmetic values here.
		if in.Op == ir.OpAlloca || in.Op == ir.OpCall {
			continue
		}
		return in
	}
	return nil
}
