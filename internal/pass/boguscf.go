package pass

import (
	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

// defaultBogusProbability is the per-block selection chance when the
// configuration does not override it.
const defaultBogusProbability = 0.5

// bogusControlFlow inserts branches that can never be taken at runtime
// but stay reachable in the graph. A selected block's unconditional exit
// becomes a conditional branch guarded by a condition that is true under
// every execution; the never-taken arm leads to a junk sibling block of
// inert computation that branches back to the host block.
type bogusControlFlow struct {
	probability float64
}

func newBogusControlFlow(cfg config.PassConfig) (Pass, error) {
	return bogusControlFlow{
		probability: cfg.Float("probability", defaultBogusProbability),
	}, nil
}

func (bogusControlFlow) Name() string { return NameBogusControlFlow }

func (p bogusControlFlow) Run(fn *ir.Function, rng Source) (bool, error) {
	if fn.IsDeclaration() {
		return false, nil
	}
	entry := fn.Entry()
	modified := false

	for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		if b == entry || len(b.Instrs) < 3 || b.Term.Kind != ir.TermJump {
			continue
		}
		if !rng.Chance(p.probability) {
			continue
		}
		injectDeadBranch(fn, b, rng, "bogus")
		modified = true
	}
	return modified, nil
}

// injectDeadBranch rewires b's unconditional exit into
// condbr (k == k), originalTarget, junk, with junk branching back to b.
// The guard compares a constant to itself, so the junk arm is never
// taken; the junk block's results are deliberately unused.
func injectDeadBranch(fn *ir.Function, b *ir.BasicBlock, rng Source, kind string) {
	target := b.Term.Targets[0]

	junk := fn.NewBlock(uniqueBlockName(fn, kind+"."+b.Name))
	inert := fn.NewInstr(ir.OpAdd, ir.ConstOf(0), ir.ConstOf(0))
	junk.Append(inert)
	junk.Append(fn.NewInstr(ir.OpMul, inert, ir.ConstOf(1)))
	junk.SetJump(b)

	k := ir.ConstOf(int64(rng.Intn(256)))
	guard := fn.NewInstr(ir.OpCmpEQ, k, k)
	b.Append(guard)
	b.SetCondBr(guard, target, junk)
}
