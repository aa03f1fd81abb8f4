package pass

import (
	"fmt"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

// flattening rewrites a function's nested control flow into a single
// dispatcher switching over a state variable. Every non-entry block
// becomes a sibling of the dispatcher, reached only through its state
// number; relocated blocks store their successor's state and jump back.
//
// Multi-successor terminators are preserved: each conditional or switch
// edge is retargeted through a small trampoline block that stores that
// edge's state before entering the dispatcher, so the original runtime
// decision still picks the next state.
type flattening struct{}

func newFlattening(config.PassConfig) (Pass, error) {
	return flattening{}, nil
}

func (flattening) Name() string { return NameFlattening }

func (flattening) Run(fn *ir.Function, _ Source) (bool, error) {
	if len(fn.Blocks) <= 1 {
		return false, nil // nothing to flatten
	}
	for _, b := range fn.Blocks {
		if !b.Terminated() {
			return false, fmt.Errorf("flattening @%s: block %s has no terminator", fn.Name, b.Name)
		}
	}
	if hasUnsafeInstrs(fn) {
		return false, nil
	}
	if hasPortableCellEscape(fn) {
		return false, nil
	}

	// Values computed in one relocated block and consumed in another
	// would stop dominating their uses once every path runs through the
	// dispatcher. Demote them to entry-allocated cells first.
	demoteCrossBlockValues(fn)

	entry := fn.Entry()
	original := append([]*ir.BasicBlock(nil), fn.Blocks...)

	// State variable lives in the entry block, initialized to the entry
	// state 0.
	stateVar := fn.NewInstr(ir.OpAlloca)
	entry.InsertBefore(stateVar, 0)
	entry.InsertBefore(fn.NewInstr(ir.OpStore, ir.ConstOf(0), stateVar), 1)

	// Dispatcher: load the state, switch to the block owning it. The
	// default arm is a trap that no execution can reach.
	dispatch := fn.NewBlock(uniqueBlockName(fn, "dispatch"))
	trap := fn.NewBlock(uniqueBlockName(fn, "dispatch.trap"))
	trap.SetUnreachable()
	stateLoad := fn.NewInstr(ir.OpLoad, stateVar)
	dispatch.Append(stateLoad)

	// Positive state numbers in program order, for reproducible layouts.
	state := make(map[*ir.BasicBlock]int64, len(original)-1)
	cases := make([]ir.SwitchCase, 0, len(original)-1)
	for i, b := range original[1:] {
		state[b] = int64(i + 1)
		cases = append(cases, ir.SwitchCase{Value: int64(i + 1), Target: b})
	}
	dispatch.SetSwitch(stateLoad, trap, cases)

	// enter returns the block an edge to succ should now target: the
	// entry keeps direct edges (it has no state), single blocks get a
	// trampoline that stores the successor state and re-enters the
	// dispatcher.
	enter := func(succ *ir.BasicBlock, from string) *ir.BasicBlock {
		if succ == entry {
			return entry
		}
		tramp := fn.NewBlock(uniqueBlockName(fn, fmt.Sprintf("flat.%s.%s", from, succ.Name)))
		tramp.Append(fn.NewInstr(ir.OpStore, ir.ConstOf(state[succ]), stateVar))
		tramp.SetJump(dispatch)
		return tramp
	}

	for _, b := range original[1:] {
		switch b.Term.Kind {
		case ir.TermJump:
			succ := b.Term.Targets[0]
			if succ == entry {
				continue
			}
			b.Append(fn.NewInstr(ir.OpStore, ir.ConstOf(state[succ]), stateVar))
			b.SetJump(dispatch)
		case ir.TermCondBr:
			b.Term.Targets[0] = enter(b.Term.Targets[0], b.Name)
			b.Term.Targets[1] = enter(b.Term.Targets[1], b.Name)
		case ir.TermSwitch:
			for i := range b.Term.Cases {
				b.Term.Cases[i].Target = enter(b.Term.Cases[i].Target, b.Name)
			}
			b.Term.Default = enter(b.Term.Default, b.Name)
		case ir.TermReturn, ir.TermUnreachable:
			// No successor state to transfer.
		}
	}
	return true, nil
}

// hasPortableCellEscape reports whether a cell is allocated outside the
// entry block and used from another block. Such a cell cannot be demoted
// (a cell's identity is not a storable value), so the function is left
// unflattened rather than risking an invalid graph.
func hasPortableCellEscape(fn *ir.Function) bool {
	entry := fn.Entry()
	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		for _, i := range b.Instrs {
			if i.Op != ir.OpAlloca {
				continue
			}
			if usedOutside(fn, i, b) {
				return true
			}
		}
	}
	return false
}

func usedOutside(fn *ir.Function, def *ir.Instr, home *ir.BasicBlock) bool {
	for _, b := range fn.Blocks {
		for _, u := range b.Instrs {
			for _, op := range u.Operands {
				if op == ir.Value(def) && b != home {
					return true
				}
			}
		}
		if b.Term.Value == ir.Value(def) && b != home {
			return true
		}
	}
	return false
}

// demoteCrossBlockValues rewrites every non-entry, non-cell definition
// with uses in other blocks to go through an entry-allocated cell: store
// after the definition, load immediately before each remote use. Entry
// definitions dominate everything and stay as they are.
func demoteCrossBlockValues(fn *ir.Function) {
	entry := fn.Entry()

	type demotion struct {
		def  *ir.Instr
		home *ir.BasicBlock
	}
	var work []demotion
	for _, b := range fn.Blocks {
		if b == entry {
			continue
		}
		for _, i := range b.Instrs {
			if !i.HasResult() || i.Op == ir.OpAlloca {
				continue
			}
			if usedOutside(fn, i, b) {
				work = append(work, demotion{def: i, home: b})
			}
		}
	}

	for _, d := range work {
		cell := fn.NewInstr(ir.OpAlloca)
		entry.InsertBefore(cell, 0)
		d.home.InsertBefore(fn.NewInstr(ir.OpStore, d.def, cell), d.home.Index(d.def)+1)

		for _, b := range fn.Blocks {
			if b == d.home {
				continue
			}
			// Walk by index: loads are inserted ahead of the use.
			for pos := 0; pos < len(b.Instrs); pos++ {
				u := b.Instrs[pos]
				var load *ir.Instr
				for k, op := range u.Operands {
					if op != ir.Value(d.def) {
						continue
					}
					if load == nil {
						load = fn.NewInstr(ir.OpLoad, cell)
						b.InsertBefore(load, pos)
						pos++
					}
					u.Operands[k] = load
				}
			}
			if b.Term.Value == ir.Value(d.def) {
				load := fn.NewInstr(ir.OpLoad, cell)
				b.Append(load)
				b.Term.Value = load
			}
		}
	}
}
