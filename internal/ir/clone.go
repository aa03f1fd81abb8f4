package ir

// Snapshot is a deep copy of a function body plus the stored bytes of
// every global the body references. The pipeline takes one before each
// pass and restores it when the pass fails or produces an invalid graph,
// giving all-or-nothing pass application.
type Snapshot struct {
	fn      *Function
	blocks  []*BasicBlock
	nextReg int
	globals map[*Global][]byte
}

// NewSnapshot captures the current body of f.
func NewSnapshot(f *Function) *Snapshot {
	s := &Snapshot{
		fn:      f,
		blocks:  cloneBlocks(f),
		nextReg: f.nextReg,
		globals: make(map[*Global][]byte),
	}
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			for _, op := range i.Operands {
				if g, ok := op.(*Global); ok {
					if _, seen := s.globals[g]; !seen {
						s.globals[g] = append([]byte(nil), g.Data...)
					}
				}
			}
		}
	}
	return s
}

// Restore puts the captured body back on the function and reverts any
// referenced global initializers. The function object itself keeps its
// identity; only its internal structure is replaced.
func (s *Snapshot) Restore() {
	s.fn.Blocks = s.blocks
	s.fn.nextReg = s.nextReg
	for _, b := range s.blocks {
		b.fn = s.fn
	}
	for g, data := range s.globals {
		g.Data = append([]byte(nil), data...)
	}
}

// cloneBlocks deep-copies a function body. Blocks and instructions are
// duplicated; constants, params and globals are shared since the passes
// treat them as immutable values (global data mutation is captured
// separately by the snapshot).
func cloneBlocks(f *Function) []*BasicBlock {
	blockMap := make(map[*BasicBlock]*BasicBlock, len(f.Blocks))
	instrMap := make(map[*Instr]*Instr)

	clones := make([]*BasicBlock, len(f.Blocks))
	for n, b := range f.Blocks {
		nb := &BasicBlock{Name: b.Name, fn: f}
		blockMap[b] = nb
		clones[n] = nb
		for _, i := range b.Instrs {
			ni := &Instr{Op: i.Op, Name: i.Name, Callee: i.Callee, block: nb}
			instrMap[i] = ni
			nb.Instrs = append(nb.Instrs, ni)
		}
	}

	mapValue := func(v Value) Value {
		if i, ok := v.(*Instr); ok {
			if ni, ok := instrMap[i]; ok {
				return ni
			}
		}
		return v
	}

	for _, b := range f.Blocks {
		nb := blockMap[b]
		for n, i := range b.Instrs {
			ni := nb.Instrs[n]
			ni.Operands = make([]Value, len(i.Operands))
			for k, op := range i.Operands {
				ni.Operands[k] = mapValue(op)
			}
		}
		nt := Terminator{Kind: b.Term.Kind}
		if b.Term.Value != nil {
			nt.Value = mapValue(b.Term.Value)
		}
		for _, t := range b.Term.Targets {
			nt.Targets = append(nt.Targets, blockMap[t])
		}
		for _, c := range b.Term.Cases {
			nt.Cases = append(nt.Cases, SwitchCase{Value: c.Value, Target: blockMap[c.Target]})
		}
		if b.Term.Default != nil {
			nt.Default = blockMap[b.Term.Default]
		}
		nb.Term = nt
	}
	return clones
}
