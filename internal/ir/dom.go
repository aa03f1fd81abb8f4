package ir

// Reachable returns the set of blocks reachable from the entry block by
// following terminator edges.
func Reachable(f *Function) map[*BasicBlock]bool {
	reached := make(map[*BasicBlock]bool)
	if f.IsDeclaration() {
		return reached
	}
	work := []*BasicBlock{f.Entry()}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		if reached[b] {
			continue
		}
		reached[b] = true
		for _, s := range b.Term.Successors() {
			if s != nil && !reached[s] {
				work = append(work, s)
			}
		}
	}
	return reached
}

// Dominators computes, for every reachable block, the set of blocks that
// dominate it. Standard iterative dataflow over predecessors:
// dom(entry) = {entry}; dom(b) = {b} ∪ intersection of dom(p) over
// reachable predecessors p.
func Dominators(f *Function) map[*BasicBlock]map[*BasicBlock]bool {
	dom := make(map[*BasicBlock]map[*BasicBlock]bool)
	if f.IsDeclaration() {
		return dom
	}

	reached := Reachable(f)
	preds := f.Predecessors()
	entry := f.Entry()

	var blocks []*BasicBlock
	for _, b := range f.Blocks {
		if reached[b] {
			blocks = append(blocks, b)
		}
	}

	// Initialize: entry dominated only by itself, all others by everything.
	dom[entry] = map[*BasicBlock]bool{entry: true}
	for _, b := range blocks {
		if b == entry {
			continue
		}
		all := make(map[*BasicBlock]bool, len(blocks))
		for _, o := range blocks {
			all[o] = true
		}
		dom[b] = all
	}

	changed := true
	for changed {
		changed = false
		for _, b := range blocks {
			if b == entry {
				continue
			}
			var next map[*BasicBlock]bool
			for _, p := range preds[b] {
				if !reached[p] {
					continue
				}
				if next == nil {
					next = make(map[*BasicBlock]bool, len(dom[p]))
					for d := range dom[p] {
						next[d] = true
					}
					continue
				}
				for d := range next {
					if !dom[p][d] {
						delete(next, d)
					}
				}
			}
			if next == nil {
				next = make(map[*BasicBlock]bool)
			}
			next[b] = true
			if len(next) != len(dom[b]) {
				dom[b] = next
				changed = true
				continue
			}
			for d := range next {
				if !dom[b][d] {
					dom[b] = next
					changed = true
					break
				}
			}
		}
	}
	return dom
}
