package ir

import "fmt"

// TermKind identifies the control transfer ending a block.
type TermKind uint8

const (
	TermNone TermKind = iota // block not yet terminated; invalid in a finished function
	TermReturn
	TermJump
	TermCondBr
	TermSwitch
	TermUnreachable
)

// SwitchCase routes one scrutinee value to a target block.
type SwitchCase struct {
	Value  int64
	Target *BasicBlock
}

// Terminator is the single control transfer at the end of a block.
//
// Field use by kind:
//   - TermReturn: Value is the returned value, nil for a bare return.
//   - TermJump: Targets[0] is the destination.
//   - TermCondBr: Value is the condition; Targets[0] taken when nonzero,
//     Targets[1] otherwise.
//   - TermSwitch: Value is the scrutinee; Cases map values to targets,
//     Default is taken when no case matches.
//   - TermUnreachable: no fields.
type Terminator struct {
	Kind    TermKind
	Value   Value
	Targets []*BasicBlock
	Cases   []SwitchCase
	Default *BasicBlock
}

// Successors returns every block the terminator can transfer control to,
// in a stable order.
func (t *Terminator) Successors() []*BasicBlock {
	switch t.Kind {
	case TermJump, TermCondBr:
		return t.Targets
	case TermSwitch:
		succs := make([]*BasicBlock, 0, len(t.Cases)+1)
		for _, c := range t.Cases {
			succs = append(succs, c.Target)
		}
		if t.Default != nil {
			succs = append(succs, t.Default)
		}
		return succs
	default:
		return nil
	}
}

// BasicBlock is an ordered instruction sequence ending in one terminator.
type BasicBlock struct {
	Name   string
	Instrs []*Instr
	Term   Terminator

	fn *Function
}

// Func returns the function owning the block.
func (b *BasicBlock) Func() *Function {
	return b.fn
}

// Terminated reports whether the block has a terminator.
func (b *BasicBlock) Terminated() bool {
	return b.Term.Kind != TermNone
}

// Append adds an instruction at the end of the block's instruction list,
// after any existing instructions and before the terminator.
func (b *BasicBlock) Append(i *Instr) {
	i.block = b
	b.Instrs = append(b.Instrs, i)
}

// InsertBefore inserts an instruction at position pos in program order.
// pos == len(Instrs) appends.
func (b *BasicBlock) InsertBefore(i *Instr, pos int) {
	if pos < 0 || pos > len(b.Instrs) {
		panic(fmt.Sprintf("ir: insert position %d out of range in block %s", pos, b.Name))
	}
	i.block = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[pos+1:], b.Instrs[pos:])
	b.Instrs[pos] = i
}

// Index returns the position of i in the block, or -1 if absent.
func (b *BasicBlock) Index(i *Instr) int {
	for n, in := range b.Instrs {
		if in == i {
			return n
		}
	}
	return -1
}

// Erase removes an instruction from the block. Uses of its result are the
// caller's responsibility (see Function.ReplaceAllUses).
func (b *BasicBlock) Erase(i *Instr) {
	n := b.Index(i)
	if n < 0 {
		panic(fmt.Sprintf("ir: erasing instruction %s not in block %s", i.Ref(), b.Name))
	}
	b.Instrs = append(b.Instrs[:n], b.Instrs[n+1:]...)
	i.block = nil
}

// SetReturn terminates the block with a return of v (nil for bare return).
func (b *BasicBlock) SetReturn(v Value) {
	b.Term = Terminator{Kind: TermReturn, Value: v}
}

// SetJump terminates the block with an unconditional branch.
func (b *BasicBlock) SetJump(target *BasicBlock) {
	b.Term = Terminator{Kind: TermJump, Targets: []*BasicBlock{target}}
}

// SetCondBr terminates the block with a conditional branch: onTrue is
// taken when cond evaluates nonzero, onFalse otherwise.
func (b *BasicBlock) SetCondBr(cond Value, onTrue, onFalse *BasicBlock) {
	b.Term = Terminator{Kind: TermCondBr, Value: cond, Targets: []*BasicBlock{onTrue, onFalse}}
}

// SetSwitch terminates the block with a multi-way branch over v.
func (b *BasicBlock) SetSwitch(v Value, def *BasicBlock, cases []SwitchCase) {
	b.Term = Terminator{Kind: TermSwitch, Value: v, Cases: cases, Default: def}
}

// SetUnreachable terminates the block as statically unreachable.
func (b *BasicBlock) SetUnreachable() {
	b.Term = Terminator{Kind: TermUnreachable}
}
