package ir

import (
	"fmt"
	"strconv"
)

// Function attribute names recognized by the eligibility predicates.
const (
	AttrNoObfuscate  = "noobf"
	AttrIntrinsic    = "intrinsic"
	AttrAlwaysInline = "alwaysinline"
	AttrNoInline     = "noinline"
)

// Function is an ordered block sequence with exactly one entry block
// (Blocks[0]). A function with no blocks is a declaration.
type Function struct {
	Name   string
	Params []*Param
	Blocks []*BasicBlock
	Attrs  map[string]bool

	nextReg int
}

// NewFunction creates a function with the named parameters and no blocks.
func NewFunction(name string, params ...string) *Function {
	f := &Function{Name: name, Attrs: make(map[string]bool)}
	for i, p := range params {
		f.Params = append(f.Params, &Param{Name: p, Index: i})
	}
	return f
}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// Entry returns the entry block, or nil for a declaration.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock creates a block with the given name and appends it to the
// function in program order.
func (f *Function) NewBlock(name string) *BasicBlock {
	b := &BasicBlock{Name: name, fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewInstr creates an unattached instruction with a fresh result register.
func (f *Function) NewInstr(op Opcode, operands ...Value) *Instr {
	i := &Instr{Op: op, Operands: operands}
	if i.HasResult() {
		i.Name = "t" + strconv.Itoa(f.nextReg)
		f.nextReg++
	}
	return i
}

// NewCall creates an unattached call instruction.
func (f *Function) NewCall(callee string, args ...Value) *Instr {
	i := f.NewInstr(OpCall, args...)
	i.Callee = callee
	return i
}

// Param returns the named parameter, or nil.
func (f *Function) Param(name string) *Param {
	for _, p := range f.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Block returns the named block, or nil.
func (f *Function) Block(name string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ReplaceAllUses redirects every operand reference to old, in every
// instruction and terminator of the function, to new.
func (f *Function) ReplaceAllUses(old, new Value) {
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			for n, op := range i.Operands {
				if op == old {
					i.Operands[n] = new
				}
			}
		}
		if b.Term.Value == old {
			b.Term.Value = new
		}
	}
}

// Predecessors computes the predecessor lists of every block from the
// current terminators. Blocks appear in each list in program order of the
// predecessor.
func (f *Function) Predecessors() map[*BasicBlock][]*BasicBlock {
	preds := make(map[*BasicBlock][]*BasicBlock, len(f.Blocks))
	for _, b := range f.Blocks {
		seen := make(map[*BasicBlock]bool)
		for _, s := range b.Term.Successors() {
			if s == nil || seen[s] {
				continue
			}
			seen[s] = true
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// Module owns functions and global constant data.
type Module struct {
	Name    string
	Funcs   []*Function
	Globals []*Global
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// AddFunc appends a function to the module.
func (m *Module) AddFunc(f *Function) *Function {
	m.Funcs = append(m.Funcs, f)
	return f
}

// NewGlobal creates a module-level constant byte array. The name must be
// unique within the module.
func (m *Module) NewGlobal(name string, data []byte) *Global {
	if m.Global(name) != nil {
		panic(fmt.Sprintf("ir: duplicate global @%s", name))
	}
	g := &Global{Name: name, Data: data}
	m.Globals = append(m.Globals, g)
	return g
}

// Global returns the named global, or nil.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Func returns the named function, or nil.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
