package ir

// Opcode identifies the operation an instruction performs.
type Opcode uint8

const (
	OpInvalid Opcode = iota

	// Integer arithmetic, wraparound semantics.
	OpAdd
	OpSub
	OpMul
	OpNeg
	OpShl
	OpXor
	OpAnd

	// Comparisons produce 0 or 1.
	OpCmpEQ
	OpCmpSGT

	// Memory. Alloca creates a mutable int64 cell local to the function.
	OpAlloca
	OpLoad
	OpStore

	// Control-sensitive instructions whose structural position is
	// significant. Passes must never mutate or relocate these.
	OpPhi
	OpLandingPad

	// Call invokes a named callee with the operand list as arguments.
	OpCall
)

var opcodeNames = map[Opcode]string{
	OpAdd:        "add",
	OpSub:        "sub",
	OpMul:        "mul",
	OpNeg:        "neg",
	OpShl:        "shl",
	OpXor:        "xor",
	OpAnd:        "and",
	OpCmpEQ:      "cmpeq",
	OpCmpSGT:     "cmpsgt",
	OpAlloca:     "alloca",
	OpLoad:       "load",
	OpStore:      "store",
	OpPhi:        "phi",
	OpLandingPad: "landingpad",
	OpCall:       "call",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

// String returns the printer mnemonic for the opcode.
func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return "invalid"
}

// Instr is a single instruction. An instruction with a result acts as a
// Value for later instructions (def-use edges). Instructions belong to
// exactly one block at a time.
type Instr struct {
	Op       Opcode
	Name     string // result register name without the "%" prefix; "" if no result
	Operands []Value
	Callee   string // OpCall only
	block    *BasicBlock
}

// Ref implements Value.
func (i *Instr) Ref() string {
	return "%" + i.Name
}

// HasResult reports whether the instruction produces a value.
func (i *Instr) HasResult() bool {
	return i.Op != OpStore
}

// Block returns the block currently containing the instruction,
// or nil if it has been erased or not yet inserted.
func (i *Instr) Block() *BasicBlock {
	return i.block
}
