package ir

import "fmt"

// DecodeCallee is the synthesized runtime decode routine the
// string-encryption pass inserts before rewritten call sites. The
// interpreter implements it as the inverse of the encryption transform.
const DecodeCallee = "cloak.decode"

// DecodeKey is the process-wide single-byte XOR key shared by the
// string-encryption pass and the runtime decode.
const DecodeKey byte = 0x42

// maxSteps bounds interpretation so a miscompiled loop fails the test
// instead of hanging it.
const maxSteps = 1 << 20

// ExecResult is the observable outcome of interpreting a function:
// its return value and the ordered stream of text-call observations.
type ExecResult struct {
	Ret    int64
	Output []string
}

// word is a runtime value: an integer, or a byte string for values
// derived from globals (call results of the decode routine).
type word struct {
	n     int64
	bytes []byte
}

// Exec interprets fn within m on the given int64 arguments and returns
// the observable result. It exists so tests can prove semantic
// equivalence between a function and its obfuscated form by running both.
//
// Observation model for the recognized text callees: each call appends
// "callee(arg, ...)" to Output, where byte-array arguments render as
// their current string contents and integers in decimal. strlen returns
// the byte length, strcmp the comparison result; other calls return 0.
func Exec(m *Module, fn *Function, args []int64) (ExecResult, error) {
	var res ExecResult
	if fn.IsDeclaration() {
		return res, fmt.Errorf("ir: cannot execute declaration @%s", fn.Name)
	}
	if len(args) != len(fn.Params) {
		return res, fmt.Errorf("ir: @%s wants %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}

	env := make(map[Value]word)
	for i, p := range fn.Params {
		env[p] = word{n: args[i]}
	}
	cells := make(map[*Instr]int64)

	eval := func(v Value) (word, error) {
		switch v := v.(type) {
		case *Const:
			return word{n: v.Int}, nil
		case *Global:
			return word{bytes: v.Data}, nil
		default:
			w, ok := env[v]
			if !ok {
				return word{}, fmt.Errorf("ir: evaluation of undefined value %s", v.Ref())
			}
			return w, nil
		}
	}

	block := fn.Entry()
	prev := (*BasicBlock)(nil)
	steps := 0
	for {
		for _, in := range block.Instrs {
			steps++
			if steps > maxSteps {
				return res, fmt.Errorf("ir: @%s exceeded %d steps", fn.Name, maxSteps)
			}
			w, err := step(fn, in, eval, cells, prev, &res)
			if err != nil {
				return res, err
			}
			if in.HasResult() {
				env[in] = w
			}
		}

		t := &block.Term
		switch t.Kind {
		case TermReturn:
			if t.Value != nil {
				w, err := eval(t.Value)
				if err != nil {
					return res, err
				}
				res.Ret = w.n
			}
			return res, nil
		case TermJump:
			prev, block = block, t.Targets[0]
		case TermCondBr:
			w, err := eval(t.Value)
			if err != nil {
				return res, err
			}
			if w.n != 0 {
				prev, block = block, t.Targets[0]
			} else {
				prev, block = block, t.Targets[1]
			}
		case TermSwitch:
			w, err := eval(t.Value)
			if err != nil {
				return res, err
			}
			next := t.Default
			for _, c := range t.Cases {
				if c.Value == w.n {
					next = c.Target
					break
				}
			}
			prev, block = block, next
		case TermUnreachable:
			return res, fmt.Errorf("ir: @%s reached unreachable block %s", fn.Name, block.Name)
		default:
			return res, fmt.Errorf("ir: @%s block %s has no terminator", fn.Name, block.Name)
		}
	}
}

func step(
	fn *Function,
	in *Instr,
	eval func(Value) (word, error),
	cells map[*Instr]int64,
	prev *BasicBlock,
	res *ExecResult,
) (word, error) {
	operand := func(k int) (word, error) {
		if k >= len(in.Operands) {
			return word{}, fmt.Errorf("ir: %s in @%s missing operand %d", in.Op, fn.Name, k)
		}
		return eval(in.Operands[k])
	}
	binary := func() (int64, int64, error) {
		a, err := operand(0)
		if err != nil {
			return 0, 0, err
		}
		b, err := operand(1)
		if err != nil {
			return 0, 0, err
		}
		return a.n, b.n, nil
	}

	switch in.Op {
	case OpAdd, OpSub, OpMul, OpShl, OpXor, OpAnd, OpCmpEQ, OpCmpSGT:
		a, b, err := binary()
		if err != nil {
			return word{}, err
		}
		switch in.Op {
		case OpAdd:
			return word{n: a + b}, nil
		case OpSub:
			return word{n: a - b}, nil
		case OpMul:
			return word{n: a * b}, nil
		case OpShl:
			return word{n: a << (uint64(b) & 63)}, nil
		case OpXor:
			return word{n: a ^ b}, nil
		case OpAnd:
			return word{n: a & b}, nil
		case OpCmpEQ:
			return word{n: boolWord(a == b)}, nil
		default:
			return word{n: boolWord(a > b)}, nil
		}
	case OpNeg:
		a, err := operand(0)
		if err != nil {
			return word{}, err
		}
		return word{n: -a.n}, nil
	case OpAlloca:
		cells[in] = 0
		return word{n: 0}, nil
	case OpLoad:
		cell, ok := in.Operands[0].(*Instr)
		if !ok || cell.Op != OpAlloca {
			return word{}, fmt.Errorf("ir: load from non-cell in @%s", fn.Name)
		}
		return word{n: cells[cell]}, nil
	case OpStore:
		v, err := operand(0)
		if err != nil {
			return word{}, err
		}
		cell, ok := in.Operands[1].(*Instr)
		if !ok || cell.Op != OpAlloca {
			return word{}, fmt.Errorf("ir: store to non-cell in @%s", fn.Name)
		}
		cells[cell] = v.n
		return word{}, nil
	case OpPhi:
		// Phi operands pair positionally with Predecessors() order.
		return evalPhi(fn, in, eval, prev)
	case OpLandingPad:
		return word{n: 0}, nil
	case OpCall:
		return evalCall(in, eval, res)
	default:
		return word{}, fmt.Errorf("ir: cannot interpret opcode %s", in.Op)
	}
}

func evalPhi(fn *Function, in *Instr, eval func(Value) (word, error), prev *BasicBlock) (word, error) {
	preds := fn.Predecessors()[in.Block()]
	for k, p := range preds {
		if p == prev && k < len(in.Operands) {
			return eval(in.Operands[k])
		}
	}
	return word{}, fmt.Errorf("ir: phi %s in @%s has no edge for predecessor", in.Ref(), fn.Name)
}

func evalCall(in *Instr, eval func(Value) (word, error), res *ExecResult) (word, error) {
	ws := make([]word, len(in.Operands))
	for k := range in.Operands {
		w, err := eval(in.Operands[k])
		if err != nil {
			return word{}, err
		}
		ws[k] = w
	}

	if in.Callee == DecodeCallee {
		if len(ws) != 1 || ws[0].bytes == nil {
			return word{}, fmt.Errorf("ir: %s wants one byte-array argument", DecodeCallee)
		}
		out := make([]byte, len(ws[0].bytes))
		for k, c := range ws[0].bytes {
			out[k] = c ^ DecodeKey
		}
		return word{bytes: out}, nil
	}

	rendered := ""
	for k, w := range ws {
		if k > 0 {
			rendered += ", "
		}
		if w.bytes != nil {
			rendered += string(w.bytes)
		} else {
			rendered += fmt.Sprintf("%d", w.n)
		}
	}
	res.Output = append(res.Output, in.Callee+"("+rendered+")")

	switch in.Callee {
	case "strlen":
		if len(ws) == 1 && ws[0].bytes != nil {
			return word{n: int64(len(ws[0].bytes))}, nil
		}
		return word{n: 0}, nil
	case "strcmp":
		if len(ws) == 2 && ws[0].bytes != nil && ws[1].bytes != nil {
			return word{n: int64(compareBytes(ws[0].bytes, ws[1].bytes))}, nil
		}
		return word{n: 0}, nil
	default:
		return word{n: 0}, nil
	}
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
