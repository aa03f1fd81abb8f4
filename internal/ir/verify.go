package ir

import (
	"errors"
	"fmt"
)

// Structural verification error codes (V100-V199).
const (
	ErrNoEntry         = "V100" // function body has no entry block
	ErrUnterminated    = "V101" // block lacks a terminator
	ErrForeignTarget   = "V102" // terminator targets a block outside the function
	ErrNilTarget       = "V103" // terminator target is nil
	ErrMissingCond     = "V104" // condbr/switch without a value
	ErrDanglingOperand = "V105" // operand refers to an erased instruction
	ErrDominance       = "V106" // definition does not dominate use
	ErrForeignOperand  = "V107" // operand defined in another function
)

// VerifyError reports one structural invariant violation.
type VerifyError struct {
	Code  string
	Func  string
	Block string
	Msg   string
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("[%s] func @%s block %s: %s", e.Code, e.Func, e.Block, e.Msg)
	}
	return fmt.Sprintf("[%s] func @%s: %s", e.Code, e.Func, e.Msg)
}

// IsDominanceError reports whether err is a def-use dominance violation.
// Uses errors.As to handle wrapped errors.
func IsDominanceError(err error) bool {
	var ve *VerifyError
	return errors.As(err, &ve) && ve.Code == ErrDominance
}

// Verify checks the structural validity of a function body:
// every block has exactly one terminator, branch targets stay inside the
// function, and every value's definition dominates its uses. Unreachable
// blocks are exempt from dominance checking (treated conservatively) but
// must still be terminated.
//
// Declarations verify trivially.
func Verify(f *Function) error {
	if f.IsDeclaration() {
		return nil
	}
	if f.Entry() == nil {
		return &VerifyError{Code: ErrNoEntry, Func: f.Name, Msg: "no entry block"}
	}

	blockSet := make(map[*BasicBlock]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blockSet[b] = true
	}

	for _, b := range f.Blocks {
		if !b.Terminated() {
			return &VerifyError{Code: ErrUnterminated, Func: f.Name, Block: b.Name, Msg: "missing terminator"}
		}
		switch b.Term.Kind {
		case TermCondBr, TermSwitch:
			if b.Term.Value == nil {
				return &VerifyError{Code: ErrMissingCond, Func: f.Name, Block: b.Name, Msg: "terminator has no value operand"}
			}
		}
		for _, s := range b.Term.Successors() {
			if s == nil {
				return &VerifyError{Code: ErrNilTarget, Func: f.Name, Block: b.Name, Msg: "nil branch target"}
			}
			if !blockSet[s] {
				return &VerifyError{Code: ErrForeignTarget, Func: f.Name, Block: b.Name,
					Msg: fmt.Sprintf("branch target %s not in function", s.Name)}
			}
		}
	}

	reached := Reachable(f)
	dom := Dominators(f)

	// Def-use dominance, checked only on reachable blocks.
	checkOperand := func(b *BasicBlock, pos int, op Value) error {
		def, ok := op.(*Instr)
		if !ok {
			return nil // constants, params and globals dominate everything
		}
		if def.block == nil {
			return &VerifyError{Code: ErrDanglingOperand, Func: f.Name, Block: b.Name,
				Msg: fmt.Sprintf("use of erased instruction %s", def.Ref())}
		}
		if !blockSet[def.block] {
			return &VerifyError{Code: ErrForeignOperand, Func: f.Name, Block: b.Name,
				Msg: fmt.Sprintf("%s defined in another function", def.Ref())}
		}
		if def.block == b {
			if defPos := b.Index(def); defPos < 0 || defPos >= pos {
				return &VerifyError{Code: ErrDominance, Func: f.Name, Block: b.Name,
					Msg: fmt.Sprintf("%s used before its definition", def.Ref())}
			}
			return nil
		}
		if !dom[b][def.block] {
			return &VerifyError{Code: ErrDominance, Func: f.Name, Block: b.Name,
				Msg: fmt.Sprintf("definition of %s in %s does not dominate use", def.Ref(), def.block.Name)}
		}
		return nil
	}

	for _, b := range f.Blocks {
		if !reached[b] {
			continue
		}
		for pos, i := range b.Instrs {
			// Phi operands flow along edges, not program order; their
			// dominance discipline is per-predecessor and out of scope
			// for the passes here, which never create or touch phis.
			if i.Op == OpPhi {
				continue
			}
			for _, op := range i.Operands {
				if err := checkOperand(b, pos, op); err != nil {
					return err
				}
			}
		}
		if b.Term.Value != nil {
			if err := checkOperand(b, len(b.Instrs), b.Term.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
