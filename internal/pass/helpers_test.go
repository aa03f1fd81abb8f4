package pass

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloakforge/cloak/internal/ir"
)

// buildMax builds func @max(%a, %b) returning the larger argument.
func buildMax(m *ir.Module) *ir.Function {
	f := m.AddFunc(ir.NewFunction("max", "a", "b"))
	entry := f.NewBlock("entry")
	then := f.NewBlock("then")
	els := f.NewBlock("else")

	cmp := f.NewInstr(ir.OpCmpSGT, f.Param("a"), f.Param("b"))
	entry.Append(cmp)
	entry.SetCondBr(cmp, then, els)
	then.SetReturn(f.Param("a"))
	els.SetReturn(f.Param("b"))
	return f
}

// buildLoopSum builds func @sum(%n) summing 0..n-1 through memory cells.
// The body block is a bogus/opaque candidate: several instructions, ends
// in an unconditional jump.
func buildLoopSum(m *ir.Module) *ir.Function {
	f := m.AddFunc(ir.NewFunction("sum", "n"))
	entry := f.NewBlock("entry")
	head := f.NewBlock("head")
	body := f.NewBlock("body")
	done := f.NewBlock("done")

	acc := f.NewInstr(ir.OpAlloca)
	idx := f.NewInstr(ir.OpAlloca)
	entry.Append(acc)
	entry.Append(idx)
	entry.Append(f.NewInstr(ir.OpStore, ir.ConstOf(0), acc))
	entry.Append(f.NewInstr(ir.OpStore, ir.ConstOf(0), idx))
	entry.SetJump(head)

	iv := f.NewInstr(ir.OpLoad, idx)
	cond := f.NewInstr(ir.OpCmpSGT, f.Param("n"), iv)
	head.Append(iv)
	head.Append(cond)
	head.SetCondBr(cond, body, done)

	a0 := f.NewInstr(ir.OpLoad, acc)
	a1 := f.NewInstr(ir.OpAdd, a0, iv)
	i1 := f.NewInstr(ir.OpAdd, iv, ir.ConstOf(1))
	body.Append(a0)
	body.Append(a1)
	body.Append(f.NewInstr(ir.OpStore, a1, acc))
	body.Append(i1)
	body.Append(f.NewInstr(ir.OpStore, i1, idx))
	body.SetJump(head)

	ret := f.NewInstr(ir.OpLoad, acc)
	done.Append(ret)
	done.SetReturn(ret)
	return f
}

// buildSelect builds func @sel(%x) with a non-entry switch block, so
// flattening must route each case edge through a trampoline.
func buildSelect(m *ir.Module) *ir.Function {
	f := m.AddFunc(ir.NewFunction("sel", "x"))
	entry := f.NewBlock("entry")
	sel := f.NewBlock("sel")
	one := f.NewBlock("one")
	two := f.NewBlock("two")
	dflt := f.NewBlock("dflt")

	entry.SetJump(sel)
	v := f.NewInstr(ir.OpAdd, f.Param("x"), ir.ConstOf(0))
	sel.Append(v)
	sel.SetSwitch(v, dflt, []ir.SwitchCase{
		{Value: 1, Target: one},
		{Value: 2, Target: two},
	})
	one.SetReturn(ir.ConstOf(10))
	two.SetReturn(ir.ConstOf(20))
	dflt.SetReturn(ir.ConstOf(-1))
	return f
}

// buildGreeter builds func @greet(%n) printing a string global and
// returning its length.
func buildGreeter(m *ir.Module) *ir.Function {
	msg := m.Global("msg")
	if msg == nil {
		msg = m.NewGlobal("msg", []byte("hello, world"))
	}
	f := m.AddFunc(ir.NewFunction("greet", "n"))
	entry := f.NewBlock("entry")
	entry.Append(f.NewCall("printf", msg, f.Param("n")))
	ln := f.NewCall("strlen", msg)
	entry.Append(ln)
	entry.SetReturn(ln)
	return f
}

func mustExec(t *testing.T, m *ir.Module, f *ir.Function, args ...int64) ir.ExecResult {
	t.Helper()
	res, err := ir.Exec(m, f, args)
	require.NoError(t, err)
	return res
}

// requireEquivalent interprets both functions on the same arguments and
// requires identical observable results.
func requireEquivalent(t *testing.T, m1 *ir.Module, f1 *ir.Function, m2 *ir.Module, f2 *ir.Function, argSets ...[]int64) {
	t.Helper()
	for _, args := range argSets {
		want := mustExec(t, m1, f1, args...)
		got := mustExec(t, m2, f2, args...)
		require.Equal(t, want, got, "args %v", args)
	}
}
