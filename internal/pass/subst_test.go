package pass

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakforge/cloak/internal/ir"
	"github.com/cloakforge/cloak/internal/testutil"
)

func buildBinary(m *ir.Module, name string, op ir.Opcode) *ir.Function {
	f := m.AddFunc(ir.NewFunction(name, "a", "b"))
	entry := f.NewBlock("entry")
	r := f.NewInstr(op, f.Param("a"), f.Param("b"))
	entry.Append(r)
	entry.SetReturn(r)
	return f
}

func TestSubstitution_AddBecomesSubNeg(t *testing.T) {
	om := ir.NewModule("orig")
	orig := buildBinary(om, "add", ir.OpAdd)
	m := ir.NewModule("subst")
	f := buildBinary(m, "add", ir.OpAdd)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	require.True(t, modified)
	require.NoError(t, ir.Verify(f))

	ops := blockOps(f.Entry())
	assert.Equal(t, []ir.Opcode{ir.OpNeg, ir.OpSub}, ops)

	requireEquivalent(t, om, orig, m, f,
		[]int64{1, 2},
		[]int64{-3, 3},
		[]int64{math.MaxInt64, 1},
		[]int64{math.MinInt64, -1})
}

func TestSubstitution_SubBecomesAddNeg(t *testing.T) {
	om := ir.NewModule("orig")
	orig := buildBinary(om, "sub", ir.OpSub)
	m := ir.NewModule("subst")
	f := buildBinary(m, "sub", ir.OpSub)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	require.True(t, modified)
	require.NoError(t, ir.Verify(f))

	ops := blockOps(f.Entry())
	assert.Equal(t, []ir.Opcode{ir.OpNeg, ir.OpAdd}, ops)

	requireEquivalent(t, om, orig, m, f,
		[]int64{5, 9},
		[]int64{math.MinInt64, 1},
		[]int64{0, math.MinInt64})
}

func TestSubstitution_MulByThree(t *testing.T) {
	build := func(m *ir.Module) *ir.Function {
		f := m.AddFunc(ir.NewFunction("triple", "a"))
		entry := f.NewBlock("entry")
		r := f.NewInstr(ir.OpMul, f.Param("a"), ir.ConstOf(3))
		entry.Append(r)
		entry.SetReturn(r)
		return f
	}
	om := ir.NewModule("orig")
	orig := build(om)
	m := ir.NewModule("subst")
	f := build(m)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	require.True(t, modified)
	require.NoError(t, ir.Verify(f))

	ops := blockOps(f.Entry())
	assert.Equal(t, []ir.Opcode{ir.OpShl, ir.OpAdd}, ops)

	requireEquivalent(t, om, orig, m, f,
		[]int64{0}, []int64{7}, []int64{-4}, []int64{math.MaxInt64 / 2})
}

func TestSubstitution_MulByOtherConstUntouched(t *testing.T) {
	m := ir.NewModule("t")
	f := m.AddFunc(ir.NewFunction("quad", "a"))
	entry := f.NewBlock("entry")
	r := f.NewInstr(ir.OpMul, f.Param("a"), ir.ConstOf(4))
	entry.Append(r)
	entry.SetReturn(r)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	assert.False(t, modified)
	assert.Equal(t, []ir.Opcode{ir.OpMul}, blockOps(entry))
}

func TestSubstitution_RewiresAllUses(t *testing.T) {
	m := ir.NewModule("t")
	f := m.AddFunc(ir.NewFunction("chain", "a", "b"))
	entry := f.NewBlock("entry")
	sum := f.NewInstr(ir.OpAdd, f.Param("a"), f.Param("b"))
	dbl := f.NewInstr(ir.OpMul, sum, ir.ConstOf(2))
	entry.Append(sum)
	entry.Append(dbl)
	entry.SetReturn(dbl)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	require.True(t, modified)
	require.NoError(t, ir.Verify(f))

	// The mul now consumes the replacement sub, not the erased add.
	repl, ok := dbl.Operands[0].(*ir.Instr)
	require.True(t, ok)
	assert.Equal(t, ir.OpSub, repl.Op)
	assert.NotContains(t, entry.Instrs, sum)

	res, err := ir.Exec(m, f, []int64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(14), res.Ret)
}

func TestSubstitution_NothingToRewrite(t *testing.T) {
	m := ir.NewModule("t")
	f := m.AddFunc(ir.NewFunction("xor", "a", "b"))
	entry := f.NewBlock("entry")
	r := f.NewInstr(ir.OpXor, f.Param("a"), f.Param("b"))
	entry.Append(r)
	entry.SetReturn(r)

	p := newPass(t, newSubstitution, nil)
	modified, err := p.Run(f, testutil.AlwaysSource{})
	require.NoError(t, err)
	assert.False(t, modified)
}

func blockOps(b *ir.BasicBlock) []ir.Opcode {
	ops := make([]ir.Opcode, len(b.Instrs))
	for i, in := range b.Instrs {
		ops[i] = in.Op
	}
	return ops
}
