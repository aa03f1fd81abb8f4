package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RestoresStructure(t *testing.T) {
	m, err := Parse(sampleSource)
	require.NoError(t, err)
	f := m.Func("pipeline")
	before := Print(m)

	snap := NewSnapshot(f)

	// Wreck the function: drop a terminator and erase an instruction.
	f.Block("big").Term = Terminator{}
	entry := f.Entry()
	entry.Erase(entry.Instrs[0])
	require.Error(t, Verify(f))

	snap.Restore()
	require.NoError(t, Verify(f))
	assert.Equal(t, before, Print(m), "restored body prints identically")
}

func TestSnapshot_RestoresGlobalData(t *testing.T) {
	m, err := Parse(sampleSource)
	require.NoError(t, err)
	f := m.Func("pipeline")
	g := m.Global("fmt")
	original := string(g.Data)

	snap := NewSnapshot(f)
	for i := range g.Data {
		g.Data[i] ^= 0x42
	}
	require.NotEqual(t, original, string(g.Data))

	snap.Restore()
	assert.Equal(t, original, string(g.Data))
}

func TestSnapshot_CopiesAreIndependent(t *testing.T) {
	m := NewModule("t")
	f := buildMax(m)
	snap := NewSnapshot(f)

	// Mutating the live body must not leak into the snapshot.
	f.Blocks[1].SetReturn(ConstOf(99))
	snap.Restore()

	res, err := Exec(m, f, []int64{9, 1})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Ret)
}

func TestSnapshot_FunctionIdentityKept(t *testing.T) {
	m := NewModule("t")
	f := buildMax(m)
	snap := NewSnapshot(f)
	f.NewBlock("junk").SetUnreachable()
	snap.Restore()

	assert.Same(t, f, m.Func("max"))
	assert.Len(t, f.Blocks, 3)
	for _, b := range f.Blocks {
		assert.Same(t, f, b.Func())
	}
}
