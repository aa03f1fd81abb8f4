package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `module demo

global @fmt = "result: %d\n"

declare @printf

func @pipeline(%a, %b) {
entry:
  %t0 = cmpsgt %a, %b
  condbr %t0, big, small
big:
  %t1 = add %a, 7
  %t2 = call @printf(@fmt, %t1)
  br out
small:
  %t3 = sub %b, %a
  br out
out:
  %cell = alloca
  store 3, %cell
  %t4 = load %cell
  switch %t4, default trap [3: three, 4: four]
three:
  ret 30
four:
  ret 40
trap:
  unreachable
}
`

func TestParse_Sample(t *testing.T) {
	m, err := Parse(sampleSource)
	require.NoError(t, err)

	assert.Equal(t, "demo", m.Name)
	require.NotNil(t, m.Global("fmt"))
	assert.Equal(t, "result: %d\n", string(m.Global("fmt").Data))

	decl := m.Func("printf")
	require.NotNil(t, decl)
	assert.True(t, decl.IsDeclaration())

	f := m.Func("pipeline")
	require.NotNil(t, f)
	require.Len(t, f.Blocks, 7)
	assert.Equal(t, "entry", f.Entry().Name)
	require.NoError(t, Verify(f))

	out := f.Block("out")
	require.Equal(t, TermSwitch, out.Term.Kind)
	require.Len(t, out.Term.Cases, 2)
	assert.Equal(t, int64(3), out.Term.Cases[0].Value)
	assert.Equal(t, "trap", out.Term.Default.Name)

	call := f.Block("big").Instrs[1]
	assert.Equal(t, OpCall, call.Op)
	assert.Equal(t, "printf", call.Callee)
	require.Len(t, call.Operands, 2)
	assert.Same(t, m.Global("fmt"), call.Operands[0].(*Global))
}

func TestParse_PrintRoundTrip(t *testing.T) {
	m, err := Parse(sampleSource)
	require.NoError(t, err)

	printed := Print(m)
	m2, err := Parse(printed)
	require.NoError(t, err)

	// Printing is canonical: a second round trip is byte-identical.
	assert.Equal(t, printed, Print(m2))

	// Behavior also survives the round trip.
	r1, err := Exec(m, m.Func("pipeline"), []int64{5, 2})
	require.NoError(t, err)
	r2, err := Exec(m2, m2.Func("pipeline"), []int64{5, 2})
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestParse_FreshRegistersContinue(t *testing.T) {
	m, err := Parse(sampleSource)
	require.NoError(t, err)

	f := m.Func("pipeline")
	next := f.NewInstr(OpAdd, ConstOf(1), ConstOf(1))
	assert.Equal(t, "%t5", next.Ref(), "register numbering continues past parsed names")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing header",
			src:  "func @f() {\nentry:\n  ret\n}\n",
			want: "expected module header",
		},
		{
			name: "undefined value",
			src:  "module m\nfunc @f() {\nentry:\n  ret %nope\n}\n",
			want: "undefined value",
		},
		{
			name: "undefined block",
			src:  "module m\nfunc @f() {\nentry:\n  br nowhere\n}\n",
			want: "undefined block",
		},
		{
			name: "unterminated block",
			src:  "module m\nfunc @f() {\nentry:\n  %t0 = add 1, 2\n}\n",
			want: "lacks a terminator",
		},
		{
			name: "instruction after terminator",
			src:  "module m\nfunc @f() {\nentry:\n  ret\n  %t0 = add 1, 2\n}\n",
			want: "after terminator",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}
