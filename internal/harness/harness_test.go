package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakforge/cloak/internal/ir"
	"github.com/cloakforge/cloak/internal/pass"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenario_GoldenOutputs(t *testing.T) {
	for _, name := range []string{"subst_chain", "strenc_greeting"} {
		t.Run(name, func(t *testing.T) {
			s := loadTestScenario(t, name)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			require.NotNil(t, result)

			for _, r := range result.Results {
				assert.True(t, r.Modified, "%s on @%s", r.Pass, r.Func)
			}
		})
	}
}

func TestScenario_FlattenedLoopStaysEquivalent(t *testing.T) {
	s := loadTestScenario(t, "flatten_loop")
	result, err := Run(s)
	require.NoError(t, err)

	// The dispatcher structure landed.
	fn := result.Obfuscated.Func("sum")
	require.NotNil(t, fn)
	dispatch := fn.Block("dispatch")
	require.NotNil(t, dispatch)
	assert.Equal(t, ir.TermSwitch, dispatch.Term.Kind)

	// Flattening reported a modification for the loop function.
	flattened := false
	for _, r := range result.Results {
		if r.Func == "sum" && r.Pass == pass.NameFlattening {
			flattened = r.Modified
		}
	}
	assert.True(t, flattened)

	// And the original was never touched.
	assert.Nil(t, result.Original.Func("sum").Block("dispatch"))
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "absent.yaml"))
	require.Error(t, err)
}

func TestLoadScenario_RequiresNameAndModule(t *testing.T) {
	dir := t.TempDir()

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("module: x.ir\n"), 0o644))
	_, err := LoadScenario(noName)
	require.ErrorContains(t, err, "missing name")

	noModule := filepath.Join(dir, "nomodule.yaml")
	require.NoError(t, os.WriteFile(noModule, []byte("name: x\n"), 0o644))
	_, err = LoadScenario(noModule)
	require.ErrorContains(t, err, "missing module")
}

func TestRun_RejectsUnknownPass(t *testing.T) {
	s := loadTestScenario(t, "subst_chain")
	s.Passes["no-such-pass"] = map[string]string{"enabled": "true"}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "C101")
}
