package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
seed: 99
passes:
  flattening:
    enabled: "true"
  bogus-control-flow:
    enabled: "true"
    probability: "0.75"
  string-encryption:
    enabled: "false"
    emit-decode: "true"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloak.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(99), c.Seed)
	assert.True(t, c.Enabled("flattening"))
	assert.True(t, c.Enabled("bogus-control-flow"))
	assert.False(t, c.Enabled("string-encryption"))
	assert.False(t, c.Enabled("opaque-predicates"), "missing pass defaults to disabled")

	assert.Equal(t, 0.75, c.Pass("bogus-control-flow").Float("probability", 0.5))
	assert.Equal(t, 0.3, c.Pass("opaque-predicates").Float("probability", 0.3), "missing key falls back to default")
}

func TestLoad_MissingFileFallsBackDisabled(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.NotNil(t, c, "caller still gets a usable config")
	assert.False(t, c.Enabled("flattening"))
	assert.Empty(t, c.Passes)
}

func TestLoad_MalformedYAML(t *testing.T) {
	c, err := Load(writeConfig(t, "passes: [not, a, map]"))
	require.Error(t, err)
	require.NotNil(t, c)
	assert.False(t, c.Enabled("flattening"))
}

func TestValue_FlatKeyContract(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	v, ok := c.Value("flattening.enabled")
	require.True(t, ok)
	assert.Equal(t, "true", v)

	v, ok = c.Value("bogus-control-flow.probability")
	require.True(t, ok)
	assert.Equal(t, "0.75", v)

	_, ok = c.Value("flattening.nonexistent")
	assert.False(t, ok)
	_, ok = c.Value("no-dot-key")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	known := []string{"flattening", "bogus-control-flow", "opaque-predicates"}

	tests := []struct {
		name     string
		yaml     string
		wantCode string
	}{
		{
			name:     "unknown pass",
			yaml:     "passes:\n  flatening:\n    enabled: \"true\"\n",
			wantCode: ErrUnknownPass,
		},
		{
			name:     "bad enabled",
			yaml:     "passes:\n  flattening:\n    enabled: \"yep\"\n",
			wantCode: ErrBadEnabled,
		},
		{
			name:     "probability out of range",
			yaml:     "passes:\n  opaque-predicates:\n    probability: \"1.5\"\n",
			wantCode: ErrBadProbability,
		},
		{
			name:     "probability not a number",
			yaml:     "passes:\n  opaque-predicates:\n    probability: \"half\"\n",
			wantCode: ErrBadProbability,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, tt.yaml))
			require.NoError(t, err)
			errs := Validate(c, known)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantCode, errs[0].Code)
		})
	}

	t.Run("clean config", func(t *testing.T) {
		c, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		known := append(known, "string-encryption")
		assert.Empty(t, Validate(c, known))
	})

	t.Run("unrecognized option keys are ignored", func(t *testing.T) {
		c, err := Load(writeConfig(t, "passes:\n  flattening:\n    enabled: \"true\"\n    wat: \"42\"\n"))
		require.NoError(t, err)
		assert.Empty(t, Validate(c, known))
	})
}
