package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/cloakforge/cloak/internal/ir"
)

// RunWithGolden executes a scenario and compares the printed obfuscated
// module against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for the exact transformed
// output; the equivalence checks inside Run already proved the behavior.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(ir.Print(result.Obfuscated)))

	return result, nil
}
