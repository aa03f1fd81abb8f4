package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
	"github.com/cloakforge/cloak/internal/pass"
	"github.com/cloakforge/cloak/internal/pipeline"
)

// Execution is one interpreter comparison within a scenario.
type Execution struct {
	Func string  `yaml:"func"`
	Args []int64 `yaml:"args"`
}

// Scenario describes one end-to-end obfuscation check.
type Scenario struct {
	Name        string                       `yaml:"name"`
	Description string                       `yaml:"description"`
	Module      string                       `yaml:"module"` // path, relative to the scenario file
	Seed        int64                        `yaml:"seed"`
	Passes      map[string]config.PassConfig `yaml:"passes"`
	Runs        []Execution                  `yaml:"runs"`
}

// Result holds both module forms and the pipeline's records.
type Result struct {
	Original   *ir.Module
	Obfuscated *ir.Module
	Results    []pipeline.Result
}

// LoadScenario reads a scenario file and resolves its module path
// relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("load scenario %s: missing name", path)
	}
	if s.Module == "" {
		return nil, fmt.Errorf("load scenario %s: missing module", path)
	}
	if !filepath.IsAbs(s.Module) {
		s.Module = filepath.Join(filepath.Dir(path), s.Module)
	}
	return &s, nil
}

// Run obfuscates the scenario's module and proves behavior is preserved:
// every listed execution must produce identical observable results on the
// original and the obfuscated module.
func Run(s *Scenario) (*Result, error) {
	src, err := os.ReadFile(s.Module)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	original, err := ir.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	obfuscated, err := ir.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	cfg := config.Default()
	cfg.Seed = s.Seed
	for name, pc := range s.Passes {
		cfg.Passes[name] = pc
	}
	if verrs := config.Validate(cfg, pass.NewRegistry().Names()); len(verrs) > 0 {
		return nil, fmt.Errorf("scenario %s: %s", s.Name, verrs[0].Error())
	}

	// One worker keeps the printed output stable for golden comparison.
	pipe := pipeline.New(pass.NewRegistry(), cfg, pipeline.WithWorkers(1))
	results, err := pipe.Run(context.Background(), obfuscated)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	for _, r := range results {
		if r.Err != "" {
			return nil, fmt.Errorf("scenario %s: pass %s rolled back on @%s: %s", s.Name, r.Pass, r.Func, r.Err)
		}
	}

	for _, run := range s.Runs {
		if err := compareExecution(original, obfuscated, run); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}

	return &Result{Original: original, Obfuscated: obfuscated, Results: results}, nil
}

func compareExecution(original, obfuscated *ir.Module, run Execution) error {
	fnO := original.Func(run.Func)
	fnX := obfuscated.Func(run.Func)
	if fnO == nil || fnX == nil {
		return fmt.Errorf("execution @%s: function not found", run.Func)
	}
	want, err := ir.Exec(original, fnO, run.Args)
	if err != nil {
		return fmt.Errorf("execution @%s%v on original: %w", run.Func, run.Args, err)
	}
	got, err := ir.Exec(obfuscated, fnX, run.Args)
	if err != nil {
		return fmt.Errorf("execution @%s%v on obfuscated: %w", run.Func, run.Args, err)
	}
	if want.Ret != got.Ret {
		return fmt.Errorf("execution @%s%v: return %d, obfuscated returned %d", run.Func, run.Args, want.Ret, got.Ret)
	}
	if len(want.Output) != len(got.Output) {
		return fmt.Errorf("execution @%s%v: output %v, obfuscated produced %v", run.Func, run.Args, want.Output, got.Output)
	}
	for i := range want.Output {
		if want.Output[i] != got.Output[i] {
			return fmt.Errorf("execution @%s%v: output %v, obfuscated produced %v", run.Func, run.Args, want.Output, got.Output)
		}
	}
	return nil
}
