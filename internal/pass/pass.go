package pass

import (
	"fmt"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

// Stable pass names, used for configuration lookup and diagnostics.
const (
	NameFlattening       = "flattening"
	NameBogusControlFlow = "bogus-control-flow"
	NameOpaquePredicates = "opaque-predicates"
	NameSubstitution     = "instruction-substitution"
	NameStringEncryption = "string-encryption"
)

// Pass is one obfuscation transform. Run mutates fn in place and reports
// whether anything changed. An error means the function's structural
// preconditions were violated (e.g. an unterminated block); the caller
// is expected to roll the function back.
type Pass interface {
	Name() string
	Run(fn *ir.Function, rng Source) (bool, error)
}

// Factory builds a configured pass instance from its options.
type Factory func(cfg config.PassConfig) (Pass, error)

// Registration couples a pass name with its factory and a one-line
// summary for diagnostics.
type Registration struct {
	Name    string
	Summary string
	Factory Factory
}

// Registry is the explicit, ordered set of available passes. Order is
// declaration order and never changes after construction; the pipeline
// applies enabled passes in this order.
type Registry struct {
	regs []Registration
}

// NewRegistry returns the registry of all built-in passes.
func NewRegistry() *Registry {
	return &Registry{regs: []Registration{
		{
			Name:    NameFlattening,
			Summary: "replace nested control flow with a state-machine dispatcher",
			Factory: newFlattening,
		},
		{
			Name:    NameBogusControlFlow,
			Summary: "insert never-taken branches to junk blocks",
			Factory: newBogusControlFlow,
		},
		{
			Name:    NameOpaquePredicates,
			Summary: "guard block exits with always-true predicates",
			Factory: newOpaquePredicates,
		},
		{
			Name:    NameSubstitution,
			Summary: "replace simple arithmetic with equivalent longer sequences",
			Factory: newSubstitution,
		},
		{
			Name:    NameStringEncryption,
			Summary: "encrypt string constants behind recognized text calls",
			Factory: newStringEncryption,
		},
	}}
}

// Registrations returns the registry contents in declaration order.
func (r *Registry) Registrations() []Registration {
	out := make([]Registration, len(r.regs))
	copy(out, r.regs)
	return out
}

// Names returns all registered pass names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.regs))
	for i, reg := range r.regs {
		names[i] = reg.Name
	}
	return names
}

// Build constructs the enabled passes in registry order from the
// configuration.
func (r *Registry) Build(cfg *config.Config) ([]Pass, error) {
	var passes []Pass
	for _, reg := range r.regs {
		if !cfg.Enabled(reg.Name) {
			continue
		}
		p, err := reg.Factory(cfg.Pass(reg.Name))
		if err != nil {
			return nil, fmt.Errorf("configure pass %s: %w", reg.Name, err)
		}
		passes = append(passes, p)
	}
	return passes, nil
}
