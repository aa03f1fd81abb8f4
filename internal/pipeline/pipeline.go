package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
	"github.com/cloakforge/cloak/internal/pass"
)

// DefaultWorkers bounds how many functions are transformed concurrently.
const DefaultWorkers = 4

// Result records the outcome of one pass over one function.
type Result struct {
	// Seq is the logical clock stamp; see CP-2 in the package doc.
	Seq      int64
	Func     string
	Pass     string
	Modified bool
	// Err is the failure message when the pass was rolled back, empty
	// otherwise.
	Err string
}

// Sink receives results as they are stamped, in seq order. Implemented
// by report.Writer; a nil sink discards results.
type Sink interface {
	WriteResult(ctx context.Context, r Result) error
}

// Pipeline applies the configured passes to every eligible function of a
// module. Construct with New, run once per module.
type Pipeline struct {
	registry *pass.Registry
	cfg      *config.Config
	log      *slog.Logger
	clock    SeqClock
	workers  int
	sink     Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the worker pool size. Values below 1 mean serial.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.workers = n
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithSink forwards stamped results to a report sink.
func WithSink(s Sink) Option {
	return func(p *Pipeline) { p.sink = s }
}

// WithClock replaces the seq clock. Defaults to a fresh Clock per Pipeline.
func WithClock(c SeqClock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New creates a Pipeline over the given registry and configuration.
func New(registry *pass.Registry, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		cfg:      cfg,
		log:      slog.Default(),
		clock:    NewClock(),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// funcOutcome is one worker's results for one function, joined before
// seq stamping.
type funcOutcome struct {
	index   int
	results []Result
}

// Run transforms every eligible function of m in place and returns one
// Result per (function, attempted pass), stamped and ordered per CP-2.
// A pass failure rolls its function back and skips that function's
// remaining passes; it does not abort the run.
func (p *Pipeline) Run(ctx context.Context, m *ir.Module) ([]Result, error) {
	passes, err := p.registry.Build(p.cfg)
	if err != nil {
		return nil, err
	}
	if len(passes) == 0 {
		p.log.Info("no passes enabled", "module", m.Name)
		return nil, nil
	}

	var eligible []*ir.Function
	for _, fn := range m.Funcs {
		if !pass.EligibleFunction(fn) {
			p.log.Debug("function not eligible", "func", fn.Name)
			continue
		}
		eligible = append(eligible, fn)
	}

	outcomes := make([]funcOutcome, len(eligible))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > len(eligible) {
		workers = len(eligible)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = funcOutcome{
					index:   idx,
					results: p.runFunction(ctx, eligible[idx], passes),
				}
			}
		}()
	}
	for idx := range eligible {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline interrupted: %w", err)
	}

	// Stamp in deterministic order: module function order, then registry
	// pass order within each function (CP-2).
	var out []Result
	for _, oc := range outcomes {
		for _, r := range oc.results {
			r.Seq = p.clock.Next()
			out = append(out, r)
			if p.sink != nil {
				if err := p.sink.WriteResult(ctx, r); err != nil {
					return out, fmt.Errorf("report result: %w", err)
				}
			}
		}
	}
	return out, nil
}

// runFunction applies the pass chain to one function, rolling back and
// stopping the chain on the first failure.
func (p *Pipeline) runFunction(ctx context.Context, fn *ir.Function, passes []pass.Pass) []Result {
	rng := pass.NewRand(pass.DeriveSeed(p.cfg.Seed, fn.Name))
	results := make([]Result, 0, len(passes))
	anyModified := false

	for _, ps := range passes {
		if ctx.Err() != nil {
			return results
		}

		snap := ir.NewSnapshot(fn)
		entry := fn.Entry()

		modified, err := ps.Run(fn, rng)
		if err == nil && fn.Entry() != entry {
			err = fmt.Errorf("pass %s replaced the entry block of @%s", ps.Name(), fn.Name)
		}
		if err == nil {
			err = ir.Verify(fn)
		}
		if err != nil {
			snap.Restore()
			p.log.Warn("pass rolled back",
				"func", fn.Name, "pass", ps.Name(), "error", err)
			results = append(results, Result{Func: fn.Name, Pass: ps.Name(), Err: err.Error()})
			break
		}

		p.log.Info("pass applied",
			"func", fn.Name, "pass", ps.Name(), "modified", modified)
		results = append(results, Result{Func: fn.Name, Pass: ps.Name(), Modified: modified})
		anyModified = anyModified || modified
	}

	// The rollback restores only the failing pass, so earlier passes still
	// count toward the function's aggregate.
	p.log.Info("function done", "func", fn.Name, "modified", anyModified)
	return results
}
