package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
	"github.com/cloakforge/cloak/internal/pass"
	"github.com/cloakforge/cloak/internal/pipeline"
	"github.com/cloakforge/cloak/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	ConfigPath string
	OutputPath string
	ReportPath string
	Workers    int
	Seed       int64
}

// runSummary is the run command's result payload.
type runSummary struct {
	RunID     string   `json:"run_id,omitempty"`
	Seed      int64    `json:"seed"`
	Functions int      `json:"functions"`
	Results   int      `json:"results"`
	Modified  int      `json:"modified"`
	Failures  []string `json:"failures,omitempty"`
	Output    string   `json:"output,omitempty"`
}

func (s runSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "obfuscated %d function(s): %d pass result(s), %d modified", s.Functions, s.Results, s.Modified)
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nrun id: %s", s.RunID)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(&b, "\nrolled back: %s", f)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <input.ir>",
		Short: "Apply the configured obfuscation passes to a module",
		Long: `Parse a textual IR module, apply the passes enabled in the
configuration, and emit the transformed module.

A missing or unreadable configuration file is reported and treated as
all-passes-disabled; the module then round-trips unchanged.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "cloak.yaml", "pass configuration file")
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "write the transformed module here (default stdout)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "record results into this SQLite report database")
	cmd.Flags().IntVar(&opts.Workers, "workers", pipeline.DefaultWorkers, "functions transformed concurrently")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the configuration seed")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
	ctx := cmd.Context()

	m, exitErr := loadModule(formatter, input)
	if exitErr != nil {
		return exitErr
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		// Not fatal: the contract is an all-disabled fallback.
		slog.Error("configuration not loaded, all passes disabled", "path", opts.ConfigPath, "error", err)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = opts.Seed
	}

	registry := pass.NewRegistry()
	if verrs := config.Validate(cfg, registry.Names()); len(verrs) > 0 {
		details := make([]string, len(verrs))
		for i, ve := range verrs {
			details[i] = ve.Error()
		}
		formatter.Error(verrs[0].Code, "invalid configuration", details)
		return NewExitError(ExitCommandError, "invalid configuration")
	}

	pipeOpts := []pipeline.Option{pipeline.WithWorkers(opts.Workers)}
	var writer *report.Writer
	if opts.ReportPath != "" {
		store, err := report.Open(opts.ReportPath)
		if err != nil {
			formatter.Error("report", "cannot open report database", err.Error())
			return WrapExitError(ExitCommandError, "open report database", err)
		}
		defer store.Close()
		writer, err = store.BeginRun(ctx, m.Name, cfg.Seed)
		if err != nil {
			formatter.Error("report", "cannot begin report run", err.Error())
			return WrapExitError(ExitCommandError, "begin report run", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithSink(writer))
	}

	results, err := pipeline.New(registry, cfg, pipeOpts...).Run(ctx, m)
	if err != nil {
		formatter.Error("pipeline", "obfuscation failed", err.Error())
		return WrapExitError(ExitFailure, "obfuscation failed", err)
	}
	if writer != nil {
		if err := writer.Finish(ctx); err != nil {
			formatter.Error("report", "cannot finish report run", err.Error())
			return WrapExitError(ExitCommandError, "finish report run", err)
		}
	}

	if err := emitModule(formatter, opts.OutputPath, m); err != nil {
		return err
	}

	summary := summarize(results, opts.OutputPath)
	summary.Seed = cfg.Seed
	if writer != nil {
		summary.RunID = writer.RunID()
	}
	if err := formatter.Success(summary); err != nil {
		return err
	}
	if len(summary.Failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d pass(es) rolled back", len(summary.Failures)))
	}
	return nil
}

// loadModule reads and parses a textual IR module.
func loadModule(formatter *OutputFormatter, path string) (*ir.Module, *ExitError) {
	data, err := os.ReadFile(path)
	if err != nil {
		formatter.Error("input", "cannot read input module", err.Error())
		return nil, WrapExitError(ExitCommandError, "read input module", err)
	}
	m, err := ir.Parse(string(data))
	if err != nil {
		formatter.Error("parse", "cannot parse input module", err.Error())
		return nil, WrapExitError(ExitCommandError, "parse input module", err)
	}
	return m, nil
}

// emitModule writes the transformed module to the output path, or to
// stdout in text mode. JSON mode without -o keeps stdout for the response
// and logs where the module went.
func emitModule(formatter *OutputFormatter, path string, m *ir.Module) error {
	text := ir.Print(m)
	if path != "" {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			formatter.Error("output", "cannot write output module", err.Error())
			return WrapExitError(ExitCommandError, "write output module", err)
		}
		formatter.VerboseLog("wrote %s", path)
		return nil
	}
	if formatter.Format == "json" {
		slog.Warn("no --output path; transformed module discarded in json mode")
		return nil
	}
	fmt.Fprint(formatter.Writer, text)
	return nil
}

func summarize(results []pipeline.Result, output string) runSummary {
	s := runSummary{Results: len(results), Output: output}
	funcs := make(map[string]bool)
	for _, r := range results {
		if !funcs[r.Func] {
			funcs[r.Func] = true
			s.Functions++
		}
		if r.Modified {
			s.Modified++
		}
		if r.Err != "" {
			s.Failures = append(s.Failures, fmt.Sprintf("%s/%s: %s", r.Func, r.Pass, r.Err))
		}
	}
	return s
}
