package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloakforge/cloak/internal/ir"
)

// verifyResult is the verify command's payload.
type verifyResult struct {
	Valid     bool     `json:"valid"`
	Functions int      `json:"functions"`
	Errors    []string `json:"errors,omitempty"`
}

func (r verifyResult) String() string {
	if r.Valid {
		return fmt.Sprintf("ok: %d function(s) verified", r.Functions)
	}
	return fmt.Sprintf("invalid: %d problem(s)\n%s", len(r.Errors), strings.Join(r.Errors, "\n"))
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <input.ir>",
		Short: "Check a module's structural validity",
		Long: `Parse a textual IR module and run the structural verifier over
every function body: terminators present, branch targets in-function,
definitions dominating uses.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runVerify(rootOpts *RootOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	m, exitErr := loadModule(formatter, input)
	if exitErr != nil {
		return exitErr
	}

	res := verifyResult{Valid: true}
	firstCode := ""
	for _, fn := range m.Funcs {
		if fn.IsDeclaration() {
			continue
		}
		res.Functions++
		if err := ir.Verify(fn); err != nil {
			res.Valid = false
			res.Errors = append(res.Errors, err.Error())
			var ve *ir.VerifyError
			if firstCode == "" && errors.As(err, &ve) {
				firstCode = ve.Code
			}
		}
	}

	if !res.Valid {
		formatter.Error(firstCode, "module is structurally invalid", res.Errors)
		return NewExitError(ExitFailure, "module is structurally invalid")
	}
	return formatter.Success(res)
}
