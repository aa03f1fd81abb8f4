package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloakforge/cloak/internal/pass"
)

// passInfo describes one registered pass.
type passInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// passList renders the registry in registry order.
type passList []passInfo

func (l passList) String() string {
	width := 0
	for _, p := range l {
		if len(p.Name) > width {
			width = len(p.Name)
		}
	}
	var b strings.Builder
	for i, p := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-*s  %s", width, p.Name, p.Summary)
	}
	return b.String()
}

// NewPassesCommand creates the passes command.
func NewPassesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passes",
		Short: "List the available obfuscation passes",
		Long: `List every registered pass in application order. Enable a pass by
setting "<name>.enabled: true" in the configuration file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}
			var list passList
			for _, reg := range pass.NewRegistry().Registrations() {
				list = append(list, passInfo{Name: reg.Name, Summary: reg.Summary})
			}
			return formatter.Success(list)
		},
	}
	return cmd
}
