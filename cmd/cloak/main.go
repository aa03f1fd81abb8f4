// Package main implements the cloak CLI: obfuscate, verify, and inspect
// textual IR modules.
package main

import (
	"os"

	"github.com/cloakforge/cloak/internal/cli"
)

var version = "dev"

func main() {
	cmd := cli.NewRootCommand()
	cmd.Version = version
	cmd.SetVersionTemplate("cloak version {{.Version}}\n")

	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
