// Package main provides the entry point for the pystyle CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pystyle/cmd/pystyle/commands"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}

	if !errors.Is(err, commands.ErrLintFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(1)
}

func newRootCommand() *cobra.Command {
	global := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "pystyle",
		Short: "pystyle - Python import order, docstring and type hint checker",
		Long: `pystyle checks Python sources for structural conventions.

Commands:
  check     Check a source tree and report violations
  lsp       Serve diagnostics to editors
  mcp       Serve checks to AI agents`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	global.Register(rootCmd)

	rootCmd.AddCommand(commands.NewCheckCommand(global))
	rootCmd.AddCommand(commands.NewLSPCommand(global))
	rootCmd.AddCommand(commands.NewMCPCommand(global))
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
