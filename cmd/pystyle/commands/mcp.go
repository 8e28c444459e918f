package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pystyle/pkg/config"
	"github.com/Sumatoshi-tech/pystyle/pkg/mcp"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(global *GlobalOptions) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes pystyle checks as tools that AI agents can discover
and invoke:
  - pystyle_check: check inline Python code
  - pystyle_analyzers: list the available analyzers`,
		Args: cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs are always JSON on stderr.
			cfg.Logging.Format = config.LogFormatJSON
			if debug {
				cfg.Logging.Level = slog.LevelDebug.String()
			}

			providers, err := initObservability(cfg, observability.ModeMCP)
			if err != nil {
				return err
			}

			defer shutdownObservability(providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:        providers.Logger,
				Metrics:       red,
				Tracer:        providers.Tracer,
				LocalPackages: cfg.Lint.LocalPackages,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
