package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/lsp"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
)

// NewLSPCommand creates the language server command.
func NewLSPCommand(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Start a Language Server Protocol server on stdio.

Open Python documents are checked on open, change and save, and the results
are published as editor diagnostics. Settings come from .pystyle.yaml in the
working directory.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeLSP)
			if err != nil {
				return err
			}

			defer shutdownObservability(providers)

			registry, err := lint.DefaultRegistry(cfg.Lint.LocalPackages).Select(cfg.Lint.Analyzers)
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := lsp.NewServer(lsp.Deps{
				Registry: registry,
				Logger:   providers.Logger,
				Metrics:  red,
				Tracer:   providers.Tracer,
			})

			return srv.RunStdio()
		},
	}
}
