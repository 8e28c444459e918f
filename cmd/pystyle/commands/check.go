package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pystyle/pkg/config"
	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
	"github.com/Sumatoshi-tech/pystyle/pkg/report"
	"github.com/Sumatoshi-tech/pystyle/pkg/runner"
	"github.com/Sumatoshi-tech/pystyle/pkg/selection"
)

// ErrLintFailed is returned when any file has diagnostics or failed to parse.
// The report has already been written; callers only set the exit status.
var ErrLintFailed = errors.New("lint failed")

const defaultRoot = "."

// CheckCommand holds the flags of the check command.
type CheckCommand struct {
	global *GlobalOptions

	ignoreFile      string
	workers         int
	skipVendor      bool
	format          string
	noColor         bool
	summary         bool
	localPackages   []string
	analyzers       []string
	metricsTextfile string
	otlpEndpoint    string
}

// NewCheckCommand creates the check command.
func NewCheckCommand(global *GlobalOptions) *cobra.Command {
	cc := &CheckCommand{global: global}

	cmd := &cobra.Command{
		Use:   "check [root]",
		Short: "Check Python files for import order, docstrings and type hints",
		Long: `Recursively check every .py file under root (default ".").

Import statements must be grouped as direct imports, then third-party
from-imports, then local from-imports, each group alphabetically ordered.
Every function and method must have a docstring and complete type hints.

Exit status is 0 when every file passes and 1 otherwise.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cc.run,
	}

	cmd.Flags().StringVar(&cc.ignoreFile, "ignore-file", config.DefaultIgnoreFile,
		"Ignore list, relative to root unless absolute")
	cmd.Flags().IntVar(&cc.workers, "workers", config.DefaultWorkers, "Number of parallel workers (0 = use CPU count)")
	cmd.Flags().BoolVar(&cc.skipVendor, "skip-vendor", config.DefaultSkipVendor, "Skip vendored directories (venv, site-packages, ...)")
	cmd.Flags().StringVar(&cc.format, "format", config.DefaultFormat, "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&cc.summary, "summary", config.DefaultSummary, "Print a summary table")
	cmd.Flags().StringSliceVarP(&cc.localPackages, "local-package", "l", nil,
		"Top-level package treated as local (repeatable)")
	cmd.Flags().StringSliceVarP(&cc.analyzers, "analyzers", "a", nil,
		"Analyzers to run (default: all): import-order, annotations")
	cmd.Flags().StringVar(&cc.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	cmd.Flags().StringVar(&cc.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	root := defaultRoot
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := cc.global.loadConfig(root)
	if err != nil {
		return err
	}

	cc.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	providers, err := initObservability(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}

	defer shutdownObservability(providers)

	return cc.check(cmd, root, cfg, providers)
}

// applyFlags overrides config values with explicitly set flags.
func (cc *CheckCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("ignore-file") {
		cfg.Lint.IgnoreFile = cc.ignoreFile
	}

	if flags.Changed("workers") {
		cfg.Lint.Workers = cc.workers
	}

	if flags.Changed("skip-vendor") {
		cfg.Lint.SkipVendor = cc.skipVendor
	}

	if flags.Changed("format") {
		cfg.Output.Format = cc.format
	}

	if cc.noColor {
		cfg.Output.Color = false
	}

	if flags.Changed("summary") {
		cfg.Output.Summary = cc.summary
	}

	if flags.Changed("local-package") {
		cfg.Lint.LocalPackages = cc.localPackages
	}

	if flags.Changed("analyzers") {
		cfg.Lint.Analyzers = cc.analyzers
	}

	if cc.metricsTextfile != "" {
		cfg.Telemetry.MetricsTextfile = cc.metricsTextfile
	}

	if cc.otlpEndpoint != "" {
		cfg.Telemetry.OTLPEndpoint = cc.otlpEndpoint
	}
}

func (cc *CheckCommand) check(cmd *cobra.Command, root string, cfg *config.Config, providers observability.Providers) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := providers.Logger

	paths, err := discover(ctx, root, cfg.Lint)
	if err != nil {
		return err
	}

	registry, err := lint.DefaultRegistry(cfg.Lint.LocalPackages).Select(cfg.Lint.Analyzers)
	if err != nil {
		return fmt.Errorf("select analyzers: %w", err)
	}

	lintMetrics, err := observability.NewLintMetrics(providers.Meter)
	if err != nil {
		return err
	}

	logger.DebugContext(ctx, "checking files",
		slog.String("root", root), slog.Int("files", len(paths)), slog.Any("analyzers", registry.Names()))

	res, err := runner.New(registry,
		runner.WithWorkers(cfg.Lint.Workers),
		runner.WithTracer(providers.Tracer),
		runner.WithMetrics(lintMetrics),
		runner.WithLogger(logger),
	).Run(ctx, paths)
	if err != nil {
		return err
	}

	reporter := report.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), report.Options{
		Format:  cfg.Output.Format,
		Color:   cfg.Output.Color,
		Summary: cfg.Output.Summary,
	})

	err = reporter.Render(res)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if !res.Passed() {
		logger.DebugContext(ctx, "check failed",
			slog.Int("files_with_issues", res.FilesWithIssues()), slog.Int("failures", len(res.Failures())))

		return ErrLintFailed
	}

	if format, _ := report.NormalizeFormat(cfg.Output.Format); format != report.FormatText {
		logger.InfoContext(ctx, report.SuccessMessage)
	}

	return nil
}

func discover(ctx context.Context, root string, lintCfg config.LintConfig) ([]string, error) {
	ignoreFile := selection.ResolveIgnoreFile(root, lintCfg.IgnoreFile)

	ignore, err := selection.LoadIgnoreList(root, ignoreFile)
	if err != nil {
		return nil, err
	}

	paths, err := selection.Discover(ctx, root, selection.Options{Ignore: ignore, SkipVendor: lintCfg.SkipVendor})
	if err != nil {
		return nil, err
	}

	return paths, nil
}
