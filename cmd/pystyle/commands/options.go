// Package commands implements CLI command handlers for pystyle.
package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pystyle/pkg/config"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
	"github.com/Sumatoshi-tech/pystyle/pkg/version"
)

// GlobalOptions holds the root command's persistent flags.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogJSON    bool
}

// Register binds the persistent flags on the root command.
func (g *GlobalOptions) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "Config file (default: .pystyle.yaml in the checked root, CWD or ./config)")
	cmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&g.LogJSON, "log-json", false, "Write logs as JSON")
}

// loadConfig reads configuration and applies the persistent flag overrides.
func (g *GlobalOptions) loadConfig(searchDirs ...string) (*config.Config, error) {
	cfg, err := config.LoadConfig(g.ConfigPath, searchDirs...)
	if err != nil {
		return nil, err
	}

	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}

	if g.LogJSON {
		cfg.Logging.Format = config.LogFormatJSON
	}

	return cfg, nil
}

// initObservability builds telemetry providers for the given mode. Standard
// OTEL_EXPORTER_OTLP_* variables fill in what the config leaves empty.
func initObservability(cfg *config.Config, mode observability.AppMode) (observability.Providers, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return observability.Providers{}, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = firstNonEmpty(cfg.Telemetry.OTLPEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(
		firstNonEmpty(cfg.Telemetry.OTLPHeaders, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")))
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = strings.EqualFold(cfg.Logging.Format, config.LogFormatJSON)

	return observability.Init(obsCfg)
}

func shutdownObservability(providers observability.Providers) {
	shutdownErr := providers.Shutdown(context.Background())
	if shutdownErr != nil {
		providers.Logger.Warn("observability shutdown failed", slog.Any("error", shutdownErr))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
