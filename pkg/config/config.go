// Package config loads pystyle settings from .pystyle.yaml, PYSTYLE_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("workers must not be negative")
	ErrInvalidFormat      = errors.New("unsupported output format")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("unsupported log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	configName      = ".pystyle"
	configType      = "yaml"
	envPrefix       = "PYSTYLE"
	envKeySeparator = "_"
)

// Config holds every pystyle setting.
type Config struct {
	Lint      LintConfig      `mapstructure:"lint"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LintConfig controls which files are checked and how.
type LintConfig struct {
	// LocalPackages are the top-level module names treated as first party.
	LocalPackages []string `mapstructure:"local_packages"`
	// Analyzers restricts the run to the named analyzers. Empty runs all.
	Analyzers  []string `mapstructure:"analyzers"`
	IgnoreFile string   `mapstructure:"ignore_file"`
	SkipVendor bool     `mapstructure:"skip_vendor"`
	// Workers bounds concurrent file checks. Zero means one per CPU.
	Workers int `mapstructure:"workers"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	Color   bool   `mapstructure:"color"`
	Summary bool   `mapstructure:"summary"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string  `mapstructure:"otlp_headers"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
	Environment     string  `mapstructure:"environment"`
	MetricsTextfile string  `mapstructure:"metrics_textfile"`
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty it is used as the explicit config file.
// Otherwise .pystyle.yaml is searched in each of searchDirs, then in CWD and
// ./config. A missing config file is not an error.
func LoadConfig(configPath string, searchDirs ...string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)

		for _, dir := range searchDirs {
			viperCfg.AddConfigPath(dir)
		}

		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Lint: LintConfig{
			LocalPackages: []string{},
			Analyzers:     []string{},
			IgnoreFile:    DefaultIgnoreFile,
			SkipVendor:    DefaultSkipVendor,
			Workers:       DefaultWorkers,
		},
		Output: OutputConfig{
			Format:  DefaultFormat,
			Color:   DefaultColor,
			Summary: DefaultSummary,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Telemetry: TelemetryConfig{
			OTLPInsecure: DefaultOTLPInsecure,
			SampleRatio:  DefaultSampleRatio,
		},
	}
}

// applyDefaults registers every key of Default so that environment-only
// settings reach Unmarshal.
func applyDefaults(viperCfg *viper.Viper) {
	def := Default()

	defaults := map[string]any{
		"lint.local_packages": def.Lint.LocalPackages,
		"lint.analyzers":      def.Lint.Analyzers,
		"lint.ignore_file":    def.Lint.IgnoreFile,
		"lint.skip_vendor":    def.Lint.SkipVendor,
		"lint.workers":        def.Lint.Workers,

		"output.format":  def.Output.Format,
		"output.color":   def.Output.Color,
		"output.summary": def.Output.Summary,

		"logging.level":  def.Logging.Level,
		"logging.format": def.Logging.Format,

		"telemetry.otlp_endpoint":    def.Telemetry.OTLPEndpoint,
		"telemetry.otlp_headers":     def.Telemetry.OTLPHeaders,
		"telemetry.otlp_insecure":    def.Telemetry.OTLPInsecure,
		"telemetry.sample_ratio":     def.Telemetry.SampleRatio,
		"telemetry.environment":      def.Telemetry.Environment,
		"telemetry.metrics_textfile": def.Telemetry.MetricsTextfile,
	}

	for key, value := range defaults {
		viperCfg.SetDefault(key, value)
	}
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Lint.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Lint.Workers)
	}

	if !slices.Contains(Formats(), strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, c.Output.Format)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML}
}
