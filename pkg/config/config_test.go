package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pystyle/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".pystyle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Empty(t, cfg.Lint.LocalPackages)
	assert.Equal(t, config.DefaultIgnoreFile, cfg.Lint.IgnoreFile)
	assert.Equal(t, config.DefaultWorkers, cfg.Lint.Workers)
	assert.Equal(t, config.DefaultFormat, cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadConfig_EmptyFile_MatchesDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	def := config.Default()

	assert.Empty(t, cfg.Lint.Analyzers)
	assert.Equal(t, def.Lint.IgnoreFile, cfg.Lint.IgnoreFile)
	assert.Equal(t, def.Lint.SkipVendor, cfg.Lint.SkipVendor)
	assert.Equal(t, def.Lint.Workers, cfg.Lint.Workers)
	assert.Equal(t, def.Output, cfg.Output)
	assert.Equal(t, def.Logging, cfg.Logging)
	assert.Equal(t, def.Telemetry, cfg.Telemetry)
}

func TestLoadConfig_SearchDirWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default().Lint.IgnoreFile, cfg.Lint.IgnoreFile)
}

func TestLoadConfig_SearchDirFindsFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "lint:\n  local_packages: [app]\n")

	cfg, err := config.LoadConfig("", filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, cfg.Lint.LocalPackages)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `lint:
  local_packages:
    - my_project
    - utils
  analyzers: [import-order]
  ignore_file: .customignore
  skip_vendor: true
  workers: 4
output:
  format: json
  color: false
  summary: true
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: localhost:4317
  otlp_insecure: true
  sample_ratio: 0.5
  metrics_textfile: /tmp/pystyle.prom
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"my_project", "utils"}, cfg.Lint.LocalPackages)
	assert.Equal(t, []string{"import-order"}, cfg.Lint.Analyzers)
	assert.Equal(t, ".customignore", cfg.Lint.IgnoreFile)
	assert.True(t, cfg.Lint.SkipVendor)
	assert.Equal(t, 4, cfg.Lint.Workers)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
	assert.True(t, cfg.Output.Summary)
	assert.Equal(t, config.LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.InDelta(t, 0.5, cfg.Telemetry.SampleRatio, 0.001)
	assert.Equal(t, "/tmp/pystyle.prom", cfg.Telemetry.MetricsTextfile)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadConfig_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown section", "plugins:\n  x: 1\n"},
		{"unknown key", "lint:\n  local_pkgs: [a]\n"},
		{"wrong type", "lint:\n  workers: many\n"},
		{"negative workers", "lint:\n  workers: -1\n"},
		{"bad format", "output:\n  format: xml\n"},
		{"ratio out of range", "telemetry:\n  sample_ratio: 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, config.ErrSchema)
		})
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "lint: [unclosed\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"defaults", func(*config.Config) {}, nil},
		{"negative workers", func(c *config.Config) { c.Lint.Workers = -2 }, config.ErrInvalidWorkers},
		{"format", func(c *config.Config) { c.Output.Format = "html" }, config.ErrInvalidFormat},
		{"format case", func(c *config.Config) { c.Output.Format = "JSON" }, nil},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, config.ErrInvalidLogLevel},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, config.ErrInvalidLogFormat},
		{"ratio", func(c *config.Config) { c.Telemetry.SampleRatio = -0.1 }, config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateYAML_Empty(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.ValidateYAML(nil))
	require.NoError(t, config.ValidateYAML([]byte("# only a comment\n")))
}

func TestSchema_IsEmbedded(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(config.Schema()), `"local_packages"`)
}
