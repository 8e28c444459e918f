// Package observability provides OpenTelemetry tracing and metrics plus
// structured logging for every pystyle mode (CLI, LSP, MCP).
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is the one-shot check command.
	ModeCLI AppMode = "cli"
	// ModeLSP is the language server over stdio.
	ModeLSP AppMode = "lsp"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "pystyle"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "ci", "dev").
	Environment string

	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples everything.
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool

	// LogOutput receives log records. Nil means stderr, which keeps stdout
	// free for reports and the LSP and MCP stdio transports.
	LogOutput io.Writer

	// MetricsTextfile, when set, receives a Prometheus text exposition of all
	// metrics on shutdown.
	MetricsTextfile string

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return defaultShutdownTimeoutSec * time.Second
	}

	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}
