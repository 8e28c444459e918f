package config

// Lint defaults.
const (
	DefaultIgnoreFile = ".linterignore"
	DefaultWorkers    = 0
	DefaultSkipVendor = false
)

// Output defaults.
const (
	DefaultFormat  = FormatText
	DefaultColor   = true
	DefaultSummary = false
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Telemetry defaults.
const (
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
)
