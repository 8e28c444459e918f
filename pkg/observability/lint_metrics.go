package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFiles         = "pystyle.files"
	metricDiagnostics   = "pystyle.diagnostics"
	metricParseFailures = "pystyle.parse.failures"
	metricFileDuration  = "pystyle.file.duration"

	attrCategory = "category"
	attrResult   = "result"

	// ResultClean marks a file with no diagnostics.
	ResultClean = "clean"
	// ResultDirty marks a file with at least one diagnostic.
	ResultDirty = "dirty"
	// ResultFailed marks a file that could not be read or parsed.
	ResultFailed = "failed"
)

// LintMetrics holds the per-file lint instruments.
type LintMetrics struct {
	files         metric.Int64Counter
	diagnostics   metric.Int64Counter
	parseFailures metric.Int64Counter
	fileDuration  metric.Float64Histogram
}

// FileStats is the outcome of checking one file.
type FileStats struct {
	Result   string
	Duration time.Duration
	// Diagnostics counts diagnostics per category.
	Diagnostics map[string]int
}

// NewLintMetrics creates lint instruments from the given meter.
func NewLintMetrics(mt metric.Meter) (*LintMetrics, error) {
	files, err := mt.Int64Counter(metricFiles,
		metric.WithDescription("Files checked by result"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFiles, err)
	}

	diags, err := mt.Int64Counter(metricDiagnostics,
		metric.WithDescription("Diagnostics reported by category"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiagnostics, err)
	}

	failures, err := mt.Int64Counter(metricParseFailures,
		metric.WithDescription("Files that failed to read or parse"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricParseFailures, err)
	}

	duration, err := mt.Float64Histogram(metricFileDuration,
		metric.WithDescription("Per-file parse and analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileDuration, err)
	}

	return &LintMetrics{
		files:         files,
		diagnostics:   diags,
		parseFailures: failures,
		fileDuration:  duration,
	}, nil
}

// RecordFile records one checked file. Safe to call on a nil receiver.
func (lm *LintMetrics) RecordFile(ctx context.Context, stats FileStats) {
	if lm == nil {
		return
	}

	lm.files.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, stats.Result)))
	lm.fileDuration.Record(ctx, stats.Duration.Seconds())

	if stats.Result == ResultFailed {
		lm.parseFailures.Add(ctx, 1)
	}

	for category, count := range stats.Diagnostics {
		lm.diagnostics.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrCategory, category)))
	}
}
