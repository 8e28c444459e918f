// Package runner checks Python files concurrently: each file is read, parsed
// once and handed to every registered analyzer.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pystyle/pkg/lint"
	"github.com/Sumatoshi-tech/pystyle/pkg/observability"
	"github.com/Sumatoshi-tech/pystyle/pkg/pysyntax"
	"github.com/Sumatoshi-tech/pystyle/pkg/textutil"
)

// Runner applies a lint registry to files.
type Runner struct {
	parser   *pysyntax.Parser
	registry *lint.Registry
	workers  int
	tracer   trace.Tracer
	metrics  *observability.LintMetrics
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds concurrent file checks. Values below one mean one per CPU.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithTracer sets the tracer used for run and per-file spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMetrics records per-file lint metrics.
func WithMetrics(m *observability.LintMetrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the logger for per-file debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner for the given registry.
func New(registry *lint.Registry, opts ...Option) *Runner {
	r := &Runner{
		parser:   pysyntax.NewParser(),
		registry: registry,
		workers:  runtime.NumCPU(),
		tracer:   nooptrace.NewTracerProvider().Tracer("pystyle/runner"),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run checks every path and returns results in input order. Per-file read and
// parse failures are recorded in the result; only cancellation fails the run.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "pystyle.run",
		trace.WithAttributes(
			attribute.Int("pystyle.files", len(paths)),
			attribute.Int("pystyle.workers", r.workers),
		),
	)
	defer span.End()

	results := make([]FileResult, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for idx, path := range paths {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			results[idx] = r.CheckFile(groupCtx, path)

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	if waitErr != nil {
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, "run cancelled")

		return nil, fmt.Errorf("run: %w", waitErr)
	}

	return &Result{Files: results}, nil
}

// CheckFile reads and checks one file.
func (r *Runner) CheckFile(ctx context.Context, path string) FileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		res := FileResult{Path: path, Err: fmt.Errorf("read: %w", err)}
		r.record(ctx, res)

		return res
	}

	return r.CheckSource(ctx, SourceFile{Path: path, Content: content})
}

// CheckSource checks in-memory content.
func (r *Runner) CheckSource(ctx context.Context, src SourceFile) FileResult {
	ctx = observability.WithFile(ctx, src.Path)

	ctx, span := r.tracer.Start(ctx, "pystyle.file",
		trace.WithAttributes(attribute.String("pystyle.path", src.Path)),
	)
	defer span.End()

	start := time.Now()
	res := r.check(ctx, src)
	res.Duration = time.Since(start)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "file failed")
		r.logger.DebugContext(ctx, "file failed", "error", res.Err)
	} else {
		span.SetAttributes(attribute.Int("pystyle.diagnostics", len(res.Diagnostics)))
		r.logger.DebugContext(ctx, "file checked", "diagnostics", len(res.Diagnostics))
	}

	r.record(ctx, res)

	return res
}

func (r *Runner) check(ctx context.Context, src SourceFile) FileResult {
	res := FileResult{Path: src.Path}

	content, err := textutil.NormalizeSource(src.Content)
	if err != nil {
		res.Err = err

		return res
	}

	res.Lines = textutil.CountLines(content)

	tree, err := r.parser.Parse(ctx, src.Path, content)
	if err != nil {
		res.Err = err

		return res
	}

	for _, analyzer := range r.registry.Analyzers() {
		found := analyzer.Analyze(tree)
		if len(found) > 0 {
			r.logger.DebugContext(observability.WithAnalyzer(ctx, analyzer.Name()), "analyzer reported",
				"diagnostics", len(found))
		}

		res.Diagnostics = append(res.Diagnostics, found...)
	}

	return res
}

func (r *Runner) record(ctx context.Context, res FileResult) {
	if r.metrics == nil {
		return
	}

	stats := observability.FileStats{
		Result:   observability.ResultClean,
		Duration: res.Duration,
	}

	switch {
	case res.Failed():
		stats.Result = observability.ResultFailed
	case len(res.Diagnostics) > 0:
		stats.Result = observability.ResultDirty
		stats.Diagnostics = make(map[string]int)

		for _, d := range res.Diagnostics {
			stats.Diagnostics[string(d.Category)]++
		}
	}

	r.metrics.RecordFile(ctx, stats)
}
